package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/RyanBlaney/rdstat/logging"
)

const fixture = "../../record/testdata/co2a0000364.rd.000"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "parse", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "4 channels x 8 samples at 256 Hz")
	assert.Contains(t, out, "channels without data: [C4]")

	out, err = run(t, "parse", "--trials", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, `display channel "FP1"`)

	_, err = run(t, "parse", filepath.Join(t.TempDir(), "missing.rd.000"))
	assert.Error(t, err)
}

func TestParseCommandJSON(t *testing.T) {
	out, err := run(t, "parse", "--json", fixture)
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &meta))
	assert.NotContains(t, meta, "samples")
	assert.Equal(t, 256.0, meta["sampling_rate_hz"])

	out, err = run(t, "parse", "--json", "--samples", fixture)
	require.NoError(t, err)
	var full struct {
		ChannelNames []string     `json:"channel_names"`
		Samples      [][]*float64 `json:"samples"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &full))
	require.Len(t, full.Samples, 4)
	for i, row := range full.Samples {
		assert.Len(t, row, 8)
		if full.ChannelNames[i] == "C4" {
			assert.Nil(t, row[0], "missing cells are null")
		}
	}
}

func TestLogLevelFromEnvironment(t *testing.T) {
	prev := logging.GetGlobalLogger()
	t.Cleanup(func() { logging.SetGlobalLogger(prev) })

	cases := []struct {
		env     string
		args    []string
		visible bool
	}{
		{"", []string{"parse", fixture}, false},
		{"debug", []string{"parse", fixture}, true},
		{"error", []string{"-v", "parse", fixture}, true},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		logging.SetGlobalLogger(logging.NewWriterLogger(&buf, logging.ErrorLevel))
		t.Setenv("LOG_LEVEL", tc.env)

		_, err := run(t, tc.args...)
		require.NoError(t, err)
		assert.Equal(t, tc.visible, strings.Contains(buf.String(), "parsed record"), "LOG_LEVEL=%q %v", tc.env, tc.args)
	}

	t.Setenv("LOG_LEVEL", "chatty")
	_, err := run(t, "parse", fixture)
	assert.Error(t, err)
}

func writeCohort(t *testing.T, dir string, n int, offset float64) {
	t.Helper()
	for s := range n {
		var b strings.Builder
		b.WriteString("# 1 trials, 2 chans, 8 samples\n# 3.906 msecs uV\n# FP1 chan 0\n# C3 chan 1\n")
		for _, ch := range []string{"FP1", "C3"} {
			for i := range 8 {
				fmt.Fprintf(&b, "0 %s %d %.3f\n", ch, i, offset+float64(s)+float64(i%2))
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("s%d.rd.000", s))
		require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	}
}

func TestCompareCommand(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	writeCohort(t, dirA, 3, 0)
	writeCohort(t, dirB, 3, 20)
	xlsx := filepath.Join(t.TempDir(), "out.xlsx")
	page := filepath.Join(t.TempDir(), "out.html")

	out, err := run(t, "compare", "--group-a", dirA, "--group-b", dirB,
		"--label-a", "control", "--label-b", "patient", "--permutations", "20", "--xlsx", xlsx, "--html", page)
	require.NoError(t, err)
	assert.Contains(t, out, "# control vs patient")
	assert.Contains(t, out, "wrote "+xlsx)
	assert.Contains(t, out, "wrote "+page)

	rendered, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Contains(t, string(rendered), "control vs patient</h1>")

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Clusters")
}

func TestSummaryCommand(t *testing.T) {
	dir := t.TempDir()
	writeCohort(t, dir, 2, 0)

	out, err := run(t, "summary", "--label", "pilot", filepath.Join(dir, "s0.rd.000"), filepath.Join(dir, "s1.rd.000"))
	require.NoError(t, err)
	assert.Contains(t, out, "pilot: 2 subjects, 2 channels, 8 samples at 256 Hz")
}
