package record

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/RyanBlaney/rdstat/logging"
)

// maxLineLength bounds a single input line; rd000 lines are short.
const maxLineLength = 1 << 20

// DefaultMaxCells bounds channels x samples of one recording (128 MiB of float64).
const DefaultMaxCells = 1 << 24

// ParserConfig holds the values used when a header field is never declared.
type ParserConfig struct {
	DefaultChannels   int
	DefaultSamples    int
	DefaultIntervalMs float64

	// MaxCells caps the matrix a header may declare. A trial header over
	// the cap is ignored and the default layout applies.
	MaxCells int
}

// DefaultParserConfig matches the acquisition system's usual layout:
// 64 channels, 416 samples, 3.906 ms per sample (256 Hz).
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		DefaultChannels:   64,
		DefaultSamples:    416,
		DefaultIntervalMs: 3.906,
		MaxCells:          DefaultMaxCells,
	}
}

// fits reports whether a channels x samples matrix stays within MaxCells.
func (c ParserConfig) fits(channels, samples int) bool {
	if channels <= 0 || samples <= 0 {
		return false
	}
	return channels <= c.MaxCells/samples
}

func (c ParserConfig) withDefaults() ParserConfig {
	def := DefaultParserConfig()
	if c.DefaultChannels <= 0 {
		c.DefaultChannels = def.DefaultChannels
	}
	if c.DefaultSamples <= 0 {
		c.DefaultSamples = def.DefaultSamples
	}
	if !ValidIntervalMs(c.DefaultIntervalMs) {
		c.DefaultIntervalMs = def.DefaultIntervalMs
	}
	if c.MaxCells <= 0 {
		c.MaxCells = def.MaxCells
	}
	if !c.fits(c.DefaultChannels, c.DefaultSamples) {
		c.DefaultChannels, c.DefaultSamples = def.DefaultChannels, def.DefaultSamples
	}
	return c
}

// Parser reads rd000 text into a single-trial Recording.
type Parser struct {
	config ParserConfig
	logger logging.Logger
}

// NewParser creates a parser; zero fields in cfg take the defaults.
func NewParser(cfg ParserConfig) *Parser {
	return &Parser{
		config: cfg.withDefaults(),
		logger: logging.WithFields(logging.Fields{"component": "record_parser"}),
	}
}

// Parse reads a recording from r. Only read errors are returned; malformed
// content is skipped and counted in Recording.Stats.
func Parse(r io.Reader, cfg ParserConfig) (*Recording, error) {
	return NewParser(cfg).Parse(r)
}

// ParseString parses an in-memory recording.
func ParseString(text string, cfg ParserConfig) (*Recording, error) {
	return NewParser(cfg).Parse(strings.NewReader(text))
}

// ParseFile opens and parses path.
func ParseFile(path string, cfg ParserConfig) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return NewParser(cfg).Parse(f)
}

type header struct {
	trials, channels, samples int
	haveCounts                bool
	intervalMs                float64
	haveInterval              bool
	mapping                   map[int]string
}

func (h *header) apply(line HeaderLine) {
	if line.Kind.Has(TrialHeader) {
		h.trials, h.channels, h.samples = line.Trials, line.Channels, line.Samples
		h.haveCounts = true
	}
	if line.Kind.Has(SamplingHeader) && (!line.IntervalGuessed || !h.haveInterval) {
		h.intervalMs = line.IntervalMs
		h.haveInterval = true
	}
	if line.Kind.Has(ChannelMapping) {
		h.mapping[line.ChannelIndex] = line.ChannelName
	}
}

// Parse reads a recording from r.
func (p *Parser) Parse(r io.Reader) (*Recording, error) {
	hdr := header{mapping: make(map[int]string)}
	var stats ParseStats
	var body [][]string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	for scanner.Scan() {
		line := scanner.Text()
		stats.Lines++
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			stats.HeaderLines++
			hdr.apply(ClassifyHeader(strings.TrimSpace(line[1:])))
			continue
		}

		stats.BodyLines++
		fields := strings.Fields(line)
		if len(fields) < 4 {
			stats.ShortLines++
			continue
		}
		body = append(body, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	nChans, nSamples, intervalMs := p.config.DefaultChannels, p.config.DefaultSamples, p.config.DefaultIntervalMs
	if hdr.haveCounts {
		if p.config.fits(hdr.channels, hdr.samples) {
			nChans, nSamples = hdr.channels, hdr.samples
		} else {
			hdr.haveCounts = false
			stats.OversizedHeader = true
			p.logger.Warn("declared layout exceeds cell limit, using defaults", logging.Fields{
				"channels":  hdr.channels,
				"samples":   hdr.samples,
				"max_cells": p.config.MaxCells,
			})
		}
	}
	if hdr.haveInterval {
		intervalMs = hdr.intervalMs
	}

	var names []string
	if len(hdr.mapping) > 0 {
		names = namesFromMapping(hdr.mapping, nChans)
	} else {
		names = namesFromBody(body, nChans)
	}

	rec := NewRecording(names, nSamples, sampleRateFromInterval(intervalMs))
	rec.IntervalMs = intervalMs
	if hdr.haveCounts {
		rec.Trials = hdr.trials
	}

	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	for _, fields := range body {
		trial, err1 := strconv.Atoi(fields[0])
		sample, err2 := strconv.Atoi(fields[2])
		value, err3 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			stats.Malformed++
			continue
		}
		if trial != 0 {
			stats.OtherTrials++
			continue
		}
		ch, ok := index[fields[1]]
		if !ok {
			stats.UnknownChannel++
			continue
		}
		if sample < 0 || sample >= nSamples {
			stats.OutOfRange++
			continue
		}
		rec.Samples[ch][sample] = value
		stats.Written++
	}

	rec.Stats = stats
	p.logger.Debug("parsed record", logging.Fields{
		"channels":    len(names),
		"samples":     nSamples,
		"sample_rate": rec.SampleRate,
		"written":     stats.Written,
		"skipped":     stats.Skipped(),
	})

	return rec, nil
}

// sampleRateFromInterval rounds half to even, as the acquisition tooling does.
func sampleRateFromInterval(intervalMs float64) int {
	return int(math.RoundToEven(1000.0 / intervalMs))
}

// namesFromMapping lays out declared channel indexes in the first nChans
// slots, filling gaps with placeholders. Indexes at or past nChans are dropped.
func namesFromMapping(mapping map[int]string, nChans int) []string {
	names := make([]string, nChans)
	for i := range names {
		if name, ok := mapping[i]; ok {
			names[i] = name
		} else {
			names[i] = placeholder(i)
		}
	}
	return names
}

// namesFromBody takes channel labels in first-seen order until nChans are
// known, then pads with placeholders.
func namesFromBody(body [][]string, nChans int) []string {
	names := make([]string, 0, nChans)
	seen := make(map[string]bool)

	for _, fields := range body {
		if len(names) >= nChans {
			break
		}
		if ch := fields[1]; !seen[ch] {
			seen[ch] = true
			names = append(names, ch)
		}
	}

	for i := len(names); i < nChans; i++ {
		names = append(names, placeholder(i))
	}
	return names
}

func placeholder(i int) string {
	return "Ch" + strconv.Itoa(i+1)
}
