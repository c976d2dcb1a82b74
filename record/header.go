package record

import (
	"math"
	"strconv"
	"strings"
)

// HeaderKind is a bit set of the fields a comment line declares. A line may
// declare several at once.
type HeaderKind uint8

const (
	TrialHeader HeaderKind = 1 << iota
	SamplingHeader
	ChannelMapping

	Unrecognized HeaderKind = 0
)

// Has reports whether k includes kind.
func (k HeaderKind) Has(kind HeaderKind) bool {
	return k&kind != 0
}

func (k HeaderKind) String() string {
	if k == Unrecognized {
		return "unrecognized"
	}
	var names []string
	if k.Has(TrialHeader) {
		names = append(names, "trials")
	}
	if k.Has(SamplingHeader) {
		names = append(names, "sampling")
	}
	if k.Has(ChannelMapping) {
		names = append(names, "channel")
	}
	return strings.Join(names, "|")
}

// HeaderLine is the classified content of one comment line.
type HeaderLine struct {
	Kind HeaderKind

	// TrialHeader
	Trials   int
	Channels int
	Samples  int

	// SamplingHeader. IntervalGuessed is set when no token preceded "msec"
	// and the first float on the line was taken instead.
	IntervalMs      float64
	IntervalGuessed bool

	// ChannelMapping
	ChannelName  string
	ChannelIndex int
}

// ClassifyHeader inspects the text of a comment line (without the leading '#').
//
// Recognised forms:
//
//	120 trials, 64 chans, 416 samples 368 post_stim samples
//	3.906000 msecs uV
//	FP1 chan 0
//
// Each test runs independently, so one line can match more than one kind.
// Lines that mention a field but fail to parse it contribute nothing.
func ClassifyHeader(text string) HeaderLine {
	var h HeaderLine

	if strings.Contains(text, "trials") && strings.Contains(text, "chans") && strings.Contains(text, "samples") {
		var ints []int
		for _, tok := range strings.Fields(strings.ReplaceAll(text, ",", " ")) {
			if !isDigits(tok) {
				continue
			}
			if v, err := strconv.Atoi(tok); err == nil {
				ints = append(ints, v)
			}
		}
		if len(ints) >= 3 {
			h.Kind |= TrialHeader
			h.Trials, h.Channels, h.Samples = ints[0], ints[1], ints[2]
		}
	}

	if strings.Contains(strings.ToLower(text), "msec") {
		if ms, guessed, ok := parseInterval(strings.Fields(text)); ok {
			h.Kind |= SamplingHeader
			h.IntervalMs = ms
			h.IntervalGuessed = guessed
		}
	}

	if strings.Contains(text, "chan") {
		toks := strings.Fields(text)
		for i, tok := range toks {
			if tok != "chan" {
				continue
			}
			if i+1 < len(toks) {
				if idx, err := strconv.Atoi(toks[i+1]); err == nil {
					h.Kind |= ChannelMapping
					h.ChannelName = strings.Join(toks[:i], " ")
					h.ChannelIndex = idx
				}
			}
			break
		}
	}

	return h
}

// parseInterval takes the float before a "msec" token; when several tokens
// qualify the last parseable one wins. Falls back to the first float on the line.
// Intervals that fail ValidIntervalMs are rejected.
func parseInterval(toks []string) (ms float64, guessed, ok bool) {
	for i, tok := range toks {
		if i == 0 || !strings.Contains(strings.ToLower(tok), "msec") {
			continue
		}
		if v, valid := parsePositive(toks[i-1]); valid {
			ms, ok = v, true
		}
	}
	if ok {
		return ms, false, true
	}

	for _, tok := range toks {
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			ms, ok = parsePositive(tok)
			return ms, true, ok
		}
	}
	return 0, false, false
}

func parsePositive(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || !ValidIntervalMs(v) {
		return 0, false
	}
	return v, true
}

// ValidIntervalMs reports whether a sampling interval in milliseconds gives a
// rounded sampling rate between 1 Hz and math.MaxInt32 Hz.
func ValidIntervalMs(ms float64) bool {
	if !(ms > 0) || math.IsInf(ms, 0) {
		return false
	}
	rate := math.RoundToEven(1000.0 / ms)
	return rate >= 1 && rate <= math.MaxInt32
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
