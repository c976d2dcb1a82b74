package record

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// PreferredChannels is the order in which a display channel is chosen.
var PreferredChannels = []string{"FP1", "FP2", "Cz", "C3", "C4"}

// Trial is one epoch of a channel, values in file order.
type Trial struct {
	Number int       `json:"trial"`
	Values []float64 `json:"values"`
}

// ChannelTrials holds every trial of one channel, ascending by trial number.
type ChannelTrials struct {
	Name   string  `json:"name"`
	Trials []Trial `json:"trials"`
}

// Average trims every trial to the shortest and averages sample-wise.
func (c *ChannelTrials) Average() []float64 {
	if len(c.Trials) == 0 {
		return nil
	}

	length := len(c.Trials[0].Values)
	for _, t := range c.Trials[1:] {
		length = min(length, len(t.Values))
	}

	avg := make([]float64, length)
	for _, t := range c.Trials {
		for i := range avg {
			avg[i] += t.Values[i]
		}
	}
	n := float64(len(c.Trials))
	for i := range avg {
		avg[i] /= n
	}
	return avg
}

// Trial returns the values of trial n, or nil when it was not recorded.
func (c *ChannelTrials) Trial(n int) []float64 {
	i, found := sort.Find(len(c.Trials), func(i int) int { return n - c.Trials[i].Number })
	if !found {
		return nil
	}
	return c.Trials[i].Values
}

// TrialSet keeps every trial of every channel, for trial-averaged display.
type TrialSet struct {
	DeclaredTrials   int     `json:"n_trials,omitempty"`
	DeclaredChannels int     `json:"n_channels,omitempty"`
	DeclaredSamples  int     `json:"n_samples,omitempty"`
	IntervalMs       float64 `json:"sampling_interval_ms,omitempty"`
	SampleRate       float64 `json:"sampling_rate"`

	channels []*ChannelTrials
}

// ChannelNames returns channel labels in sorted order.
func (s *TrialSet) ChannelNames() []string {
	names := make([]string, len(s.channels))
	for i, c := range s.channels {
		names[i] = c.Name
	}
	return names
}

// Channel looks a channel up by label.
func (s *TrialSet) Channel(name string) (*ChannelTrials, bool) {
	i, found := slices.BinarySearchFunc(s.channels, name, func(c *ChannelTrials, name string) int {
		return strings.Compare(c.Name, name)
	})
	if !found {
		return nil, false
	}
	return s.channels[i], true
}

// Average is the trial average of one channel.
func (s *TrialSet) Average(name string) ([]float64, error) {
	c, ok := s.Channel(name)
	if !ok {
		return nil, fmt.Errorf("channel %q not present", name)
	}
	return c.Average(), nil
}

// AverageAll returns the trial average of every channel.
func (s *TrialSet) AverageAll() map[string][]float64 {
	out := make(map[string][]float64, len(s.channels))
	for _, c := range s.channels {
		out[c.Name] = c.Average()
	}
	return out
}

// Single returns one trial of one channel; an unrecorded trial yields an empty slice.
func (s *TrialSet) Single(name string, trial int) ([]float64, error) {
	c, ok := s.Channel(name)
	if !ok {
		return nil, fmt.Errorf("channel %q not present", name)
	}
	values := c.Trial(trial)
	if values == nil {
		return []float64{}, nil
	}
	return values, nil
}

// PrimaryChannel picks the first of PreferredChannels that is present,
// otherwise the first channel in sorted order. Empty when there are no channels.
func (s *TrialSet) PrimaryChannel() string {
	for _, name := range PreferredChannels {
		if _, ok := s.Channel(name); ok {
			return name
		}
	}
	if len(s.channels) > 0 {
		return s.channels[0].Name
	}
	return ""
}

// TrialCount is the number of distinct trial numbers across all channels.
func (s *TrialSet) TrialCount() int {
	seen := make(map[int]struct{})
	for _, c := range s.channels {
		for _, t := range c.Trials {
			seen[t.Number] = struct{}{}
		}
	}
	return len(seen)
}

func (s *TrialSet) maxTrial() (int, bool) {
	found := false
	best := 0
	for _, c := range s.channels {
		for _, t := range c.Trials {
			if !found || t.Number > best {
				best, found = t.Number, true
			}
		}
	}
	return best, found
}

// trialBuilder accumulates values before they are frozen into a TrialSet.
type trialBuilder map[string]map[int][]float64

func (b trialBuilder) add(channel string, trial int, values ...float64) {
	trials, ok := b[channel]
	if !ok {
		trials = make(map[int][]float64)
		b[channel] = trials
	}
	trials[trial] = append(trials[trial], values...)
}

func (b trialBuilder) set(channel string, trial int, values []float64) {
	trials, ok := b[channel]
	if !ok {
		trials = make(map[int][]float64)
		b[channel] = trials
	}
	trials[trial] = values
}

func (b trialBuilder) freeze() []*ChannelTrials {
	channels := make([]*ChannelTrials, 0, len(b))
	for name, trials := range b {
		ct := &ChannelTrials{Name: name, Trials: make([]Trial, 0, len(trials))}
		for n, values := range trials {
			ct.Trials = append(ct.Trials, Trial{Number: n, Values: values})
		}
		sort.Slice(ct.Trials, func(i, j int) bool { return ct.Trials[i].Number < ct.Trials[j].Number })
		channels = append(channels, ct)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Name < channels[j].Name })
	return channels
}

// ParseTrials reads every trial of every channel. Values are appended in file
// order; the sample index column is not used for placement. The sampling rate
// is 1000/interval without rounding, DefaultSampleRate when undeclared.
func ParseTrials(r io.Reader) (*TrialSet, error) {
	set := &TrialSet{SampleRate: DefaultSampleRate}
	builder := make(trialBuilder)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			h := ClassifyHeader(strings.TrimSpace(line[1:]))
			if h.Kind.Has(TrialHeader) {
				set.DeclaredTrials, set.DeclaredChannels, set.DeclaredSamples = h.Trials, h.Channels, h.Samples
			}
			if h.Kind.Has(SamplingHeader) && !h.IntervalGuessed {
				set.IntervalMs = h.IntervalMs
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		trial, err1 := strconv.Atoi(fields[0])
		_, err2 := strconv.Atoi(fields[2])
		value, err3 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		builder.add(fields[1], trial, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	if set.IntervalMs > 0 {
		set.SampleRate = 1000.0 / set.IntervalMs
	}
	set.channels = builder.freeze()
	return set, nil
}

// MergeTrialSets concatenates trials across files. Trial numbers of each set
// are shifted past the largest trial number of the sets before it, so trials
// from different files never collide. Declared metadata comes from the first set.
func MergeTrialSets(sets ...*TrialSet) (*TrialSet, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("no trial sets to merge")
	}

	first := sets[0]
	merged := &TrialSet{
		DeclaredTrials:   first.DeclaredTrials,
		DeclaredChannels: first.DeclaredChannels,
		DeclaredSamples:  first.DeclaredSamples,
		IntervalMs:       first.IntervalMs,
		SampleRate:       first.SampleRate,
	}

	builder := make(trialBuilder)
	offset := 0
	for _, s := range sets {
		for _, c := range s.channels {
			for _, t := range c.Trials {
				builder.set(c.Name, t.Number+offset, t.Values)
			}
		}
		last, ok := s.maxTrial()
		if !ok {
			last = 0
		}
		offset += last + 1
	}

	merged.channels = builder.freeze()
	return merged, nil
}
