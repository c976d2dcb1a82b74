package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/rdstat/algorithms/common"
	"github.com/RyanBlaney/rdstat/algorithms/spectral"
	"github.com/RyanBlaney/rdstat/algorithms/stats"
	"github.com/RyanBlaney/rdstat/cohort"
	"github.com/RyanBlaney/rdstat/logging"
)

// DefaultSignificance is the level at which clusters are reported.
const DefaultSignificance = 0.05

// CompareOptions configures a two-cohort comparison.
type CompareOptions struct {
	Cluster       ClusterOptions  `json:"cluster"`
	SegmentLength int             `json:"segment_length"`
	Bands         []spectral.Band `json:"bands"`
	Significance  float64         `json:"significance"`
}

// DefaultCompareOptions returns default comparison settings
func DefaultCompareOptions() CompareOptions {
	return CompareOptions{
		Cluster:       DefaultClusterOptions(),
		SegmentLength: DefaultSegmentLength,
		Bands:         spectral.StandardBands(),
		Significance:  DefaultSignificance,
	}
}

// GroupSummary holds the per-cohort outputs of a comparison.
type GroupSummary struct {
	Label    string   `json:"label"`
	Subjects []string `json:"subjects"`

	ERP       cohort.ERPSummary `json:"erp"`
	Envelopes []BandEnvelope    `json:"envelopes"`
	PSD       *GroupPSD         `json:"psd"`

	AlphaPower     common.Series `json:"alpha_power"`
	PeakAlpha      common.Series `json:"peak_alpha"`
	AlphaPowerMean common.Value  `json:"alpha_power_mean"`
	AlphaPowerSEM  common.Value  `json:"alpha_power_sem"`
	PeakAlphaMean  common.Value  `json:"peak_alpha_mean"`
	PeakAlphaSEM   common.Value  `json:"peak_alpha_sem"`
}

// Comparison is the full result of comparing two cohorts.
type Comparison struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Channels   []string  `json:"channels"`
	SampleRate int       `json:"sampling_rate_hz"`
	Times      []float64 `json:"times"`

	A GroupSummary `json:"group_a"`
	B GroupSummary `json:"group_b"`

	Clusters        *ClusterReport       `json:"clusters"`
	Significant     []SignificantCluster `json:"significant_clusters"`
	SignificantMask []bool               `json:"significant_mask"`
}

// Compare runs the whole pipeline over two aligned cohorts: channel-mean ERP
// with standard error, band envelopes, channel-median PSDs, alpha power and
// peak alpha frequency per subject, and the cluster permutation test.
func Compare(ctx context.Context, a, b *cohort.Group, opts CompareOptions) (*Comparison, error) {
	if err := cohort.CheckCompatible(a, b); err != nil {
		return nil, err
	}
	if len(opts.Bands) == 0 {
		opts.Bands = spectral.StandardBands()
	}
	if opts.Significance <= 0 {
		opts.Significance = DefaultSignificance
	}

	runID := uuid.New().String()
	ctx = logging.ContextWithFields(ctx, logging.Fields{"run_id": runID})
	logger := logging.WithContext(ctx).WithFields(logging.Fields{"component": "compare"})

	psdEngine := NewSpectralEngine(opts.SegmentLength)
	envEngine := NewEnvelopeEngine()

	cmp := &Comparison{
		ID:         runID,
		CreatedAt:  time.Now().UTC(),
		Channels:   a.Channels,
		SampleRate: a.SampleRate,
		Times:      a.Times(),
	}

	var err error
	if cmp.A, err = summarise(a, psdEngine, envEngine, opts.Bands); err != nil {
		return nil, err
	}
	if cmp.B, err = summarise(b, psdEngine, envEngine, opts.Bands); err != nil {
		return nil, err
	}

	logger.Info("running cluster permutation test", logging.Fields{
		"channels":     len(a.Channels),
		"permutations": opts.Cluster.Permutations,
	})
	cmp.Clusters, err = ClusterTest(ctx, a, b, opts.Cluster)
	if err != nil {
		return nil, err
	}

	cmp.Significant = cmp.Clusters.Significant(opts.Significance)
	cmp.SignificantMask = cmp.Clusters.SignificantMask(opts.Significance, a.SampleCount())

	logger.Info("comparison finished", logging.Fields{
		"significant_clusters": len(cmp.Significant),
	})
	return cmp, nil
}

func summarise(g *cohort.Group, psdEngine *SpectralEngine, envEngine *EnvelopeEngine, bands []spectral.Band) (GroupSummary, error) {
	out := GroupSummary{
		Label:    g.Label,
		Subjects: g.Subjects,
		ERP:      cohort.SummariseERP(g),
	}

	var err error
	if out.Envelopes, err = envEngine.GroupEnvelopes(g, bands); err != nil {
		return out, err
	}
	if out.PSD, err = psdEngine.GroupPSD(g); err != nil {
		return out, err
	}

	out.AlphaPower = make(common.Series, g.SubjectCount())
	out.PeakAlpha = make(common.Series, g.SubjectCount())
	for s, psd := range out.PSD.Subjects {
		out.AlphaPower[s], out.PeakAlpha[s] = AlphaMetrics(out.PSD.Frequencies, psd)
	}

	mean, sem := stats.MeanSEM(out.AlphaPower)
	out.AlphaPowerMean, out.AlphaPowerSEM = common.Value(mean), common.Value(sem)
	mean, sem = stats.MeanSEM(out.PeakAlpha)
	out.PeakAlphaMean, out.PeakAlphaSEM = common.Value(mean), common.Value(sem)

	return out, nil
}

// GrandSummary is the single-cohort overview: grand-average ERP per channel,
// its z-scored form, spread across channels, channel PSD spread and channel
// alpha power sorted from strongest.
type GrandSummary struct {
	Label       string        `json:"label"`
	Channels    []string      `json:"channels"`
	SampleRate  int           `json:"sampling_rate_hz"`
	Times       []float64     `json:"times"`
	Grand       [][]float64   `json:"-"`
	ZScored     [][]float64   `json:"-"`
	ERP         cohort.Spread `json:"erp"`
	Frequencies common.Series `json:"frequencies"`
	PSD         cohort.Spread `json:"psd"`
	AlphaPower  common.Series `json:"alpha_power"`
	AlphaOrder  []int         `json:"alpha_order"`
}

// Summarise builds the GrandSummary of one cohort.
func Summarise(g *cohort.Group, segmentLength int) (*GrandSummary, error) {
	grand := cohort.GrandAverage(g)

	freqs, psds, err := NewSpectralEngine(segmentLength).ChannelPSD(grand, float64(g.SampleRate))
	if err != nil {
		return nil, err
	}
	power, order := ChannelAlphaPower(freqs, psds)

	return &GrandSummary{
		Label:       g.Label,
		Channels:    g.Channels,
		SampleRate:  g.SampleRate,
		Times:       g.Times(),
		Grand:       grand,
		ZScored:     cohort.ZScoreByChannel(grand),
		ERP:         cohort.MedianERP(grand),
		Frequencies: freqs,
		PSD:         cohort.NewSpread(psds),
		AlphaPower:  power,
		AlphaOrder:  order,
	}, nil
}
