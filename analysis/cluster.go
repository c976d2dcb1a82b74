package analysis

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/rdstat/algorithms/common"
	"github.com/RyanBlaney/rdstat/algorithms/stats"
	"github.com/RyanBlaney/rdstat/cohort"
	"github.com/RyanBlaney/rdstat/internal/errors"
	"github.com/RyanBlaney/rdstat/logging"
)

// ClusterOptions configures the permutation test.
type ClusterOptions struct {
	Permutations int     `json:"permutations"`
	PThreshold   float64 `json:"p_threshold"` // two-sided, forms clusters
	Seed         int64   `json:"seed"`
	Workers      int     `json:"workers"` // channels tested at once, 0 means GOMAXPROCS
}

// DefaultClusterOptions returns 1000 permutations at p < 0.05 with seed 1.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		Permutations: 1000,
		PThreshold:   0.05,
		Seed:         1,
	}
}

func (o ClusterOptions) validate() error {
	if o.Permutations < 0 {
		return errors.InvalidInput(fmt.Sprintf("permutations must not be negative, got %d", o.Permutations))
	}
	if o.PThreshold <= 0 || o.PThreshold >= 1 {
		return errors.InvalidInput(fmt.Sprintf("p threshold must be in (0, 1), got %g", o.PThreshold))
	}
	return nil
}

// Cluster is a maximal run [Start, End) of timepoints whose |t| exceeds the
// critical value on one channel.
type Cluster struct {
	Start  int     `json:"start"`
	End    int     `json:"end"` // exclusive
	Mass   float64 `json:"mass"`
	PValue float64 `json:"p_value"`
}

// Len returns the number of timepoints in the cluster.
func (c Cluster) Len() int {
	return c.End - c.Start
}

// ChannelResult is the outcome of the test on one channel.
type ChannelResult struct {
	Channel  string    `json:"channel"`
	Index    int       `json:"index"`
	Clusters []Cluster `json:"clusters"`

	// Statistics is the observed Welch t at every timepoint, 0 where degenerate.
	Statistics []float64 `json:"statistics"`

	// DegenerateTimepoints counts timepoints where a side had fewer than two
	// valid values or the standard error was zero.
	DegenerateTimepoints int `json:"degenerate_timepoints"`

	// NullMaxima holds the largest cluster mass of every permutation. Empty
	// when no cluster was observed, since the null is then never built.
	NullMaxima []float64 `json:"-"`
}

// ClusterReport collects every channel's result.
type ClusterReport struct {
	CriticalValue    common.Value    `json:"critical_value"`
	DegreesOfFreedom int             `json:"degrees_of_freedom"`
	Options          ClusterOptions  `json:"options"`
	Channels         []ChannelResult `json:"channels"`
}

// SignificantCluster is a cluster tagged with its channel.
type SignificantCluster struct {
	Channel string `json:"channel"`
	Index   int    `json:"index"`
	Cluster
}

// Significant lists clusters with p below alpha, by channel then time.
func (r *ClusterReport) Significant(alpha float64) []SignificantCluster {
	var out []SignificantCluster
	for _, ch := range r.Channels {
		for _, c := range ch.Clusters {
			if c.PValue < alpha {
				out = append(out, SignificantCluster{Channel: ch.Channel, Index: ch.Index, Cluster: c})
			}
		}
	}
	return out
}

// SignificantMask marks every timepoint covered by a significant cluster on
// any channel.
func (r *ClusterReport) SignificantMask(alpha float64, n int) []bool {
	mask := make([]bool, n)
	for _, sc := range r.Significant(alpha) {
		for t := sc.Start; t < sc.End && t < n; t++ {
			mask[t] = true
		}
	}
	return mask
}

// ClusterTester runs a cluster-mass permutation test over time, independently
// per channel.
//
// For every timepoint the Welch t statistic compares the cohorts after dropping
// missing values. Runs of |t| above the critical value of Student's t with
// n1+n2-2 degrees of freedom form clusters whose mass is the sum of |t|. The
// null distribution is the maximum cluster mass over the whole time axis for
// random relabellings that keep the cohort sizes, so
//
//	p = (#{null >= mass} + 1) / (permutations + 1)
//
// Each channel draws from its own generator seeded from (Seed, channel index),
// so results do not depend on how channels are scheduled.
type ClusterTester struct {
	opts   ClusterOptions
	logger logging.Logger
}

// NewClusterTester creates a tester
func NewClusterTester(opts ClusterOptions) *ClusterTester {
	return &ClusterTester{
		opts:   opts,
		logger: logging.WithFields(logging.Fields{"component": "cluster_tester"}),
	}
}

// ClusterTest compares a and b with opts.
func ClusterTest(ctx context.Context, a, b *cohort.Group, opts ClusterOptions) (*ClusterReport, error) {
	return NewClusterTester(opts).Test(ctx, a, b)
}

// Test runs the permutation test on every channel.
func (ct *ClusterTester) Test(ctx context.Context, a, b *cohort.Group) (*ClusterReport, error) {
	if err := ct.opts.validate(); err != nil {
		return nil, err
	}
	if err := cohort.CheckCompatible(a, b); err != nil {
		return nil, err
	}

	n1, n2 := a.SubjectCount(), b.SubjectCount()
	df := n1 + n2 - 2
	tcrit, err := criticalValue(ct.opts.PThreshold, df)
	if err != nil {
		return nil, err
	}

	report := &ClusterReport{
		CriticalValue:    common.Value(tcrit),
		DegreesOfFreedom: df,
		Options:          ct.opts,
		Channels:         make([]ChannelResult, a.ChannelCount()),
	}

	workers := ct.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for ch := range a.ChannelCount() {
		eg.Go(func() error {
			rng := rand.New(rand.NewSource(channelSeed(ct.opts.Seed, ch)))
			res, err := TestChannel(egCtx, a.ChannelData(ch), b.ChannelData(ch), tcrit, ct.opts.Permutations, rng)
			if err != nil {
				return err
			}
			res.Channel = a.Channels[ch]
			res.Index = ch
			report.Channels[ch] = *res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	clusters, degenerate := 0, 0
	for _, r := range report.Channels {
		clusters += len(r.Clusters)
		degenerate += r.DegenerateTimepoints
	}
	ct.logger.WithContext(ctx).Debug("cluster test finished", logging.Fields{
		"channels":              len(report.Channels),
		"clusters":              clusters,
		"degenerate_timepoints": degenerate,
		"critical_value":        tcrit,
	})

	return report, nil
}

// criticalValue is +Inf when there are no degrees of freedom, which forms no clusters.
func criticalValue(p float64, df int) (float64, error) {
	if df < 1 {
		return math.Inf(1), nil
	}
	return stats.CriticalT(p, df)
}

func channelSeed(seed int64, ch int) int64 {
	return seed*1_000_003 + int64(ch)
}

// TestChannel runs the test for one channel given each cohort as
// [subject][sample]. rng supplies the label permutations.
func TestChannel(ctx context.Context, a, b [][]float64, tcrit float64, permutations int, rng *rand.Rand) (*ChannelResult, error) {
	n1, n2 := len(a), len(b)
	subjects := make([][]float64, 0, n1+n2)
	subjects = append(subjects, a...)
	subjects = append(subjects, b...)

	nT := 0
	if len(subjects) > 0 {
		nT = len(subjects[0])
	}

	w := newWelchWorkspace(n1 + n2)
	groupA := make([]int, n1)
	groupB := make([]int, n2)
	for i := range groupA {
		groupA[i] = i
	}
	for i := range groupB {
		groupB[i] = n1 + i
	}

	res := &ChannelResult{Statistics: make([]float64, nT)}
	res.DegenerateTimepoints = w.statistics(subjects, groupA, groupB, res.Statistics)
	res.Clusters = findClusters(res.Statistics, tcrit)

	if len(res.Clusters) == 0 {
		return res, nil
	}

	labels := make([]int, n1+n2)
	for i := range labels {
		labels[i] = i
	}
	tperm := make([]float64, nT)
	res.NullMaxima = make([]float64, permutations)

	for p := range permutations {
		if p%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rng.Shuffle(len(labels), func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })
		w.statistics(subjects, labels[:n1], labels[n1:], tperm)
		res.NullMaxima[p] = maxClusterMass(tperm, tcrit)
	}

	for i := range res.Clusters {
		count := 0
		for _, m := range res.NullMaxima {
			if m >= res.Clusters[i].Mass {
				count++
			}
		}
		res.Clusters[i].PValue = float64(count+1) / float64(permutations+1)
	}

	return res, nil
}

// welchWorkspace reuses gather buffers across timepoints and permutations.
type welchWorkspace struct {
	x, y []float64
}

func newWelchWorkspace(n int) *welchWorkspace {
	return &welchWorkspace{
		x: make([]float64, 0, n),
		y: make([]float64, 0, n),
	}
}

// statistics fills out with the Welch t of rows idxA against rows idxB at every
// timepoint and returns how many timepoints were degenerate.
func (w *welchWorkspace) statistics(subjects [][]float64, idxA, idxB []int, out []float64) int {
	degenerate := 0
	for t := range out {
		w.x = gatherFinite(w.x[:0], subjects, idxA, t)
		w.y = gatherFinite(w.y[:0], subjects, idxB, t)

		// Zero-variance timepoints with different means score 0, so they never
		// join a cluster. scipy would score them ±Inf and open a cluster there.
		r := stats.WelchTFinite(w.x, w.y)
		out[t] = r.Statistic
		if r.Degenerate {
			degenerate++
		}
	}
	return degenerate
}

func gatherFinite(dst []float64, subjects [][]float64, idx []int, t int) []float64 {
	for _, s := range idx {
		if v := subjects[s][t]; !math.IsNaN(v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// findClusters returns the maximal runs of |t| > tcrit in time order.
func findClusters(tvals []float64, tcrit float64) []Cluster {
	var clusters []Cluster
	for i := 0; i < len(tvals); {
		if math.Abs(tvals[i]) <= tcrit {
			i++
			continue
		}
		start := i
		mass := 0.0
		for i < len(tvals) && math.Abs(tvals[i]) > tcrit {
			mass += math.Abs(tvals[i])
			i++
		}
		clusters = append(clusters, Cluster{Start: start, End: i, Mass: mass})
	}
	return clusters
}

// maxClusterMass is the largest cluster mass in tvals, 0 when none forms.
func maxClusterMass(tvals []float64, tcrit float64) float64 {
	best, run := 0.0, 0.0
	for _, v := range tvals {
		if a := math.Abs(v); a > tcrit {
			run += a
			continue
		}
		best = max(best, run)
		run = 0
	}
	return max(best, run)
}
