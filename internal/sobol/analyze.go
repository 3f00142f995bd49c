// Package sobol estimates variance-based sensitivity indices from a
// Saltelli-sampled experiment: first-order and total-order indices per
// parameter, optional second-order interactions, and bootstrap confidence
// half-widths over the base sample points.
package sobol

import (
	"fmt"
	"math"
	"math/rand/v2"

	"episens/domain/core"
	"episens/domain/design"
	"episens/domain/experiment"

	"gonum.org/v1/gonum/stat"
)

// Options tunes the estimator
type Options struct {
	// Bootstrap is the number of resamples behind the confidence
	// half-widths.
	Bootstrap int
	// Confidence is the two-sided confidence level (default 0.95).
	Confidence float64
	// Seed drives the bootstrap resampler.
	Seed int64
}

// DefaultOptions returns the analyzer defaults
func DefaultOptions() *Options {
	return &Options{Bootstrap: 1000, Confidence: 0.95, Seed: 1}
}

// blocks is the sample matrix output decomposed back into the Saltelli
// layout: yA[j], yB[j] and the cross-matrix evaluations yAB[i][j]
// (and yBA[i][j] for second-order designs).
type blocks struct {
	yA  []float64
	yB  []float64
	yAB [][]float64
	yBA [][]float64
}

// Analyze computes the sensitivity report for one outcome's aggregated
// values. The values must be in sample-matrix row order and of exactly the
// matrix's length; any mismatch fails loudly rather than truncating,
// because positional coupling is the pipeline's core invariant.
func Analyze(space *design.Space, m *experiment.SampleMatrix, values []float64, outcome string, sel experiment.TimeSelection, secondOrder bool, opts *Options) (*experiment.SensitivityReport, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if len(space.Sampled) != len(m.Parameters) {
		return nil, core.NewInvalidDesignSpaceError(fmt.Sprintf(
			"design space has %d sampled parameters, matrix has %d", len(space.Sampled), len(m.Parameters)))
	}
	if secondOrder != m.SecondOrder {
		return nil, core.NewSchemeMismatchError(m.SecondOrder, secondOrder)
	}
	if len(values) != m.Len() {
		return nil, core.NewSampleAlignmentError(m.Len(), len(values))
	}

	p := len(m.Parameters)
	n := m.BaseSize

	norm := normalize(values)
	blk := split(norm, n, p, secondOrder)

	report := &experiment.SensitivityReport{
		ID:          core.ReportID(core.NewID()),
		Outcome:     outcome,
		Time:        sel,
		Parameters:  make([]experiment.ParameterSensitivity, p),
		BaseSize:    n,
		SampleCount: m.Len(),
		Bootstrap:   opts.Bootstrap,
		CreatedAt:   core.Now(),
	}

	all := append(append([]float64{}, blk.yA...), blk.yB...)
	variance := stat.Variance(all, nil)
	idx := identity(n)

	for i := 0; i < p; i++ {
		s1 := firstOrder(blk, i, idx, variance)
		st := totalOrder(blk, i, idx, variance)
		s1conf, stconf := bootstrapConf(blk, i, variance, opts)
		report.Parameters[i] = experiment.ParameterSensitivity{
			Name:   m.Parameters[i],
			S1:     s1,
			S1Conf: s1conf,
			ST:     st,
			STConf: stconf,
		}
	}

	if secondOrder {
		report.SecondOrder = secondOrderMatrix(blk, idx, variance, report.Parameters)
	}
	return report, nil
}

// normalize centers and scales values by the full-sample standard
// deviation, the convention of the Saltelli estimator. Zero-variance
// output normalizes to all zeros: there is no variance to attribute.
func normalize(values []float64) []float64 {
	mean, std := stat.MeanStdDev(values, nil)
	out := make([]float64, len(values))
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}

// split decomposes row-ordered values back into Saltelli blocks
func split(values []float64, n, p int, secondOrder bool) *blocks {
	stride := p + 2
	if secondOrder {
		stride = 2*p + 2
	}

	blk := &blocks{
		yA:  make([]float64, n),
		yB:  make([]float64, n),
		yAB: makeGrid(p, n),
	}
	if secondOrder {
		blk.yBA = makeGrid(p, n)
	}

	for j := 0; j < n; j++ {
		base := j * stride
		blk.yA[j] = values[base]
		for i := 0; i < p; i++ {
			blk.yAB[i][j] = values[base+1+i]
		}
		if secondOrder {
			for i := 0; i < p; i++ {
				blk.yBA[i][j] = values[base+1+p+i]
			}
		}
		blk.yB[j] = values[base+stride-1]
	}
	return blk
}

func makeGrid(p, n int) [][]float64 {
	grid := make([][]float64, p)
	for i := range grid {
		grid[i] = make([]float64, n)
	}
	return grid
}

func identity(n int) []int {
	idx := make([]int, n)
	for j := range idx {
		idx[j] = j
	}
	return idx
}

// firstOrder is the Saltelli 2010 estimator S1_i = E[yB*(yAB_i - yA)] / V
func firstOrder(blk *blocks, i int, idx []int, variance float64) float64 {
	if variance == 0 {
		return 0
	}
	sum := 0.0
	for _, j := range idx {
		sum += blk.yB[j] * (blk.yAB[i][j] - blk.yA[j])
	}
	return sum / (float64(len(idx)) * variance)
}

// totalOrder is the Jansen estimator ST_i = E[(yA - yAB_i)^2] / (2V)
func totalOrder(blk *blocks, i int, idx []int, variance float64) float64 {
	if variance == 0 {
		return 0
	}
	sum := 0.0
	for _, j := range idx {
		d := blk.yA[j] - blk.yAB[i][j]
		sum += d * d
	}
	return sum / (2 * float64(len(idx)) * variance)
}

// secondOrderIndex estimates S2_ij from the radial BA block
func secondOrderIndex(blk *blocks, i, k int, idx []int, variance float64, s1i, s1k float64) float64 {
	if variance == 0 {
		return 0
	}
	sum := 0.0
	for _, j := range idx {
		sum += blk.yBA[i][j]*blk.yAB[k][j] - blk.yA[j]*blk.yB[j]
	}
	vij := sum / (float64(len(idx)) * variance)
	return vij - s1i - s1k
}

func secondOrderMatrix(blk *blocks, idx []int, variance float64, params []experiment.ParameterSensitivity) [][]float64 {
	p := len(params)
	s2 := makeGrid(p, p)
	for i := 0; i < p; i++ {
		for k := i + 1; k < p; k++ {
			v := secondOrderIndex(blk, i, k, idx, variance, params[i].S1, params[k].S1)
			s2[i][k] = v
			s2[k][i] = v
		}
	}
	return s2
}

// bootstrapConf estimates confidence half-widths by resampling the n base
// points with replacement and taking z * std of the index distribution.
func bootstrapConf(blk *blocks, i int, variance float64, opts *Options) (s1conf, stconf float64) {
	if opts.Bootstrap < 2 || variance == 0 {
		return 0, 0
	}
	n := len(blk.yA)
	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(i)+1))

	s1s := make([]float64, opts.Bootstrap)
	sts := make([]float64, opts.Bootstrap)
	idx := make([]int, n)
	for b := 0; b < opts.Bootstrap; b++ {
		for j := range idx {
			idx[j] = rng.IntN(n)
		}
		s1s[b] = firstOrder(blk, i, idx, variance)
		sts[b] = totalOrder(blk, i, idx, variance)
	}

	z := zScore(opts.Confidence)
	return z * stat.StdDev(s1s, nil), z * stat.StdDev(sts, nil)
}

// zScore maps the common confidence levels to their normal quantile;
// anything else falls back to 95%.
func zScore(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.5758
	case confidence >= 0.975:
		return 2.2414
	case confidence >= 0.95:
		return 1.9600
	case confidence >= 0.90:
		return 1.6449
	default:
		return 1.9600
	}
}
