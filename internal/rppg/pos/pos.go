package pos

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/heartbeam-data/pulse.report/internal/rppg/window"
)

// Epsilon guards divisions against zero-mean channels and silent
// projections.
const Epsilon = 1e-6

// Extract recovers the pulse waveform from a window of color samples
// using the POS projection. The output has the same length and ordering
// (oldest to newest) as the input.
//
// Stages: per-channel temporal normalization, projection onto the two
// plane-orthogonal-to-skin axes, alpha-weighted recombination, mean
// removal, Hamming window.
func Extract(samples []window.ColorSample) ([]float64, error) {
	n := len(samples)
	if n < window.MinCapacity {
		return nil, fmt.Errorf("pos: need at least %d samples, got %d", window.MinCapacity, n)
	}

	b := make([]float64, n)
	g := make([]float64, n)
	r := make([]float64, n)
	for i, s := range samples {
		b[i] = s.B
		g[i] = s.G
		r[i] = s.R
	}
	normalize(b)
	normalize(g)
	normalize(r)

	// S1 = G - B, S2 = G + B - 2R.
	s1 := make([]float64, n)
	s2 := make([]float64, n)
	for i := 0; i < n; i++ {
		s1[i] = g[i] - b[i]
		s2[i] = g[i] + b[i] - 2*r[i]
	}

	alpha := stat.PopStdDev(s1, nil) / (stat.PopStdDev(s2, nil) + Epsilon)

	h := make([]float64, n)
	for i := 0; i < n; i++ {
		h[i] = s1[i] + alpha*s2[i]
	}

	floats.AddConst(-stat.Mean(h, nil), h)
	applyHamming(h)
	return h, nil
}

// normalize rescales a channel in place to v/(mean+eps) - 1.
func normalize(v []float64) {
	mean := stat.Mean(v, nil)
	scale := 1.0 / (mean + Epsilon)
	for i := range v {
		v[i] = v[i]*scale - 1
	}
}

// applyHamming multiplies the signal by the Hamming taper
// 0.54 - 0.46*cos(2*pi*i/(N-1)).
func applyHamming(v []float64) {
	n := len(v)
	if n < 2 {
		return
	}
	for i := range v {
		v[i] *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
}
