package spectral

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/heartbeam-data/pulse.report/internal/units"
)

// ErrNoiseFloor is the defined estimation failure: no bin in the
// scanned band rises above the noise floor, so there is no pulse peak
// to report. Callers treat it as a normal outcome.
var ErrNoiseFloor = errors.New("no spectral peak above noise floor")

// TopPeakCount is how many ranked peaks the debug diagnostics carry.
const TopPeakCount = 3

// relativeFloor separates genuine spectral lines from round-off. A bin
// counts as silent unless it exceeds this fraction of the spectrum's
// own maximum, so an all-zero window and pure out-of-band leakage both
// read as silence.
const relativeFloor = 1e-9

// ratioEpsilon guards the peak-ratio division when the runner-up
// magnitude underflows.
const ratioEpsilon = 1e-12

// Peak is one ranked spectral line.
type Peak struct {
	Bin       int     // DFT bin index
	BPM       float64 // bin centre converted to beats per minute
	Magnitude float64
}

// Result is a successful spectral estimate.
type Result struct {
	BPM           float64
	PeakBin       int
	PeakMagnitude float64
	LowBin        int // first scanned bin
	HighBin       int // last scanned bin

	// Debug diagnostics; populated only when requested.
	TopPeaks   []Peak
	PeakRatio  float64   // top magnitude over runner-up
	PeakGapDB  float64   // the same gap in decibels
	Magnitudes []float64 // full half-spectrum, for plot rendering
}

// Estimator computes band-limited spectral peaks over pulse waveforms.
// The FFT plan is cached per signal length; the window length is fixed
// at runtime so in practice one plan is built per session.
type Estimator struct {
	fft *fourier.FFT
	n   int
}

// NewEstimator creates an Estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate locates the dominant in-band frequency of the signal.
//
// The band [minBPM, maxBPM] is converted to Hz, clamped to [0, fps/2],
// and mapped to bin indices low = floor(minHz*N/fps), high =
// ceil(maxHz*N/fps), both clamped into [1, floor(N/2)-1] so DC is
// never scanned. The peak must rise above the noise floor (strictly
// positive, and above relativeFloor of the spectrum maximum);
// otherwise the estimate fails with ErrNoiseFloor.
func (e *Estimator) Estimate(signal []float64, fps, minBPM, maxBPM float64, debug bool) (Result, error) {
	n := len(signal)
	if n < 2 {
		return Result{}, fmt.Errorf("spectral: need at least 2 samples, got %d", n)
	}
	if fps <= 0 {
		return Result{}, fmt.Errorf("spectral: fps must be positive, got %v", fps)
	}

	if e.fft == nil || e.n != n {
		e.fft = fourier.NewFFT(n)
		e.n = n
	}
	coeffs := e.fft.Coefficients(nil, signal)

	half := n / 2
	mags := make([]float64, half)
	for i := 0; i < half; i++ {
		mags[i] = cmplx.Abs(coeffs[i])
	}

	minHz := units.ClampHz(units.BPMToHz(minBPM), fps)
	maxHz := units.ClampHz(units.BPMToHz(maxBPM), fps)
	low := clampBin(units.LowBin(minHz, fps, n), 1, half-1)
	high := clampBin(units.HighBin(maxHz, fps, n), 1, half-1)

	res := Result{LowBin: low, HighBin: high}

	silence := 0.0
	for _, m := range mags {
		if m > silence {
			silence = m
		}
	}
	silence *= relativeFloor

	peakBin := -1
	peakMag := 0.0
	for i := low; i <= high; i++ {
		if mags[i] > peakMag {
			peakMag = mags[i]
			peakBin = i
		}
	}
	if peakBin < 1 || peakMag <= silence {
		if debug {
			res.Magnitudes = mags
		}
		return res, ErrNoiseFloor
	}

	res.PeakBin = peakBin
	res.PeakMagnitude = peakMag
	res.BPM = units.BinToBPM(peakBin, fps, n)

	if debug {
		res.TopPeaks = rankPeaks(mags, low, high, fps, n)
		if len(res.TopPeaks) >= 2 {
			res.PeakRatio = res.TopPeaks[0].Magnitude / (res.TopPeaks[1].Magnitude + ratioEpsilon)
			res.PeakGapDB = 20 * math.Log10(res.PeakRatio)
		}
		res.Magnitudes = mags
	}
	return res, nil
}

// rankPeaks returns up to TopPeakCount in-band bins ordered by strictly
// descending magnitude. Equal magnitudes keep the earlier (lower) bin.
func rankPeaks(mags []float64, low, high int, fps float64, n int) []Peak {
	top := make([]Peak, 0, TopPeakCount)
	for i := low; i <= high; i++ {
		m := mags[i]
		if m <= 0 {
			continue
		}
		pos := len(top)
		for pos > 0 && m > top[pos-1].Magnitude {
			pos--
		}
		if pos >= TopPeakCount {
			continue
		}
		p := Peak{Bin: i, BPM: units.BinToBPM(i, fps, n), Magnitude: m}
		if len(top) < TopPeakCount {
			top = append(top, Peak{})
		}
		copy(top[pos+1:], top[pos:])
		top[pos] = p
	}
	return top
}

func clampBin(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
