package rppg

import (
	"errors"
	"fmt"

	"github.com/heartbeam-data/pulse.report/internal/rppg/pos"
	"github.com/heartbeam-data/pulse.report/internal/rppg/spectral"
	"github.com/heartbeam-data/pulse.report/internal/rppg/window"
)

// Tuning defaults, mirrored by the config accessors.
const (
	DefaultWindowSeconds = 8.5
	DefaultFPS           = 30.0
	DefaultMinBPM        = 45.0
	DefaultMaxBPM        = 180.0
)

// Analyzer accumulates color samples and estimates heart rate over the
// windowed signal. It composes the temporal window, POS pulse
// extraction and spectral peak search behind a two-call surface:
// AddSample per frame, CalculateBPM whenever an estimate is wanted.
//
// Not safe for concurrent use; the pipeline owns one per stream.
type Analyzer struct {
	win *window.TemporalWindow
	est *spectral.Estimator
	fps float64

	// Signals retained from the last debug-mode estimate, for the HUD
	// plot renderer.
	debugPulse []float64
	debugMags  []float64
}

// NewAnalyzer sizes the temporal window from the acquisition geometry.
// Non-positive arguments fall back to the tuning defaults.
func NewAnalyzer(windowSeconds, fps float64) *Analyzer {
	if windowSeconds <= 0 {
		windowSeconds = DefaultWindowSeconds
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Analyzer{
		win: window.NewTemporalWindow(window.CapacityFor(windowSeconds, fps)),
		est: spectral.NewEstimator(),
		fps: fps,
	}
}

// AddSample appends one frame's mean color to the temporal window,
// evicting the oldest sample once the window is full.
func (a *Analyzer) AddSample(s window.ColorSample) {
	a.win.Add(s)
}

// CalculateBPM estimates heart rate over the current window.
//
// While the window is short the estimate reports StateBuffering with
// fill progress. A full window runs POS extraction and the spectral
// peak search; a silent spectrum maps to StateNoiseFloor. Errors are
// reserved for genuine failures (invalid band arguments), not for the
// buffering and noise-floor outcomes, which are ordinary states.
func (a *Analyzer) CalculateBPM(minBPM, maxBPM float64, debug bool) (BPMEstimate, error) {
	filled, capacity := a.win.Len(), a.win.Cap()
	if !a.win.Full() {
		return BPMEstimate{State: StateBuffering, Filled: filled, Capacity: capacity}, nil
	}

	pulse, err := pos.Extract(a.win.Samples())
	if err != nil {
		return BPMEstimate{}, fmt.Errorf("extracting pulse: %w", err)
	}

	res, err := a.est.Estimate(pulse, a.fps, minBPM, maxBPM, debug)
	if debug {
		a.debugPulse = pulse
		a.debugMags = res.Magnitudes
	}
	if err != nil {
		if errors.Is(err, spectral.ErrNoiseFloor) {
			return BPMEstimate{State: StateNoiseFloor, Filled: filled, Capacity: capacity}, nil
		}
		return BPMEstimate{}, fmt.Errorf("estimating spectrum: %w", err)
	}

	est := BPMEstimate{
		State:         StateReady,
		BPM:           res.BPM,
		Filled:        filled,
		Capacity:      capacity,
		PeakBin:       res.PeakBin,
		PeakMagnitude: res.PeakMagnitude,
	}
	if debug {
		est.TopPeaks = res.TopPeaks
		est.PeakRatio = res.PeakRatio
		est.PeakGapDB = res.PeakGapDB
	}
	return est, nil
}

// DebugSignals returns the pulse waveform and spectrum magnitudes from
// the most recent debug-mode estimate. ok is false until one has run.
// The slices are owned by the analyzer and valid until the next
// debug-mode CalculateBPM.
func (a *Analyzer) DebugSignals() (pulse, magnitudes []float64, ok bool) {
	if a.debugPulse == nil {
		return nil, nil, false
	}
	return a.debugPulse, a.debugMags, true
}

// Reset discards all window contents and retained debug signals.
func (a *Analyzer) Reset() {
	a.win.Reset()
	a.debugPulse = nil
	a.debugMags = nil
}

// WindowLen reports how many samples the window currently holds.
func (a *Analyzer) WindowLen() int { return a.win.Len() }

// WindowCap reports the window capacity.
func (a *Analyzer) WindowCap() int { return a.win.Cap() }

// FPS reports the acquisition rate the analyzer was sized for.
func (a *Analyzer) FPS() float64 { return a.fps }
