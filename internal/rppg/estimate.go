package rppg

import (
	"fmt"

	"github.com/heartbeam-data/pulse.report/internal/rppg/spectral"
)

// EstimateState tags a BPMEstimate with its outcome.
type EstimateState int

const (
	// StateBuffering means the temporal window is not yet full; the
	// Filled and Capacity fields report progress.
	StateBuffering EstimateState = iota
	// StateNoiseFloor means the window is full but no strictly positive
	// in-band spectral peak was found.
	StateNoiseFloor
	// StateReady means BPM holds a valid estimate.
	StateReady
)

func (s EstimateState) String() string {
	switch s {
	case StateBuffering:
		return "buffering"
	case StateNoiseFloor:
		return "noise-floor"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("EstimateState(%d)", int(s))
	}
}

// BPMEstimate is the tagged per-window estimation result.
type BPMEstimate struct {
	State EstimateState

	// BPM is valid only when State == StateReady.
	BPM float64

	// Window fill progress, always populated.
	Filled   int
	Capacity int

	// Spectral detail, populated when State == StateReady.
	PeakBin       int
	PeakMagnitude float64

	// Debug diagnostics, populated only when estimation ran in debug
	// mode and a peak was found.
	TopPeaks  []spectral.Peak
	PeakRatio float64
	PeakGapDB float64
}

// Ready reports whether the estimate carries a usable BPM.
func (e BPMEstimate) Ready() bool {
	return e.State == StateReady
}

func (e BPMEstimate) String() string {
	switch e.State {
	case StateReady:
		return fmt.Sprintf("%.1f bpm", e.BPM)
	case StateBuffering:
		return fmt.Sprintf("buffering %d/%d", e.Filled, e.Capacity)
	default:
		return e.State.String()
	}
}
