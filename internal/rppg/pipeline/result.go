package pipeline

import (
	"fmt"
	"time"

	"github.com/heartbeam-data/pulse.report/internal/rppg"
	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// Outcome classifies what happened to one frame. NoFace and
// GeometryFailure are ordinary per-frame results, not errors.
type Outcome int

const (
	// NoFace means the detector reported no landmark set this frame.
	NoFace Outcome = iota
	// GeometryFailure means the stabilizer could not derive a usable
	// region from the landmarks (degenerate anchors, off-frame box).
	GeometryFailure
	// SampleAdded means a color sample entered the temporal window and
	// an estimate was computed.
	SampleAdded
)

func (o Outcome) String() string {
	switch o {
	case NoFace:
		return "no-face"
	case GeometryFailure:
		return "geometry-failure"
	case SampleAdded:
		return "sample-added"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// StageTimings carries per-frame stage durations, recorded only while
// debug mode is active.
type StageTimings struct {
	Stabilize time.Duration
	Sample    time.Duration
	Analyze   time.Duration
}

// FrameResult is the complete outcome of processing one frame.
type FrameResult struct {
	Outcome Outcome

	// Estimate is valid when Outcome == SampleAdded.
	Estimate rppg.BPMEstimate

	// ROI holds the stabilized region's source-space corners, valid
	// whenever geometry succeeded.
	ROI vision.Quad

	// Err carries the stabilizer cause for GeometryFailure.
	Err error

	// Timings is populated while debug mode is active.
	Timings StageTimings
}
