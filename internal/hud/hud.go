// Package hud is the thread-safe handoff between the estimation
// pipeline and an external on-screen renderer. The pipeline publishes;
// the renderer (or the monitor's status endpoint) snapshots. No window
// management lives here.
package hud

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// Overlay colors, BGR.
var (
	labelColor  = [3]uint8{60, 255, 60}
	shadowColor = [3]uint8{0, 0, 0}
	quadColor   = [3]uint8{60, 220, 60}
)

const plotMargin = 8

// State carries the latest displayable artifacts across goroutines.
// The BPM value rides on atomics so the hot path never blocks the
// renderer; rasters are deep-copied under a mutex.
type State struct {
	bpmBits atomic.Uint64
	hasBPM  atomic.Bool
	debug   atomic.Bool

	mu       sync.Mutex
	frame    vision.Frame
	hasFrame bool
	roi      vision.Quad
	hasROI   bool
	pulse    vision.Frame
	spectrum vision.Frame
}

// NewState returns an empty State.
func NewState() *State {
	return &State{}
}

// PublishBPM records the most recent ready estimate. The value is held
// until replaced; staleness is the reader's concern.
func (s *State) PublishBPM(bpm float64) {
	s.bpmBits.Store(math.Float64bits(bpm))
	s.hasBPM.Store(true)
}

// LastBPM returns the most recently published estimate, false before
// the first one.
func (s *State) LastBPM() (float64, bool) {
	if !s.hasBPM.Load() {
		return 0, false
	}
	return math.Float64frombits(s.bpmBits.Load()), true
}

// PublishFrame deep-copies the display frame into the state.
func (s *State) PublishFrame(f vision.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = f.CopyInto(s.frame)
	s.hasFrame = !f.Empty()
}

// SnapshotFrame returns a copy of the last published frame, false
// before the first publish.
func (s *State) SnapshotFrame() (vision.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFrame {
		return vision.Frame{}, false
	}
	return s.frame.Clone(), true
}

// PublishROI records the stabilized region's source-space corners for
// overlay drawing.
func (s *State) PublishROI(q vision.Quad) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roi = q
	s.hasROI = true
}

// ClearROI removes the overlay, for frames where geometry failed.
func (s *State) ClearROI() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasROI = false
}

// PublishDebugPlots deep-copies the rendered pulse and spectrum plots.
func (s *State) PublishDebugPlots(pulse, spectrum vision.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulse = pulse.CopyInto(s.pulse)
	s.spectrum = spectrum.CopyInto(s.spectrum)
}

// SetDebugVisible toggles debug plot compositing.
func (s *State) SetDebugVisible(v bool) {
	s.debug.Store(v)
}

// DebugVisible reports whether debug plots are composited.
func (s *State) DebugVisible() bool {
	return s.debug.Load()
}

// ComposeFrame renders the full display frame: camera snapshot, BPM
// label, ROI outline, and (when debug is visible) the pulse plot
// bottom-left and the spectrum plot bottom-right, scaled to fit.
// Returns false before the first published frame.
func (s *State) ComposeFrame() (vision.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFrame {
		return vision.Frame{}, false
	}
	out := s.frame.Clone()

	if s.hasROI {
		out.DrawQuad(s.roi, quadColor[0], quadColor[1], quadColor[2])
	}

	label := "BPM: --"
	if s.hasBPM.Load() {
		label = fmt.Sprintf("BPM: %.1f", math.Float64frombits(s.bpmBits.Load()))
	}
	drawLabel(out, plotMargin, plotMargin, label)

	if s.debug.Load() {
		s.blitPlots(out)
	}
	return out, true
}

// blitPlots places the debug plots along the bottom edge. Each plot may
// use just under half the frame width and a third of its height; plots
// that cannot fit at a readable size are skipped. Caller holds mu.
func (s *State) blitPlots(out vision.Frame) {
	maxW := out.W/2 - 2*plotMargin
	maxH := out.H / 3
	if p := vision.ResizeToFit(s.pulse, maxW, maxH); !p.Empty() {
		out.Blit(p, plotMargin, out.H-p.H-plotMargin)
	}
	if p := vision.ResizeToFit(s.spectrum, maxW, maxH); !p.Empty() {
		out.Blit(p, out.W-p.W-plotMargin, out.H-p.H-plotMargin)
	}
}
