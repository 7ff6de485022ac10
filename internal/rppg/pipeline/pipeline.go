// Package pipeline composes the per-frame estimation path: stabilize,
// sample, window, estimate. It owns the outcome counters surfaced on
// the monitor and fans results out to optional sinks (HUD state,
// reading store, reference comparator). ProcessFrame runs synchronously
// on the caller's goroutine; only the counters are shared.
package pipeline

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/heartbeam-data/pulse.report/internal/monitoring"
	"github.com/heartbeam-data/pulse.report/internal/rppg"
	"github.com/heartbeam-data/pulse.report/internal/rppg/landmarks"
	"github.com/heartbeam-data/pulse.report/internal/rppg/plot"
	"github.com/heartbeam-data/pulse.report/internal/rppg/spectral"
	"github.com/heartbeam-data/pulse.report/internal/rppg/stabilize"
	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// timingDiagEvery is how many debug-mode samples accumulate between
// stage-timing diag lines.
const timingDiagEvery = 100

// HUDPublisher receives display artifacts. *hud.State satisfies it.
type HUDPublisher interface {
	PublishBPM(float64)
	PublishFrame(vision.Frame)
	PublishROI(vision.Quad)
	ClearROI()
	PublishDebugPlots(pulse, spectrum vision.Frame)
	SetDebugVisible(bool)
}

// ReadingSink persists non-buffering estimates. The root app adapts the
// sqlite store (which needs a session ID) to this shape.
type ReadingSink interface {
	RecordEstimate(ts time.Time, est rppg.BPMEstimate) error
}

// EstimateObserver sees every ready estimate. Satisfied by the
// reference comparator.
type EstimateObserver interface {
	ObserveEstimate(ts time.Time, bpm float64)
}

// isNilInterface checks if an interface value is nil or contains a nil
// pointer, the usual Go interface nil pitfall with optional sinks.
func isNilInterface(i interface{}) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Config holds dependencies for the estimation pipeline.
type Config struct {
	Stabilizer *stabilize.Stabilizer // nil: default 60x45 geometry
	Analyzer   *rppg.Analyzer        // nil: default window (8.5 s, 30 fps)

	// Estimation band in beats per minute. Zero values take the tuning
	// defaults.
	MinBPM float64
	MaxBPM float64

	// Debug plot raster size. Zero values take the plot defaults.
	PlotWidth  int
	PlotHeight int

	HUD      HUDPublisher     // optional
	Store    ReadingSink      // optional
	Observer EstimateObserver // optional
}

// Pipeline is the synchronous per-frame estimation core. Counters and
// the debug flag ride on atomics so monitor snapshots never contend
// with frame processing; everything else belongs to the processing
// goroutine.
type Pipeline struct {
	cfg  Config
	stab *stabilize.Stabilizer
	an   *rppg.Analyzer

	debug atomic.Bool

	frames      atomic.Uint64
	noFace      atomic.Uint64
	geomFail    atomic.Uint64
	samples     atomic.Uint64
	buffering   atomic.Uint64
	ready       atomic.Uint64
	noiseFloor  atomic.Uint64
	windowFill  atomic.Int64
	lastState   atomic.Int32
	lastBPMBits atomic.Uint64
	hasBPM      atomic.Bool

	// Debug-mode stage timing aggregates, microseconds. Owned by the
	// processing goroutine.
	stabStats    rppg.RunningStats
	sampleStats  rppg.RunningStats
	analyzeStats rppg.RunningStats
}

// New wires a Pipeline, filling defaults for any component left unset.
func New(cfg Config) *Pipeline {
	if cfg.Stabilizer == nil {
		cfg.Stabilizer = stabilize.NewStabilizer(stabilize.DefaultConfig())
	}
	if cfg.Analyzer == nil {
		cfg.Analyzer = rppg.NewAnalyzer(0, 0)
	}
	if cfg.MinBPM <= 0 {
		cfg.MinBPM = rppg.DefaultMinBPM
	}
	if cfg.MaxBPM <= 0 {
		cfg.MaxBPM = rppg.DefaultMaxBPM
	}
	if cfg.PlotWidth <= 0 {
		cfg.PlotWidth = plot.DefaultWidth
	}
	if cfg.PlotHeight <= 0 {
		cfg.PlotHeight = plot.DefaultHeight
	}
	return &Pipeline{cfg: cfg, stab: cfg.Stabilizer, an: cfg.Analyzer}
}

// SetDebug flips debug mode: verbose package logging, stage timings,
// spectral diagnostics and HUD plot compositing.
func (p *Pipeline) SetDebug(v bool) {
	p.debug.Store(v)
	monitoring.SetDebug(v)
	if !isNilInterface(p.cfg.HUD) {
		p.cfg.HUD.SetDebugVisible(v)
	}
	state := "off"
	if v {
		state = "on"
	}
	opsf("debug mode %s", state)
}

// Debug reports whether debug mode is active.
func (p *Pipeline) Debug() bool {
	return p.debug.Load()
}

// ProcessFrame runs one frame through the estimation path.
//
// A nil landmark set is the normal "no face" outcome. Stabilizer
// failures are likewise counted, not raised. Otherwise the mean ROI
// color enters the temporal window and an estimate is computed and
// fanned out to the configured sinks.
func (p *Pipeline) ProcessFrame(frame vision.Frame, lm *landmarks.Set) FrameResult {
	p.frames.Add(1)
	debug := p.debug.Load()
	hud := !isNilInterface(p.cfg.HUD)

	if hud {
		p.cfg.HUD.PublishFrame(frame)
	}

	if lm == nil {
		p.noFace.Add(1)
		if hud {
			p.cfg.HUD.ClearROI()
		}
		tracef("frame %d: no face", p.frames.Load())
		return FrameResult{Outcome: NoFace}
	}

	var timings StageTimings
	start := time.Now()
	roi, quad, err := p.stab.Stabilize(frame, *lm)
	if debug {
		timings.Stabilize = time.Since(start)
	}
	if err != nil {
		p.geomFail.Add(1)
		if hud {
			p.cfg.HUD.ClearROI()
		}
		tracef("frame %d: %v", p.frames.Load(), err)
		return FrameResult{Outcome: GeometryFailure, Err: err, Timings: timings}
	}
	if hud {
		p.cfg.HUD.PublishROI(quad)
	}

	start = time.Now()
	sample, err := rppg.MeanBGR(roi)
	if debug {
		timings.Sample = time.Since(start)
	}
	if err != nil {
		p.geomFail.Add(1)
		opsf("frame %d: sampling failed: %v", p.frames.Load(), err)
		return FrameResult{Outcome: GeometryFailure, Err: fmt.Errorf("sampling roi: %w", err), Timings: timings}
	}

	p.an.AddSample(sample)
	p.samples.Add(1)
	p.windowFill.Store(int64(p.an.WindowLen()))

	start = time.Now()
	est, err := p.an.CalculateBPM(p.cfg.MinBPM, p.cfg.MaxBPM, debug)
	if debug {
		timings.Analyze = time.Since(start)
	}
	if err != nil {
		opsf("frame %d: estimation failed: %v", p.frames.Load(), err)
		return FrameResult{Outcome: SampleAdded, ROI: quad, Err: err, Timings: timings}
	}

	p.recordEstimate(est)
	p.fanOut(est, debug)
	if debug {
		p.recordTimings(timings)
		if est.Ready() && len(est.TopPeaks) > 0 {
			diagf("peaks: %s (ratio %.2f, gap %.1f dB)",
				formatPeaks(est.TopPeaks), est.PeakRatio, est.PeakGapDB)
		}
	}

	tracef("frame %d: %s", p.frames.Load(), est)
	return FrameResult{Outcome: SampleAdded, Estimate: est, ROI: quad, Timings: timings}
}

func (p *Pipeline) recordEstimate(est rppg.BPMEstimate) {
	switch est.State {
	case rppg.StateBuffering:
		p.buffering.Add(1)
	case rppg.StateNoiseFloor:
		p.noiseFloor.Add(1)
	case rppg.StateReady:
		p.ready.Add(1)
		p.lastBPMBits.Store(math.Float64bits(est.BPM))
		p.hasBPM.Store(true)
	}
	p.lastState.Store(int32(est.State))
}

func (p *Pipeline) fanOut(est rppg.BPMEstimate, debug bool) {
	now := time.Now()
	if !isNilInterface(p.cfg.HUD) {
		if est.Ready() {
			p.cfg.HUD.PublishBPM(est.BPM)
		}
		if debug {
			if pulse, mags, ok := p.an.DebugSignals(); ok {
				p.cfg.HUD.PublishDebugPlots(
					plot.Render(pulse, p.cfg.PlotWidth, p.cfg.PlotHeight),
					plot.Render(mags, p.cfg.PlotWidth, p.cfg.PlotHeight),
				)
			}
		}
	}
	if !isNilInterface(p.cfg.Store) && est.State != rppg.StateBuffering {
		if err := p.cfg.Store.RecordEstimate(now, est); err != nil {
			opsf("failed to record estimate: %v", err)
		}
	}
	if !isNilInterface(p.cfg.Observer) && est.Ready() {
		p.cfg.Observer.ObserveEstimate(now, est.BPM)
	}
}

func (p *Pipeline) recordTimings(t StageTimings) {
	p.stabStats.Push(float64(t.Stabilize.Microseconds()))
	p.sampleStats.Push(float64(t.Sample.Microseconds()))
	p.analyzeStats.Push(float64(t.Analyze.Microseconds()))
	if p.stabStats.Count()%timingDiagEvery == 0 {
		diagf("stage timings (µs, last %d frames): stabilize %.0f±%.0f, sample %.0f±%.0f, analyze %.0f±%.0f",
			timingDiagEvery,
			p.stabStats.Mean(), p.stabStats.StdDev(),
			p.sampleStats.Mean(), p.sampleStats.StdDev(),
			p.analyzeStats.Mean(), p.analyzeStats.StdDev())
		p.stabStats.Reset()
		p.sampleStats.Reset()
		p.analyzeStats.Reset()
	}
}

func formatPeaks(peaks []spectral.Peak) string {
	var b strings.Builder
	for i, pk := range peaks {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "#%d %.1f bpm (bin %d, mag %.3g)", i+1, pk.BPM, pk.Bin, pk.Magnitude)
	}
	return b.String()
}

// Snapshot is a point-in-time copy of the pipeline counters for the
// monitor's status endpoint.
type Snapshot struct {
	Frames           uint64  `json:"frames"`
	NoFaceFrames     uint64  `json:"no_face_frames"`
	GeometryFailures uint64  `json:"geometry_failures"`
	Samples          uint64  `json:"samples"`
	BufferingCount   uint64  `json:"buffering_count"`
	ReadyCount       uint64  `json:"ready_count"`
	NoiseFloorCount  uint64  `json:"noise_floor_count"`
	WindowFill       int     `json:"window_fill"`
	WindowCap        int     `json:"window_cap"`
	LastBPM          float64 `json:"last_bpm"`
	HasBPM           bool    `json:"has_bpm"`
	LastState        string  `json:"last_state"`
	Debug            bool    `json:"debug"`
}

// Snapshot copies the counters. Safe to call from any goroutine.
func (p *Pipeline) Snapshot() Snapshot {
	s := Snapshot{
		Frames:           p.frames.Load(),
		NoFaceFrames:     p.noFace.Load(),
		GeometryFailures: p.geomFail.Load(),
		Samples:          p.samples.Load(),
		BufferingCount:   p.buffering.Load(),
		NoiseFloorCount:  p.noiseFloor.Load(),
		ReadyCount:       p.ready.Load(),
		WindowFill:       int(p.windowFill.Load()),
		WindowCap:        p.an.WindowCap(),
		LastState:        rppg.EstimateState(p.lastState.Load()).String(),
		Debug:            p.debug.Load(),
	}
	if p.hasBPM.Load() {
		s.LastBPM = math.Float64frombits(p.lastBPMBits.Load())
		s.HasBPM = true
	}
	return s
}
