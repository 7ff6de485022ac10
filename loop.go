package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/heartbeam-data/pulse.report/internal/monitoring"
	"github.com/heartbeam-data/pulse.report/internal/rppg"
	"github.com/heartbeam-data/pulse.report/internal/rppg/landmarks"
	"github.com/heartbeam-data/pulse.report/internal/rppg/monitor"
	"github.com/heartbeam-data/pulse.report/internal/rppg/pipeline"
	"github.com/heartbeam-data/pulse.report/internal/timeutil"
)

const (
	// bufferProgressEvery throttles the buffering progress lines.
	bufferProgressEvery = 2 * time.Second
	// overrunWarnEvery throttles slow-frame warnings.
	overrunWarnEvery = 5 * time.Second
)

// loopConfig carries the frame loop's collaborators.
type loopConfig struct {
	Clock         timeutil.Clock
	Source        FrameSource
	Pipeline      *pipeline.Pipeline
	Stats         *monitor.FrameStats
	FPS           float64
	StatsInterval time.Duration
}

// runFrameLoop paces the source at the acquisition rate and pushes every
// frame through the pipeline until the context ends or the source is
// exhausted. Capture cadence lands in Stats; a second ticker drains the
// stats window into the log and the monitor snapshot.
func runFrameLoop(ctx context.Context, cfg loopConfig) error {
	interval := time.Duration(float64(time.Second) / cfg.FPS)
	frameTicker := cfg.Clock.NewTicker(interval)
	defer frameTicker.Stop()
	statsTicker := cfg.Clock.NewTicker(cfg.StatsInterval)
	defer statsTicker.Stop()

	var (
		lastFrameAt  time.Time
		lastProgress time.Time
		lastOverrun  time.Time
		bufferFilled bool
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-statsTicker.C():
			cfg.Stats.LogStats()

		case <-frameTicker.C():
			frame, sets, err := cfg.Source.Next()
			if err == io.EOF {
				monitoring.Logf("frame source exhausted")
				return nil
			}
			if err != nil {
				return fmt.Errorf("frame source: %w", err)
			}

			start := cfg.Clock.Now()
			var dt time.Duration
			if !lastFrameAt.IsZero() {
				dt = start.Sub(lastFrameAt)
			}
			lastFrameAt = start

			var res pipeline.FrameResult
			if lm, ok := landmarks.SelectCentral(sets, frame.W, frame.H); ok {
				res = cfg.Pipeline.ProcessFrame(frame, &lm)
			} else {
				res = cfg.Pipeline.ProcessFrame(frame, nil)
			}

			// A geometry failure still means the detector saw a face.
			cfg.Stats.AddFrame(dt, res.Outcome != pipeline.NoFace)

			if res.Outcome == pipeline.SampleAdded {
				est := res.Estimate
				switch {
				case est.State == rppg.StateBuffering:
					if cfg.Clock.Since(lastProgress) >= bufferProgressEvery {
						pct := 0.0
						if est.Capacity > 0 {
							pct = 100 * float64(est.Filled) / float64(est.Capacity)
						}
						monitoring.Logf("Buffering: %d/%d (%.0f%%)", est.Filled, est.Capacity, pct)
						lastProgress = cfg.Clock.Now()
					}
				case !bufferFilled:
					bufferFilled = true
					monitoring.Logf("Buffer filled: %d samples", est.Capacity)
				}
			}

			if elapsed := cfg.Clock.Since(start); elapsed > 2*interval {
				if cfg.Clock.Since(lastOverrun) >= overrunWarnEvery {
					monitoring.Logf("frame overrun: processing took %v against a %v interval", elapsed, interval)
					lastOverrun = cfg.Clock.Now()
				}
			}
		}
	}
}
