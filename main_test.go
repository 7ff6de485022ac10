package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/heartbeam-data/pulse.report/internal/monitoring"
	"github.com/heartbeam-data/pulse.report/internal/rppg/landmarks"
	"github.com/heartbeam-data/pulse.report/internal/rppg/monitor"
	"github.com/heartbeam-data/pulse.report/internal/rppg/pipeline"
	"github.com/heartbeam-data/pulse.report/internal/timeutil"
)

// logCapture collects monitoring output so tests can assert on the
// diagnostic lines the loop emits.
type logCapture struct {
	mu    sync.Mutex
	lines []string
}

func (lc *logCapture) logf(format string, v ...interface{}) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.lines = append(lc.lines, fmt.Sprintf(format, v...))
}

func (lc *logCapture) contains(substr string) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	for _, l := range lc.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func captureLogs(t *testing.T) *logCapture {
	t.Helper()
	lc := &logCapture{}
	prev := monitoring.Logf
	monitoring.SetLogger(lc.logf)
	t.Cleanup(func() { monitoring.SetLogger(prev) })
	return lc
}

func writePNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func writeSidecar(t *testing.T, path string, lm landmarks.Set) {
	t.Helper()
	face := make([][2]float64, landmarks.Count)
	for i, p := range lm {
		face[i] = [2]float64{p.X, p.Y}
	}
	data, err := json.Marshal([][][2]float64{face})
	if err != nil {
		t.Fatalf("marshal sidecar: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestSyntheticFaceSourceFrame(t *testing.T) {
	src := NewSyntheticFaceSource(0, 0, 30, 72)
	defer src.Close()

	frame, sets, err := src.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if frame.W != 640 || frame.H != 480 {
		t.Errorf("frame is %dx%d, want 640x480", frame.W, frame.H)
	}
	if len(sets) != 1 {
		t.Fatalf("got %d landmark sets, want 1", len(sets))
	}
	for i, p := range sets[0] {
		if p.X < 0 || p.X >= float64(frame.W) || p.Y < 0 || p.Y >= float64(frame.H) {
			t.Fatalf("landmark %d at (%.0f, %.0f) is outside the frame", i, p.X, p.Y)
		}
	}

	// The nose bridge sits on the skin patch, the corner on background.
	nb := sets[0][landmarks.NoseBridge]
	b, g, r := frame.At(int(nb.X), int(nb.Y))
	if b != 115 || r != 185 {
		t.Errorf("skin pixel is b=%d r=%d, want b=115 r=185", b, r)
	}
	if g < 140 || g > 160 {
		t.Errorf("skin green %d is outside the pulse range", g)
	}
	if b, g, r := frame.At(0, 0); b != 40 || g != 40 || r != 40 {
		t.Errorf("background pixel is (%d, %d, %d), want (40, 40, 40)", b, g, r)
	}
}

func TestSyntheticFaceSourcePulse(t *testing.T) {
	src := NewSyntheticFaceSource(640, 480, 30, 72)
	defer src.Close()

	// One beat at 72 bpm spans 25 frames at 30 fps, so 30 frames see a
	// full swing of the green channel.
	gMin, gMax := uint8(255), uint8(0)
	for i := 0; i < 30; i++ {
		frame, sets, err := src.Next()
		if err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
		nb := sets[0][landmarks.NoseBridge]
		_, g, _ := frame.At(int(nb.X), int(nb.Y))
		if g < gMin {
			gMin = g
		}
		if g > gMax {
			gMax = g
		}
	}
	if gMax-gMin < 6 {
		t.Errorf("green channel spread is %d over a beat, want at least 6", gMax-gMin)
	}
}

func TestReplayFrameSource(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "frame_0001.png"), 8, 6, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	writePNG(t, filepath.Join(dir, "frame_0002.png"), 8, 6, color.RGBA{R: 50, G: 60, B: 70, A: 255})
	writeSidecar(t, filepath.Join(dir, "frame_0001.json"), syntheticLandmarks(0, 0))

	src, err := NewReplayFrameSource(dir)
	if err != nil {
		t.Fatalf("NewReplayFrameSource: %v", err)
	}
	defer src.Close()

	frame, sets, err := src.Next()
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if frame.W != 8 || frame.H != 6 {
		t.Errorf("frame is %dx%d, want 8x6", frame.W, frame.H)
	}
	if b, g, r := frame.At(3, 3); b != 30 || g != 20 || r != 10 {
		t.Errorf("pixel is (%d, %d, %d), want BGR (30, 20, 10)", b, g, r)
	}
	if len(sets) != 1 {
		t.Fatalf("got %d landmark sets, want 1", len(sets))
	}
	want := syntheticLandmarks(0, 0)[landmarks.NoseBridge]
	if got := sets[0][landmarks.NoseBridge]; got != want {
		t.Errorf("nose bridge round-tripped to %+v, want %+v", got, want)
	}

	// The second frame has no sidecar, meaning no detected face.
	_, sets, err = src.Next()
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if len(sets) != 0 {
		t.Errorf("got %d landmark sets without a sidecar, want 0", len(sets))
	}

	if _, _, err := src.Next(); err != io.EOF {
		t.Errorf("exhausted source returned %v, want io.EOF", err)
	}
}

func TestReplayFrameSourceErrors(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		if _, err := NewReplayFrameSource(t.TempDir()); err == nil {
			t.Fatal("expected an error for a directory without frames")
		}
	})

	t.Run("short sidecar", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "frame_0001.png"), 4, 4, color.RGBA{A: 255})
		if err := os.WriteFile(filepath.Join(dir, "frame_0001.json"), []byte(`[[[1, 2], [3, 4]]]`), 0o644); err != nil {
			t.Fatalf("write sidecar: %v", err)
		}
		src, err := NewReplayFrameSource(dir)
		if err != nil {
			t.Fatalf("NewReplayFrameSource: %v", err)
		}
		if _, _, err := src.Next(); err == nil || !strings.Contains(err.Error(), "points") {
			t.Fatalf("Next returned %v, want a point-count error", err)
		}
	})
}

func TestRunFrameLoopSourceExhausted(t *testing.T) {
	logs := captureLogs(t)

	dir := t.TempDir()
	skin := color.RGBA{R: 185, G: 150, B: 115, A: 255}
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("frame_%04d", i)
		writePNG(t, filepath.Join(dir, name+".png"), 640, 480, skin)
		writeSidecar(t, filepath.Join(dir, name+".json"), syntheticLandmarks(220, 100))
	}

	src, err := NewReplayFrameSource(dir)
	if err != nil {
		t.Fatalf("NewReplayFrameSource: %v", err)
	}
	defer src.Close()

	pipe := pipeline.New(pipeline.Config{})
	stats := monitor.NewFrameStats()

	err = runFrameLoop(context.Background(), loopConfig{
		Clock:         timeutil.RealClock{},
		Source:        src,
		Pipeline:      pipe,
		Stats:         stats,
		FPS:           200,
		StatsInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("runFrameLoop returned %v, want nil", err)
	}

	snap := pipe.Snapshot()
	if snap.Frames != 3 {
		t.Errorf("pipeline saw %d frames, want 3", snap.Frames)
	}
	if snap.Samples != 3 {
		t.Errorf("pipeline accepted %d samples, want 3", snap.Samples)
	}
	if !logs.contains("Buffering:") {
		t.Error("no buffering progress line was logged")
	}
	if !logs.contains("frame source exhausted") {
		t.Error("no source-exhausted line was logged")
	}

	frames, faces, _, _ := stats.GetAndReset()
	if frames != 3 || faces != 3 {
		t.Errorf("stats recorded %d frames and %d faces, want 3 and 3", frames, faces)
	}
}

func TestRunFrameLoopCanceled(t *testing.T) {
	captureLogs(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)

	go func() {
		errCh <- runFrameLoop(ctx, loopConfig{
			Clock:         timeutil.RealClock{},
			Source:        NewSyntheticFaceSource(640, 480, 100, 72),
			Pipeline:      pipeline.New(pipeline.Config{}),
			Stats:         monitor.NewFrameStats(),
			FPS:           100,
			StatsInterval: time.Hour,
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("runFrameLoop returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the loop to stop")
	}
}
