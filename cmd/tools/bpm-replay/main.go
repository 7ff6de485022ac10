// Package main provides an offline replay harness for the heart rate
// estimator. It runs the spectral analyzer over a recorded or synthetic
// color-sample stream and prints the per-window estimates.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/heartbeam-data/pulse.report/internal/rppg"
	"github.com/heartbeam-data/pulse.report/internal/rppg/plot"
	"github.com/heartbeam-data/pulse.report/internal/rppg/storage/sqlite"
	"github.com/heartbeam-data/pulse.report/internal/rppg/window"
	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// Config holds configuration for a replay run.
type Config struct {
	SamplesFile string
	Synthetic   bool
	BPM         float64
	Seconds     float64
	FPS         float64
	Window      float64
	MinBPM      float64
	MaxBPM      float64
	OutputDir   string
	DBPath      string
	Migrations  string
	Verbose     bool
}

// ReplayResult summarizes one pass of the analyzer over a stream.
type ReplayResult struct {
	Samples    int
	Duration   float64
	Estimates  int
	ReadyCount int
	NoiseCount int
	MeanBPM    float64
	MinBPM     float64
	MaxBPM     float64
}

// estimateRow pairs an estimate with its position in the stream.
type estimateRow struct {
	t   float64
	est rppg.BPMEstimate
}

func main() {
	cfg := parseFlags()

	if cfg.SamplesFile == "" && !cfg.Synthetic {
		log.Fatal("a sample stream is required: use -samples file.csv or -synthetic")
	}
	if cfg.SamplesFile != "" && cfg.Synthetic {
		log.Fatal("use either -samples or -synthetic, not both")
	}
	if cfg.FPS <= 0 {
		log.Fatal("fps must be positive")
	}

	var samples []window.ColorSample
	if cfg.Synthetic {
		samples = syntheticSamples(cfg.BPM, cfg.Seconds, cfg.FPS)
		log.Printf("Generated %d synthetic samples at %.1f bpm", len(samples), cfg.BPM)
	} else {
		var err error
		samples, err = loadSamples(cfg.SamplesFile)
		if err != nil {
			log.Fatalf("Failed to load samples: %v", err)
		}
		log.Printf("Loaded %d samples from %s", len(samples), cfg.SamplesFile)
	}

	an := rppg.NewAnalyzer(cfg.Window, cfg.FPS)
	result, rows := runReplay(cfg, an, samples)
	printResults(cfg, result)

	if cfg.OutputDir != "" {
		if err := writeDebugPlots(an, cfg.OutputDir); err != nil {
			log.Printf("Warning: failed to write debug plots: %v", err)
		} else {
			log.Printf("Debug plots written to: %s", cfg.OutputDir)
		}
	}

	if cfg.DBPath != "" {
		id, err := insertSession(cfg, result, rows)
		if err != nil {
			log.Fatalf("Failed to record session: %v", err)
		}
		log.Printf("Session %s recorded in %s", id, cfg.DBPath)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.SamplesFile, "samples", "", "CSV of t,b,g,r sample rows to replay")
	flag.BoolVar(&cfg.Synthetic, "synthetic", false, "Generate a synthetic pulse stream instead of reading a file")
	flag.Float64Var(&cfg.BPM, "bpm", 72, "Synthetic stream heart rate")
	flag.Float64Var(&cfg.Seconds, "seconds", 30, "Synthetic stream length in seconds")
	flag.Float64Var(&cfg.FPS, "fps", rppg.DefaultFPS, "Sample rate of the stream")
	flag.Float64Var(&cfg.Window, "window", rppg.DefaultWindowSeconds, "Analysis window in seconds")
	flag.Float64Var(&cfg.MinBPM, "min-bpm", rppg.DefaultMinBPM, "Lower edge of the search band")
	flag.Float64Var(&cfg.MaxBPM, "max-bpm", rppg.DefaultMaxBPM, "Upper edge of the search band")
	flag.StringVar(&cfg.OutputDir, "output", "", "Directory for pulse/spectrum debug PNGs")
	flag.StringVar(&cfg.DBPath, "db", "", "Record the run as a session in this SQLite DB")
	flag.StringVar(&cfg.Migrations, "migrations", "db/migrations", "Directory holding schema migrations")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Print spectral detail with each estimate")

	flag.Parse()

	return cfg
}

// syntheticSamples builds a skin-toned stream whose green channel
// oscillates at the requested rate, the same signal model the dev
// frame source renders.
func syntheticSamples(bpm, seconds, fps float64) []window.ColorSample {
	n := int(seconds * fps)
	samples := make([]window.ColorSample, n)
	for i := range samples {
		t := float64(i) / fps
		pulse := 4 * math.Cos(2*math.Pi*bpm/60*t)
		samples[i] = window.ColorSample{B: 115, G: 150 + pulse, R: 185}
	}
	return samples
}

// loadSamples reads a t,b,g,r CSV. A non-numeric first row is treated
// as a header. The t column orders the file offline; replay is paced by
// -fps, so only b,g,r feed the analyzer.
func loadSamples(path string) ([]window.ColorSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 4
	reader.TrimLeadingSpace = true

	var samples []window.ColorSample
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}
		row++

		if _, err := strconv.ParseFloat(record[0], 64); err != nil {
			if row == 1 {
				continue // header
			}
			return nil, fmt.Errorf("row %d: bad t value %q", row, record[0])
		}

		var s window.ColorSample
		if s.B, err = strconv.ParseFloat(record[1], 64); err != nil {
			return nil, fmt.Errorf("row %d: bad b value %q", row, record[1])
		}
		if s.G, err = strconv.ParseFloat(record[2], 64); err != nil {
			return nil, fmt.Errorf("row %d: bad g value %q", row, record[2])
		}
		if s.R, err = strconv.ParseFloat(record[3], 64); err != nil {
			return nil, fmt.Errorf("row %d: bad r value %q", row, record[3])
		}
		samples = append(samples, s)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no sample rows in %s", path)
	}
	return samples, nil
}

// runReplay feeds the stream through the analyzer, estimating once per
// second of stream time and once at the end.
func runReplay(cfg Config, an *rppg.Analyzer, samples []window.ColorSample) (*ReplayResult, []estimateRow) {
	every := int(cfg.FPS)
	if every < 1 {
		every = 1
	}
	debug := cfg.OutputDir != "" || cfg.Verbose

	result := &ReplayResult{
		Samples:  len(samples),
		Duration: float64(len(samples)) / cfg.FPS,
		MinBPM:   math.Inf(1),
		MaxBPM:   math.Inf(-1),
	}

	var rows []estimateRow
	var bpmSum float64

	estimate := func(i int) {
		t := float64(i+1) / cfg.FPS
		est, err := an.CalculateBPM(cfg.MinBPM, cfg.MaxBPM, debug)
		if err != nil {
			log.Fatalf("estimate at t=%.2fs failed: %v", t, err)
		}
		rows = append(rows, estimateRow{t: t, est: est})
		result.Estimates++

		switch {
		case est.Ready():
			result.ReadyCount++
			bpmSum += est.BPM
			result.MinBPM = math.Min(result.MinBPM, est.BPM)
			result.MaxBPM = math.Max(result.MaxBPM, est.BPM)
		case est.State == rppg.StateNoiseFloor:
			result.NoiseCount++
		}

		if cfg.Verbose && est.Ready() {
			fmt.Printf("t=%6.2fs  %s  (bin %d, mag %.4g, gap %.1f dB)\n",
				t, est, est.PeakBin, est.PeakMagnitude, est.PeakGapDB)
		} else {
			fmt.Printf("t=%6.2fs  %s\n", t, est)
		}
	}

	for i, s := range samples {
		an.AddSample(s)
		if (i+1)%every == 0 {
			estimate(i)
		}
	}
	if len(samples)%every != 0 {
		estimate(len(samples) - 1)
	}

	if result.ReadyCount > 0 {
		result.MeanBPM = bpmSum / float64(result.ReadyCount)
	} else {
		result.MinBPM, result.MaxBPM = 0, 0
	}
	return result, rows
}

func printResults(cfg Config, result *ReplayResult) {
	fmt.Println("\n=== Replay Results ===")
	fmt.Printf("Samples: %d (%.1fs at %.1f fps)\n", result.Samples, result.Duration, cfg.FPS)
	fmt.Printf("Window: %.1fs, band %.0f..%.0f bpm\n", cfg.Window, cfg.MinBPM, cfg.MaxBPM)
	fmt.Printf("Estimates: %d (%d ready, %d noise floor)\n",
		result.Estimates, result.ReadyCount, result.NoiseCount)
	if result.ReadyCount > 0 {
		fmt.Printf("BPM: mean %.1f, range %.1f..%.1f\n",
			result.MeanBPM, result.MinBPM, result.MaxBPM)
	} else {
		fmt.Println("BPM: no ready estimates")
	}
}

// writeDebugPlots renders the analyzer's retained pulse and spectrum
// traces from the final estimate.
func writeDebugPlots(an *rppg.Analyzer, dir string) error {
	pulse, mags, ok := an.DebugSignals()
	if !ok {
		return fmt.Errorf("no debug signals retained; the window never filled")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := writePNG(filepath.Join(dir, "pulse.png"), plot.Render(pulse, 720, 240)); err != nil {
		return err
	}
	return writePNG(filepath.Join(dir, "spectrum.png"), plot.Render(mags, 720, 240))
}

func writePNG(path string, f vision.Frame) error {
	img := image.NewRGBA(image.Rect(0, 0, f.W, f.H))
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			b, g, r := f.At(x, y)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, img)
}

// insertSession writes the run into the session store so the monitor
// can browse and chart it like a live capture.
func insertSession(cfg Config, result *ReplayResult, rows []estimateRow) (string, error) {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	if err := store.MigrateUp(cfg.Migrations); err != nil {
		return "", fmt.Errorf("migrate: %w", err)
	}

	notes := fmt.Sprintf("replay of %s", cfg.SamplesFile)
	if cfg.Synthetic {
		notes = fmt.Sprintf("synthetic replay, target %.0f bpm", cfg.BPM)
	}
	sess := &sqlite.Session{
		FPS:        cfg.FPS,
		WindowSecs: cfg.Window,
		MinBPM:     cfg.MinBPM,
		MaxBPM:     cfg.MaxBPM,
		Notes:      notes,
	}
	if err := store.CreateSession(sess); err != nil {
		return "", err
	}

	rec := sqlite.NewRecorder(store, sess.ID)
	base := time.Unix(0, sess.StartedAtNs)
	for _, row := range rows {
		// Match the live pipeline sink: buffering estimates are not rows.
		if row.est.State == rppg.StateBuffering {
			continue
		}
		ts := base.Add(time.Duration(row.t * float64(time.Second)))
		if err := rec.RecordEstimate(ts, row.est); err != nil {
			return "", fmt.Errorf("record estimate at t=%.2fs: %w", row.t, err)
		}
	}

	end := base.Add(time.Duration(result.Duration * float64(time.Second)))
	if err := store.CloseSession(sess.ID, end.UnixNano()); err != nil {
		return "", err
	}
	return sess.ID, nil
}
