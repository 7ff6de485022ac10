package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/heartbeam-data/pulse.report/internal/config"
	"github.com/heartbeam-data/pulse.report/internal/hud"
	"github.com/heartbeam-data/pulse.report/internal/rppg"
	"github.com/heartbeam-data/pulse.report/internal/rppg/monitor"
	"github.com/heartbeam-data/pulse.report/internal/rppg/pipeline"
	"github.com/heartbeam-data/pulse.report/internal/rppg/reference"
	"github.com/heartbeam-data/pulse.report/internal/rppg/stabilize"
	"github.com/heartbeam-data/pulse.report/internal/rppg/storage/sqlite"
	"github.com/heartbeam-data/pulse.report/internal/timeutil"
)

var (
	devMode       = flag.Bool("dev", false, "Run against the synthetic face source")
	configPath    = flag.String("config", "", "Path to a tuning config JSON file")
	listen        = flag.String("listen", "", "Listen address for the monitor server")
	dbPath        = flag.String("db", "", "Path to the session database")
	migrationsDir = flag.String("migrations", "db/migrations", "Directory holding schema migrations")
	fps           = flag.Float64("fps", 0, "Acquisition frame rate override")
	targetBPM     = flag.Float64("bpm", 72, "Synthetic source target heart rate")
	framesDir     = flag.String("frames", "", "Directory of PNG frames to replay")
	referencePort = flag.String("reference-port", "", "Serial device of the reference oximeter")
	debugMode     = flag.Bool("debug", false, "Start with spectral diagnostics enabled")
)

// loadConfig merges the tuning file (if any) with the flag overrides.
// Flags win so a captured config can be replayed with one knob changed.
func loadConfig() *config.TuningConfig {
	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		cfg = loaded
	}

	if *listen != "" {
		cfg.ListenAddr = listen
	}
	if *dbPath != "" {
		cfg.DBPath = dbPath
	}
	if *fps > 0 {
		cfg.AcquisitionFPS = fps
	}
	if *referencePort != "" {
		cfg.ReferencePort = referencePort
	}
	return cfg
}

func sessionNotes() string {
	if *framesDir != "" {
		return fmt.Sprintf("replay %s", *framesDir)
	}
	return fmt.Sprintf("dev synthetic source, target %.0f bpm", *targetBPM)
}

// Main
func main() {
	flag.Parse()

	cfg := loadConfig()

	var source FrameSource
	switch {
	case *framesDir != "":
		s, err := NewReplayFrameSource(*framesDir)
		if err != nil {
			log.Fatalf("failed to open replay source: %v", err)
		}
		source = s
	case *devMode:
		source = NewSyntheticFaceSource(640, 480, cfg.GetAcquisitionFPS(), *targetBPM)
	default:
		log.Fatal("No frame source: use -dev for synthetic frames or -frames for a replay directory")
	}
	defer source.Close()

	store, err := sqlite.Open(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("Failed to open session database: %v", err)
	}
	defer store.Close()

	if err := store.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("Failed to migrate session database: %v", err)
	}

	sess := &sqlite.Session{
		FPS:        cfg.GetAcquisitionFPS(),
		WindowSecs: cfg.GetWindowSeconds(),
		MinBPM:     cfg.GetMinBPM(),
		MaxBPM:     cfg.GetMaxBPM(),
		Notes:      sessionNotes(),
	}
	if err := store.CreateSession(sess); err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	log.Printf("Session %s started (fps=%.1f window=%.1fs band=%.0f..%.0f bpm)",
		sess.ID, sess.FPS, sess.WindowSecs, sess.MinBPM, sess.MaxBPM)

	// the reference oximeter is optional; without one the comparator
	// stays nil and the pipeline simply never publishes to it
	var comparator *reference.Comparator
	var refPort reference.PortInterface
	if name := cfg.GetReferencePort(); name != "" {
		refPort, err = reference.NewPort(name, cfg.GetReferenceBaud())
		if err != nil {
			log.Fatalf("failed to open reference port: %v", err)
		}
		defer refPort.Close()
		comparator = reference.NewComparator(reference.DefaultHorizon)
	}

	stats := monitor.NewFrameStats()
	hudState := hud.NewState()

	pipe := pipeline.New(pipeline.Config{
		Stabilizer: stabilize.NewStabilizer(stabilize.Config{
			ROIWidth:  cfg.GetROIWidth(),
			ROIHeight: cfg.GetROIHeight(),
		}),
		Analyzer:   rppg.NewAnalyzer(cfg.GetWindowSeconds(), cfg.GetAcquisitionFPS()),
		MinBPM:     cfg.GetMinBPM(),
		MaxBPM:     cfg.GetMaxBPM(),
		PlotWidth:  cfg.GetPlotWidth(),
		PlotHeight: cfg.GetPlotHeight(),
		HUD:        hudState,
		Store:      sqlite.NewRecorder(store, sess.ID),
		Observer:   comparator,
	})
	if *debugMode || cfg.GetDebug() {
		pipe.SetDebug(true)
	}

	// Create a wait group for the frame loop, reference reader, and
	// monitor server routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// flip debug mode at runtime with SIGUSR1
	go watchDebugSignal(ctx, pipe)

	// run the frame loop routine pacing acquisition and estimation
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := runFrameLoop(ctx, loopConfig{
			Clock:         timeutil.RealClock{},
			Source:        source,
			Pipeline:      pipe,
			Stats:         stats,
			FPS:           cfg.GetAcquisitionFPS(),
			StatsInterval: cfg.GetStatsInterval(),
		})
		if err != nil && err != context.Canceled {
			log.Printf("frame loop failed: %v", err)
		}
		log.Print("frame loop routine terminated")

		// a drained replay source ends the run; bring the other
		// routines down with it
		stop()
	}()

	if refPort != nil {
		// run the monitor routine to manage IO on the serial port
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := refPort.Monitor(ctx); err != nil && err != context.Canceled {
				log.Printf("failed to monitor reference port: %v", err)
			}
			log.Print("reference monitor routine terminated")
		}()

		// subscribe to the oximeter readings and feed the comparator
		// and the session store
		wg.Add(1)
		go func() {
			defer wg.Done()
			runReferenceChannel(ctx, refPort, comparator, store, sess.ID)
			log.Print("reference channel routine terminated")
		}()
	}

	// HTTP monitor goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		ws := monitor.NewWebServer(monitor.WebServerConfig{
			Address:    cfg.GetListenAddr(),
			Pipeline:   pipe,
			Stats:      stats,
			Comparator: comparator,
			Store:      store,
			HUD:        hudState,
			DBPath:     cfg.GetDBPath(),
			SessionID:  sess.ID,
		})
		if err := ws.Start(ctx); err != nil {
			log.Printf("monitor server failed: %v", err)
		}
	}()

	// Wait for all goroutines to finish
	wg.Wait()

	if err := store.CloseSession(sess.ID, 0); err != nil {
		log.Printf("failed to close session %s: %v", sess.ID, err)
	}
	log.Printf("Graceful shutdown complete")
}
