package monitor

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/heartbeam-data/pulse.report/internal/httputil"
	"github.com/heartbeam-data/pulse.report/internal/hud"
	"github.com/heartbeam-data/pulse.report/internal/rppg/pipeline"
	"github.com/heartbeam-data/pulse.report/internal/rppg/reference"
	"github.com/heartbeam-data/pulse.report/internal/rppg/storage/sqlite"
	"github.com/heartbeam-data/pulse.report/internal/version"
)

// WebServer handles the HTTP interface for monitoring the estimation
// service. It provides endpoints for health checks, live status, session
// browsing, and chart rendering.
type WebServer struct {
	address    string
	pipe       *pipeline.Pipeline
	stats      *FrameStats
	comparator *reference.Comparator
	store      *sqlite.Store
	hud        *hud.State
	dbPath     string
	sessionID  string
	server     *http.Server
	startTime  time.Time
}

// WebServerConfig contains configuration options for the web server.
// Stats, Comparator, Store, and HUD are optional; endpoints depending
// on a missing one report that instead of serving partial data.
type WebServerConfig struct {
	Address    string
	Pipeline   *pipeline.Pipeline
	Stats      *FrameStats
	Comparator *reference.Comparator
	Store      *sqlite.Store
	HUD        *hud.State
	DBPath     string
	SessionID  string
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:    config.Address,
		pipe:       config.Pipeline,
		stats:      config.Stats,
		comparator: config.Comparator,
		store:      config.Store,
		hud:        config.HUD,
		dbPath:     config.DBPath,
		sessionID:  config.SessionID,
		startTime:  time.Now(),
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// Close shuts down the web server.
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/status", ws.handleStatus)
	mux.HandleFunc("/api/sessions", ws.handleSessions)
	mux.HandleFunc("/api/readings", ws.handleReadings)
	mux.HandleFunc("/charts/session", ws.handleSessionChart)
	mux.HandleFunc("/plots/session.png", ws.handleSessionPlot)
	mux.HandleFunc("/hud/frame.png", ws.handleHUDFrame)

	if ws.store != nil {
		ws.attachAdminRoutes(mux)
	}

	return mux
}

// handleHealth handles the health check endpoint.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "rppg", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

type statusResponse struct {
	Service   string              `json:"service"`
	Version   string              `json:"version"`
	GitSHA    string              `json:"git_sha"`
	Uptime    string              `json:"uptime"`
	SessionID string              `json:"session_id,omitempty"`
	Pipeline  *pipeline.Snapshot  `json:"pipeline,omitempty"`
	Capture   *FrameStatsSnapshot `json:"capture,omitempty"`
	Reference *reference.Stats    `json:"reference,omitempty"`
}

// handleStatus reports the live estimator state: pipeline counters, the
// last BPM, capture cadence, and reference agreement when a device is
// attached.
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	uptime := time.Since(ws.startTime)
	if ws.stats != nil {
		uptime = ws.stats.GetUptime()
	}

	resp := statusResponse{
		Service:   "rppg",
		Version:   version.Version,
		GitSHA:    version.GitSHA,
		Uptime:    uptime.Round(time.Second).String(),
		SessionID: ws.sessionID,
	}

	if ws.pipe != nil {
		snap := ws.pipe.Snapshot()
		resp.Pipeline = &snap
	}
	if ws.stats != nil {
		resp.Capture = ws.stats.GetLatestSnapshot()
	}
	if ws.comparator != nil {
		stats := ws.comparator.Stats()
		resp.Reference = &stats
	}

	httputil.WriteJSONOK(w, resp)
}
