package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Acquisition rate bounds. Sampling below 10 fps puts the upper pulse
// band past Nyquist; above 60 fps adds no usable signal.
const (
	MinAcquisitionFPS = 10.0
	MaxAcquisitionFPS = 60.0
)

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/params endpoint so the same JSON can be
// used for both startup configuration and runtime inspection.
type TuningConfig struct {
	// Acquisition params
	AcquisitionFPS *float64 `json:"acquisition_fps,omitempty"`

	// Estimation params
	WindowSeconds *float64 `json:"window_seconds,omitempty"`
	MinBPM        *float64 `json:"min_bpm,omitempty"`
	MaxBPM        *float64 `json:"max_bpm,omitempty"`

	// Stabilizer output raster
	ROIWidth  *int `json:"roi_width,omitempty"`
	ROIHeight *int `json:"roi_height,omitempty"`

	// Debug surfaces
	Debug      *bool `json:"debug,omitempty"`
	PlotWidth  *int  `json:"plot_width,omitempty"`
	PlotHeight *int  `json:"plot_height,omitempty"`

	// Reporting cadence for buffering progress and rate diagnostics,
	// duration string like "2s"
	StatsInterval *string `json:"stats_interval,omitempty"`

	// Persistence and monitor params
	DBPath     *string `json:"db_path,omitempty"`
	ListenAddr *string `json:"listen_addr,omitempty"`

	// Reference oximeter serial params
	ReferencePort *string `json:"reference_port,omitempty"`
	ReferenceBaud *int    `json:"reference_baud,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/rppg/*
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.AcquisitionFPS != nil {
		if *c.AcquisitionFPS <= 0 {
			return fmt.Errorf("acquisition_fps must be positive, got %f", *c.AcquisitionFPS)
		}
	}

	if c.WindowSeconds != nil {
		if *c.WindowSeconds <= 0 {
			return fmt.Errorf("window_seconds must be positive, got %f", *c.WindowSeconds)
		}
	}

	if c.MinBPM != nil && *c.MinBPM <= 0 {
		return fmt.Errorf("min_bpm must be positive, got %f", *c.MinBPM)
	}
	if c.MaxBPM != nil && *c.MaxBPM <= 0 {
		return fmt.Errorf("max_bpm must be positive, got %f", *c.MaxBPM)
	}
	if c.MinBPM != nil && c.MaxBPM != nil && *c.MinBPM >= *c.MaxBPM {
		return fmt.Errorf("min_bpm (%f) must be below max_bpm (%f)", *c.MinBPM, *c.MaxBPM)
	}

	if c.ROIWidth != nil && *c.ROIWidth < 2 {
		return fmt.Errorf("roi_width must be at least 2, got %d", *c.ROIWidth)
	}
	if c.ROIHeight != nil && *c.ROIHeight < 2 {
		return fmt.Errorf("roi_height must be at least 2, got %d", *c.ROIHeight)
	}

	if c.StatsInterval != nil && *c.StatsInterval != "" {
		if _, err := time.ParseDuration(*c.StatsInterval); err != nil {
			return fmt.Errorf("invalid stats_interval '%s': %w", *c.StatsInterval, err)
		}
	}

	if c.ReferenceBaud != nil && *c.ReferenceBaud <= 0 {
		return fmt.Errorf("reference_baud must be positive, got %d", *c.ReferenceBaud)
	}

	return nil
}

// GetAcquisitionFPS returns the acquisition_fps value clamped into the
// supported range, or the default.
func (c *TuningConfig) GetAcquisitionFPS() float64 {
	if c.AcquisitionFPS == nil {
		return 30.0 // default
	}
	fps := *c.AcquisitionFPS
	if fps < MinAcquisitionFPS {
		return MinAcquisitionFPS
	}
	if fps > MaxAcquisitionFPS {
		return MaxAcquisitionFPS
	}
	return fps
}

// GetWindowSeconds returns the window_seconds value or the default.
func (c *TuningConfig) GetWindowSeconds() float64 {
	if c.WindowSeconds == nil {
		return 8.5 // default
	}
	ws := *c.WindowSeconds
	if ws < 1.0 {
		return 1.0
	}
	return ws
}

// GetMinBPM returns the min_bpm value or the default.
func (c *TuningConfig) GetMinBPM() float64 {
	if c.MinBPM == nil {
		return 45.0
	}
	return *c.MinBPM
}

// GetMaxBPM returns the max_bpm value or the default.
func (c *TuningConfig) GetMaxBPM() float64 {
	if c.MaxBPM == nil {
		return 180.0
	}
	return *c.MaxBPM
}

// GetROIWidth returns the roi_width value or the default.
func (c *TuningConfig) GetROIWidth() int {
	if c.ROIWidth == nil {
		return 60
	}
	return *c.ROIWidth
}

// GetROIHeight returns the roi_height value or the default.
func (c *TuningConfig) GetROIHeight() int {
	if c.ROIHeight == nil {
		return 45
	}
	return *c.ROIHeight
}

// GetDebug returns the debug value or the default.
func (c *TuningConfig) GetDebug() bool {
	if c.Debug == nil {
		return false
	}
	return *c.Debug
}

// GetPlotWidth returns the plot_width value or the default.
func (c *TuningConfig) GetPlotWidth() int {
	if c.PlotWidth == nil {
		return 360
	}
	return *c.PlotWidth
}

// GetPlotHeight returns the plot_height value or the default.
func (c *TuningConfig) GetPlotHeight() int {
	if c.PlotHeight == nil {
		return 180
	}
	return *c.PlotHeight
}

// GetStatsInterval parses and returns the StatsInterval as a time.Duration.
func (c *TuningConfig) GetStatsInterval() time.Duration {
	if c.StatsInterval == nil || *c.StatsInterval == "" {
		return 2 * time.Second // default
	}
	d, err := time.ParseDuration(*c.StatsInterval)
	if err != nil {
		return 2 * time.Second // default on parse error
	}
	return d
}

// GetDBPath returns the db_path value or the default.
func (c *TuningConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "pulse.db"
	}
	return *c.DBPath
}

// GetListenAddr returns the listen_addr value or the default.
func (c *TuningConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return ":8080"
	}
	return *c.ListenAddr
}

// GetReferencePort returns the reference_port value. Empty means the
// reference channel is disabled.
func (c *TuningConfig) GetReferencePort() string {
	if c.ReferencePort == nil {
		return ""
	}
	return *c.ReferencePort
}

// GetReferenceBaud returns the reference_baud value or the default.
func (c *TuningConfig) GetReferenceBaud() int {
	if c.ReferenceBaud == nil {
		return 115200
	}
	return *c.ReferenceBaud
}
