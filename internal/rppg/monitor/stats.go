package monitor

import (
	"sync"
	"time"

	"github.com/heartbeam-data/pulse.report/internal/monitoring"
	"github.com/heartbeam-data/pulse.report/internal/rppg"
)

// FrameStatsSnapshot represents one capture-rate measurement window.
type FrameStatsSnapshot struct {
	ObservedFPS float64   `json:"observed_fps"`
	FaceHitPct  float64   `json:"face_hit_pct"`
	DtMeanMs    float64   `json:"dt_mean_ms"`
	DtStdDevMs  float64   `json:"dt_stddev_ms"`
	DtMinMs     float64   `json:"dt_min_ms"`
	DtMaxMs     float64   `json:"dt_max_ms"`
	Frames      int64     `json:"frames"`
	Timestamp   time.Time `json:"timestamp"`
}

// FrameStats tracks capture loop cadence with thread-safe operations.
// The capture loop feeds it per frame; a ticker drains it via LogStats.
type FrameStats struct {
	mu             sync.Mutex
	frameCount     int64
	faceCount      int64
	dt             rppg.RunningStats
	lastReset      time.Time
	startTime      time.Time
	latestSnapshot *FrameStatsSnapshot
}

// NewFrameStats creates a new FrameStats instance.
func NewFrameStats() *FrameStats {
	now := time.Now()
	return &FrameStats{
		lastReset: now,
		startTime: now,
	}
}

// AddFrame records one processed frame: the wall-clock delta since the
// previous frame and whether a face was found in it. A zero delta (the
// first frame) still counts the frame but not the interval.
func (fs *FrameStats) AddFrame(dt time.Duration, faceFound bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.frameCount++
	if faceFound {
		fs.faceCount++
	}
	if dt > 0 {
		fs.dt.Push(float64(dt) / float64(time.Millisecond))
	}
}

// GetAndReset returns current counters and resets them for the next window.
func (fs *FrameStats) GetAndReset() (frames, faces int64, dt rppg.RunningStats, duration time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := time.Now()
	duration = now.Sub(fs.lastReset)
	frames = fs.frameCount
	faces = fs.faceCount
	dt = fs.dt

	fs.frameCount = 0
	fs.faceCount = 0
	fs.dt.Reset()
	fs.lastReset = now

	return
}

// LogStats logs formatted capture statistics and stores a snapshot for the
// web interface. Quiet when no frames arrived in the window.
func (fs *FrameStats) LogStats() {
	frames, faces, dt, duration := fs.GetAndReset()
	if frames == 0 || duration <= 0 {
		return
	}

	fps := float64(frames) / duration.Seconds()
	hitPct := 100 * float64(faces) / float64(frames)

	fs.mu.Lock()
	fs.latestSnapshot = &FrameStatsSnapshot{
		ObservedFPS: fps,
		FaceHitPct:  hitPct,
		DtMeanMs:    dt.Mean(),
		DtStdDevMs:  dt.StdDev(),
		DtMinMs:     dt.Min(),
		DtMaxMs:     dt.Max(),
		Frames:      frames,
		Timestamp:   time.Now(),
	}
	fs.mu.Unlock()

	monitoring.Logf("Capture stats: %.1f fps, face hit %.0f%%, dt %.1f±%.1f ms (min %.1f, max %.1f)",
		fps, hitPct, dt.Mean(), dt.StdDev(), dt.Min(), dt.Max())
}

// GetUptime returns the time since the stats were created.
func (fs *FrameStats) GetUptime() time.Duration {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return time.Since(fs.startTime)
}

// GetLatestSnapshot returns the most recent stats snapshot for the web
// interface, or nil before the first window completes.
func (fs *FrameStats) GetLatestSnapshot() *FrameStatsSnapshot {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.latestSnapshot == nil {
		return nil
	}
	snapshot := *fs.latestSnapshot
	return &snapshot
}
