package reference

import (
	"math"
	"sync"
	"time"

	"github.com/heartbeam-data/pulse.report/internal/rppg"
)

// DefaultHorizon is how stale a reference reading may be and still pair
// with a camera estimate. The oximeter updates about once a second.
const DefaultHorizon = 2 * time.Second

// Comparator pairs camera estimates with the freshest reference reading
// and accumulates agreement statistics. Estimates arrive from the capture
// loop and readings from the port goroutine, so all state sits behind one
// mutex.
type Comparator struct {
	mu      sync.Mutex
	horizon time.Duration

	last   Reading
	hasRef bool

	signedErr rppg.RunningStats
	absErr    rppg.RunningStats
	sqErr     rppg.RunningStats
	unpaired  int64
}

// NewComparator creates a Comparator with the given pairing horizon.
// Non-positive horizons fall back to DefaultHorizon.
func NewComparator(horizon time.Duration) *Comparator {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Comparator{horizon: horizon}
}

// ObserveReference records the latest device reading.
func (c *Comparator) ObserveReference(r Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = r
	c.hasRef = true
}

// ObserveEstimate pairs a camera estimate with the newest reference
// reading if it is inside the horizon. Stale or absent references count
// as unpaired.
func (c *Comparator) ObserveEstimate(ts time.Time, bpm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasRef {
		c.unpaired++
		return
	}
	age := ts.Sub(c.last.At)
	if age < 0 {
		age = -age
	}
	if age > c.horizon {
		c.unpaired++
		return
	}

	e := bpm - c.last.BPM
	c.signedErr.Push(e)
	c.absErr.Push(math.Abs(e))
	c.sqErr.Push(e * e)
}

// LastReference returns the newest device reading, if any has arrived.
func (c *Comparator) LastReference() (Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasRef
}

// Stats is a snapshot of the agreement statistics. Bias is the mean
// signed error (camera minus reference), so a positive bias means the
// camera reads high.
type Stats struct {
	Pairs    int64   `json:"pairs"`
	Unpaired int64   `json:"unpaired"`
	Bias     float64 `json:"bias"`
	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`
}

// Stats returns the current agreement statistics.
func (c *Comparator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Pairs:    c.signedErr.Count(),
		Unpaired: c.unpaired,
		Bias:     c.signedErr.Mean(),
		MAE:      c.absErr.Mean(),
		RMSE:     math.Sqrt(c.sqErr.Mean()),
	}
}

// Reset clears all accumulated statistics but keeps the last reference
// reading.
func (c *Comparator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signedErr.Reset()
	c.absErr.Reset()
	c.sqErr.Reset()
	c.unpaired = 0
}
