package sqlite

import (
	"time"

	"github.com/heartbeam-data/pulse.report/internal/rppg"
)

// Recorder binds a store to one session and translates estimator output
// into reading rows. It satisfies the pipeline's reading sink interface.
type Recorder struct {
	store     *Store
	sessionID string
}

// NewRecorder creates a Recorder appending to the given session.
func NewRecorder(store *Store, sessionID string) *Recorder {
	return &Recorder{store: store, sessionID: sessionID}
}

// SessionID returns the session this recorder appends to.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// RecordEstimate persists one estimate. The peak ratio column stays NULL
// outside debug mode, where the estimator does not compute it.
func (r *Recorder) RecordEstimate(ts time.Time, est rppg.BPMEstimate) error {
	rd := &Reading{
		SessionID: r.sessionID,
		TNs:       ts.UnixNano(),
		BPM:       est.BPM,
		PeakBin:   est.PeakBin,
		PeakMag:   est.PeakMagnitude,
		State:     est.State.String(),
	}
	if est.PeakGapDB != 0 {
		v := est.PeakGapDB
		rd.RatioDB = &v
	}
	return r.store.InsertReading(rd)
}
