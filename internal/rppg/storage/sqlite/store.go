package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps the session database. The handle is embedded and exported so
// admin surfaces (tailsql, backups) can reach the raw connection.
type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies
// the connection pragmas the per-frame write rate depends on. The busy
// timeout matters most: readings arrive from the capture loop while the
// monitor reads summaries on another connection.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &Store{db}, nil
}

// Session records one estimation run: when it started, the capture rate and
// window the analyzer was configured with, and the search band.
type Session struct {
	ID          string  `json:"id"`
	StartedAtNs int64   `json:"started_at_ns"`
	EndedAtNs   *int64  `json:"ended_at_ns,omitempty"`
	FPS         float64 `json:"fps"`
	WindowSecs  float64 `json:"window_secs"`
	MinBPM      float64 `json:"min_bpm"`
	MaxBPM      float64 `json:"max_bpm"`
	Notes       string  `json:"notes,omitempty"`
}

// Reading is one estimator output row. RatioDB is nil when the run was not
// in debug mode (the peak ratio is only computed there). State holds the
// estimate state string ("ready", "noise-floor").
type Reading struct {
	ID        int64    `json:"id"`
	SessionID string   `json:"session_id"`
	TNs       int64    `json:"t_ns"`
	BPM       float64  `json:"bpm"`
	PeakBin   int      `json:"peak_bin"`
	PeakMag   float64  `json:"peak_mag"`
	RatioDB   *float64 `json:"ratio_db,omitempty"`
	State     string   `json:"state"`
}

// Reference is one sample from a contact reference device (pulse oximeter).
// SpO2 is nil when the device line carried no saturation field.
type Reference struct {
	ID        int64    `json:"id"`
	SessionID string   `json:"session_id"`
	TNs       int64    `json:"t_ns"`
	BPM       float64  `json:"bpm"`
	SpO2      *float64 `json:"spo2,omitempty"`
}

// Summary aggregates the ready readings of a session.
type Summary struct {
	SessionID string  `json:"session_id"`
	Count     int64   `json:"count"`
	MeanBPM   float64 `json:"mean_bpm"`
	MinBPM    float64 `json:"min_bpm"`
	MaxBPM    float64 `json:"max_bpm"`
}

// PairedReading joins an estimator reading with the nearest reference
// sample inside the pairing horizon.
type PairedReading struct {
	TNs          int64   `json:"t_ns"`
	EstimatedBPM float64 `json:"estimated_bpm"`
	ReferenceBPM float64 `json:"reference_bpm"`
}

// CreateSession inserts a new session row. If sess.ID is empty, a new UUID
// is generated. If sess.StartedAtNs is zero, the current time is used.
func (s *Store) CreateSession(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.StartedAtNs == 0 {
		sess.StartedAtNs = time.Now().UnixNano()
	}

	query := `
		INSERT INTO rppg_sessions (
			id, started_at_ns, ended_at_ns, fps, window_secs,
			min_bpm, max_bpm, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.Exec(query,
		sess.ID,
		sess.StartedAtNs,
		nullInt64(sess.EndedAtNs),
		sess.FPS,
		sess.WindowSecs,
		sess.MinBPM,
		sess.MaxBPM,
		nullString(sess.Notes),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// CloseSession stamps the session's end time.
func (s *Store) CloseSession(sessionID string, endedAtNs int64) error {
	if endedAtNs == 0 {
		endedAtNs = time.Now().UnixNano()
	}

	res, err := s.Exec(`UPDATE rppg_sessions SET ended_at_ns = ? WHERE id = ?`, endedAtNs, sessionID)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	return nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(sessionID string) (*Session, error) {
	query := `
		SELECT id, started_at_ns, ended_at_ns, fps, window_secs,
		       min_bpm, max_bpm, notes
		FROM rppg_sessions
		WHERE id = ?
	`

	var sess Session
	var endedAtNs sql.NullInt64
	var notes sql.NullString

	err := s.QueryRow(query, sessionID).Scan(
		&sess.ID,
		&sess.StartedAtNs,
		&endedAtNs,
		&sess.FPS,
		&sess.WindowSecs,
		&sess.MinBPM,
		&sess.MaxBPM,
		&notes,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if endedAtNs.Valid {
		v := endedAtNs.Int64
		sess.EndedAtNs = &v
	}
	if notes.Valid {
		sess.Notes = notes.String
	}

	return &sess, nil
}

// RecentSessions retrieves up to limit sessions, newest first. A limit of
// zero or less falls back to 20.
func (s *Store) RecentSessions(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, started_at_ns, ended_at_ns, fps, window_secs,
		       min_bpm, max_bpm, notes
		FROM rppg_sessions
		ORDER BY started_at_ns DESC
		LIMIT ?
	`

	rows, err := s.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var endedAtNs sql.NullInt64
		var notes sql.NullString

		err := rows.Scan(
			&sess.ID,
			&sess.StartedAtNs,
			&endedAtNs,
			&sess.FPS,
			&sess.WindowSecs,
			&sess.MinBPM,
			&sess.MaxBPM,
			&notes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}

		if endedAtNs.Valid {
			v := endedAtNs.Int64
			sess.EndedAtNs = &v
		}
		if notes.Valid {
			sess.Notes = notes.String
		}

		sessions = append(sessions, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

// InsertReading appends one estimator output row to a session.
func (s *Store) InsertReading(r *Reading) error {
	query := `
		INSERT INTO rppg_readings (
			session_id, t_ns, bpm, peak_bin, peak_mag, ratio_db, state
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.Exec(query,
		r.SessionID,
		r.TNs,
		r.BPM,
		r.PeakBin,
		r.PeakMag,
		nullFloat64(r.RatioDB),
		r.State,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

// ListReadings retrieves a session's readings in time order. A limit of
// zero or less returns all of them.
func (s *Store) ListReadings(sessionID string, limit int) ([]*Reading, error) {
	query := `
		SELECT id, session_id, t_ns, bpm, peak_bin, peak_mag, ratio_db, state
		FROM rppg_readings
		WHERE session_id = ?
		ORDER BY t_ns ASC
	`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	var readings []*Reading
	for rows.Next() {
		var r Reading
		var ratioDB sql.NullFloat64

		err := rows.Scan(
			&r.ID,
			&r.SessionID,
			&r.TNs,
			&r.BPM,
			&r.PeakBin,
			&r.PeakMag,
			&ratioDB,
			&r.State,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reading row: %w", err)
		}

		if ratioDB.Valid {
			v := ratioDB.Float64
			r.RatioDB = &v
		}

		readings = append(readings, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}

	return readings, nil
}

// SessionSummary aggregates a session's ready readings. Noise-floor rows
// carry a zero BPM and would drag the mean, so only ready rows count.
func (s *Store) SessionSummary(sessionID string) (*Summary, error) {
	query := `
		SELECT COUNT(*), AVG(bpm), MIN(bpm), MAX(bpm)
		FROM rppg_readings
		WHERE session_id = ? AND state = 'ready'
	`

	sum := Summary{SessionID: sessionID}
	var mean, min, max sql.NullFloat64

	err := s.QueryRow(query, sessionID).Scan(&sum.Count, &mean, &min, &max)
	if err != nil {
		return nil, fmt.Errorf("session summary: %w", err)
	}

	// Aggregates are NULL for an empty session; the zero values stand.
	if mean.Valid {
		sum.MeanBPM = mean.Float64
	}
	if min.Valid {
		sum.MinBPM = min.Float64
	}
	if max.Valid {
		sum.MaxBPM = max.Float64
	}

	return &sum, nil
}

// InsertReference appends one reference device sample to a session.
func (s *Store) InsertReference(r *Reference) error {
	query := `
		INSERT INTO rppg_reference (session_id, t_ns, bpm, spo2)
		VALUES (?, ?, ?, ?)
	`

	res, err := s.Exec(query,
		r.SessionID,
		r.TNs,
		r.BPM,
		nullFloat64(r.SpO2),
	)
	if err != nil {
		return fmt.Errorf("insert reference: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

// ListReference retrieves a session's reference samples in time order.
func (s *Store) ListReference(sessionID string) ([]*Reference, error) {
	query := `
		SELECT id, session_id, t_ns, bpm, spo2
		FROM rppg_reference
		WHERE session_id = ?
		ORDER BY t_ns ASC
	`

	rows, err := s.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list reference: %w", err)
	}
	defer rows.Close()

	var refs []*Reference
	for rows.Next() {
		var r Reference
		var spo2 sql.NullFloat64

		if err := rows.Scan(&r.ID, &r.SessionID, &r.TNs, &r.BPM, &spo2); err != nil {
			return nil, fmt.Errorf("scan reference row: %w", err)
		}
		if spo2.Valid {
			v := spo2.Float64
			r.SpO2 = &v
		}

		refs = append(refs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reference: %w", err)
	}

	return refs, nil
}

// PairedReadings joins each ready reading with the nearest reference sample
// within horizonNs. Readings with no reference inside the horizon are
// dropped from the result.
func (s *Store) PairedReadings(sessionID string, horizonNs int64) ([]*PairedReading, error) {
	query := `
		SELECT r.t_ns, r.bpm,
		       (SELECT f.bpm FROM rppg_reference f
		        WHERE f.session_id = r.session_id
		          AND ABS(f.t_ns - r.t_ns) <= ?
		        ORDER BY ABS(f.t_ns - r.t_ns) ASC
		        LIMIT 1)
		FROM rppg_readings r
		WHERE r.session_id = ? AND r.state = 'ready'
		ORDER BY r.t_ns ASC
	`

	rows, err := s.Query(query, horizonNs, sessionID)
	if err != nil {
		return nil, fmt.Errorf("paired readings: %w", err)
	}
	defer rows.Close()

	var pairs []*PairedReading
	for rows.Next() {
		var p PairedReading
		var refBPM sql.NullFloat64

		if err := rows.Scan(&p.TNs, &p.EstimatedBPM, &refBPM); err != nil {
			return nil, fmt.Errorf("scan paired row: %w", err)
		}
		if !refBPM.Valid {
			continue
		}
		p.ReferenceBPM = refBPM.Float64

		pairs = append(pairs, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("paired readings: %w", err)
	}

	return pairs, nil
}

func nullFloat64(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt64(i *int64) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
