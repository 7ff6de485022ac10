package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/heartbeam-data/pulse.report/internal/rppg"
)

// setupTestStore opens a store on a temp database and applies the real
// migrations from db/migrations, so tests cannot drift from the schema.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	migrationsDir := filepath.Join("..", "..", "..", "..", "db", "migrations")
	if err := store.MigrateUp(migrationsDir); err != nil {
		store.Close()
		t.Fatalf("MigrateUp failed: %v", err)
	}

	cleanup := func() {
		store.Close()
	}

	return store, cleanup
}

func mustCreateSession(t *testing.T, store *Store) *Session {
	t.Helper()

	sess := &Session{
		FPS:        30,
		WindowSecs: 8.5,
		MinBPM:     45,
		MaxBPM:     180,
		Notes:      "bench run",
	}
	if err := store.CreateSession(sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return sess
}

func TestOpenAppliesPragmas(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var journalMode string
	if err := store.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode wal, got %q", journalMode)
	}

	var foreignKeys int
	if err := store.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("Expected foreign_keys on, got %d", foreignKeys)
	}
}

func TestMigrateVersion(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	migrationsDir := filepath.Join("..", "..", "..", "..", "db", "migrations")
	version, dirty, err := store.MigrateVersion(migrationsDir)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("Expected schema version 1, got %d", version)
	}
	if dirty {
		t.Error("Expected clean migration state")
	}
}

func TestCreateAndGetSession(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	sess := mustCreateSession(t, store)

	if sess.ID == "" {
		t.Fatal("Expected generated session ID")
	}
	if sess.StartedAtNs == 0 {
		t.Fatal("Expected generated start timestamp")
	}

	got, err := store.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}

	if got.ID != sess.ID {
		t.Errorf("Expected id %q, got %q", sess.ID, got.ID)
	}
	if got.StartedAtNs != sess.StartedAtNs {
		t.Errorf("Expected started_at_ns %d, got %d", sess.StartedAtNs, got.StartedAtNs)
	}
	if got.FPS != 30 || got.WindowSecs != 8.5 {
		t.Errorf("Expected fps 30 window 8.5, got %v / %v", got.FPS, got.WindowSecs)
	}
	if got.MinBPM != 45 || got.MaxBPM != 180 {
		t.Errorf("Expected band 45..180, got %v..%v", got.MinBPM, got.MaxBPM)
	}
	if got.Notes != "bench run" {
		t.Errorf("Expected notes to round-trip, got %q", got.Notes)
	}
	if got.EndedAtNs != nil {
		t.Errorf("Expected open session, got ended_at_ns %d", *got.EndedAtNs)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := store.GetSession("no-such-session"); err == nil {
		t.Error("Expected error for missing session")
	}
}

func TestCloseSession(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	sess := mustCreateSession(t, store)

	endedAt := sess.StartedAtNs + int64(90*time.Second)
	if err := store.CloseSession(sess.ID, endedAt); err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}

	got, err := store.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.EndedAtNs == nil {
		t.Fatal("Expected ended_at_ns to be set")
	}
	if *got.EndedAtNs != endedAt {
		t.Errorf("Expected ended_at_ns %d, got %d", endedAt, *got.EndedAtNs)
	}

	if err := store.CloseSession("no-such-session", endedAt); err == nil {
		t.Error("Expected error closing missing session")
	}
}

func TestRecentSessionsOrder(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	base := time.Now().UnixNano()
	for i := 0; i < 3; i++ {
		sess := &Session{
			StartedAtNs: base + int64(i)*int64(time.Minute),
			FPS:         30,
			WindowSecs:  8.5,
			MinBPM:      45,
			MaxBPM:      180,
		}
		if err := store.CreateSession(sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	sessions, err := store.RecentSessions(2)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].StartedAtNs <= sessions[1].StartedAtNs {
		t.Errorf("Expected newest first, got %d then %d",
			sessions[0].StartedAtNs, sessions[1].StartedAtNs)
	}
}

func TestInsertAndListReadings(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	sess := mustCreateSession(t, store)

	ratio := 6.5
	readings := []*Reading{
		{SessionID: sess.ID, TNs: 1e9, BPM: 70.2, PeakBin: 10, PeakMag: 4.2, State: "ready"},
		{SessionID: sess.ID, TNs: 2e9, BPM: 0, PeakBin: 0, PeakMag: 0, State: "noise-floor"},
		{SessionID: sess.ID, TNs: 3e9, BPM: 71.8, PeakBin: 10, PeakMag: 4.4, RatioDB: &ratio, State: "ready"},
	}
	for _, r := range readings {
		if err := store.InsertReading(r); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
		if r.ID <= 0 {
			t.Errorf("Expected positive reading ID, got %d", r.ID)
		}
	}

	got, err := store.ListReadings(sess.ID, 0)
	if err != nil {
		t.Fatalf("ListReadings failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 readings, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].TNs < got[i-1].TNs {
			t.Errorf("Expected time order, got %d before %d", got[i-1].TNs, got[i].TNs)
		}
	}

	if got[0].RatioDB != nil {
		t.Errorf("Expected nil ratio_db on non-debug reading, got %v", *got[0].RatioDB)
	}
	if got[2].RatioDB == nil || *got[2].RatioDB != ratio {
		t.Errorf("Expected ratio_db %v to round-trip, got %v", ratio, got[2].RatioDB)
	}
	if got[1].State != "noise-floor" {
		t.Errorf("Expected state noise-floor, got %q", got[1].State)
	}

	limited, err := store.ListReadings(sess.ID, 2)
	if err != nil {
		t.Fatalf("ListReadings with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 readings with limit, got %d", len(limited))
	}
}

func TestInsertReadingRequiresSession(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	r := &Reading{SessionID: "no-such-session", TNs: 1e9, BPM: 70, State: "ready"}
	if err := store.InsertReading(r); err == nil {
		t.Error("Expected foreign key violation for missing session")
	}
}

func TestSessionSummary(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	sess := mustCreateSession(t, store)

	rows := []*Reading{
		{SessionID: sess.ID, TNs: 1e9, BPM: 70, PeakBin: 10, PeakMag: 4, State: "ready"},
		{SessionID: sess.ID, TNs: 2e9, BPM: 74, PeakBin: 11, PeakMag: 4, State: "ready"},
		{SessionID: sess.ID, TNs: 3e9, BPM: 0, PeakBin: 0, PeakMag: 0, State: "noise-floor"},
	}
	for _, r := range rows {
		if err := store.InsertReading(r); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}

	sum, err := store.SessionSummary(sess.ID)
	if err != nil {
		t.Fatalf("SessionSummary failed: %v", err)
	}

	if sum.Count != 2 {
		t.Errorf("Expected 2 ready readings, got %d", sum.Count)
	}
	if sum.MeanBPM != 72 {
		t.Errorf("Expected mean 72, got %v", sum.MeanBPM)
	}
	if sum.MinBPM != 70 || sum.MaxBPM != 74 {
		t.Errorf("Expected min 70 max 74, got %v / %v", sum.MinBPM, sum.MaxBPM)
	}
}

func TestSessionSummaryEmpty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	sess := mustCreateSession(t, store)

	sum, err := store.SessionSummary(sess.ID)
	if err != nil {
		t.Fatalf("SessionSummary failed: %v", err)
	}
	if sum.Count != 0 {
		t.Errorf("Expected 0 readings, got %d", sum.Count)
	}
	if sum.MeanBPM != 0 || sum.MinBPM != 0 || sum.MaxBPM != 0 {
		t.Errorf("Expected zero aggregates for empty session, got %+v", sum)
	}
}

func TestReferenceRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	sess := mustCreateSession(t, store)

	spo2 := 98.0
	refs := []*Reference{
		{SessionID: sess.ID, TNs: 1e9, BPM: 71, SpO2: &spo2},
		{SessionID: sess.ID, TNs: 2e9, BPM: 72},
	}
	for _, r := range refs {
		if err := store.InsertReference(r); err != nil {
			t.Fatalf("InsertReference failed: %v", err)
		}
	}

	got, err := store.ListReference(sess.ID)
	if err != nil {
		t.Fatalf("ListReference failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 reference samples, got %d", len(got))
	}
	if got[0].SpO2 == nil || *got[0].SpO2 != spo2 {
		t.Errorf("Expected spo2 %v to round-trip, got %v", spo2, got[0].SpO2)
	}
	if got[1].SpO2 != nil {
		t.Errorf("Expected nil spo2, got %v", *got[1].SpO2)
	}
}

func TestPairedReadings(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	sess := mustCreateSession(t, store)

	sec := int64(time.Second)
	readings := []*Reading{
		{SessionID: sess.ID, TNs: 10 * sec, BPM: 70.5, PeakBin: 10, PeakMag: 4, State: "ready"},
		{SessionID: sess.ID, TNs: 20 * sec, BPM: 72.1, PeakBin: 10, PeakMag: 4, State: "ready"},
		{SessionID: sess.ID, TNs: 30 * sec, BPM: 73.0, PeakBin: 10, PeakMag: 4, State: "ready"},
		{SessionID: sess.ID, TNs: 40 * sec, BPM: 0, PeakBin: 0, PeakMag: 0, State: "noise-floor"},
	}
	for _, r := range readings {
		if err := store.InsertReading(r); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}

	refs := []*Reference{
		{SessionID: sess.ID, TNs: 10*sec + 500e6, BPM: 71}, // 0.5s from first reading
		{SessionID: sess.ID, TNs: 19*sec + 200e6, BPM: 73}, // 0.8s from second
	}
	for _, r := range refs {
		if err := store.InsertReference(r); err != nil {
			t.Fatalf("InsertReference failed: %v", err)
		}
	}

	pairs, err := store.PairedReadings(sess.ID, 2*sec)
	if err != nil {
		t.Fatalf("PairedReadings failed: %v", err)
	}

	// Reading at 30s has no reference within 2s; the noise-floor row is
	// excluded outright.
	if len(pairs) != 2 {
		t.Fatalf("Expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].EstimatedBPM != 70.5 || pairs[0].ReferenceBPM != 71 {
		t.Errorf("Expected pair (70.5, 71), got (%v, %v)", pairs[0].EstimatedBPM, pairs[0].ReferenceBPM)
	}
	if pairs[1].EstimatedBPM != 72.1 || pairs[1].ReferenceBPM != 73 {
		t.Errorf("Expected pair (72.1, 73), got (%v, %v)", pairs[1].EstimatedBPM, pairs[1].ReferenceBPM)
	}
}

func TestRecorder(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	sess := mustCreateSession(t, store)
	rec := NewRecorder(store, sess.ID)

	if rec.SessionID() != sess.ID {
		t.Errorf("Expected session id %q, got %q", sess.ID, rec.SessionID())
	}

	ts := time.Unix(100, 0)
	plain := rppg.BPMEstimate{
		State:         rppg.StateReady,
		BPM:           70.6,
		PeakBin:       10,
		PeakMagnitude: 4.2,
	}
	if err := rec.RecordEstimate(ts, plain); err != nil {
		t.Fatalf("RecordEstimate failed: %v", err)
	}

	debug := plain
	debug.PeakGapDB = 7.25
	if err := rec.RecordEstimate(ts.Add(time.Second), debug); err != nil {
		t.Fatalf("RecordEstimate failed: %v", err)
	}

	got, err := store.ListReadings(sess.ID, 0)
	if err != nil {
		t.Fatalf("ListReadings failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 readings, got %d", len(got))
	}

	if got[0].TNs != ts.UnixNano() {
		t.Errorf("Expected t_ns %d, got %d", ts.UnixNano(), got[0].TNs)
	}
	if got[0].BPM != 70.6 || got[0].State != "ready" {
		t.Errorf("Expected ready 70.6, got %q %v", got[0].State, got[0].BPM)
	}
	if got[0].RatioDB != nil {
		t.Errorf("Expected nil ratio_db outside debug, got %v", *got[0].RatioDB)
	}
	if got[1].RatioDB == nil || *got[1].RatioDB != 7.25 {
		t.Errorf("Expected ratio_db 7.25 in debug, got %v", got[1].RatioDB)
	}
}
