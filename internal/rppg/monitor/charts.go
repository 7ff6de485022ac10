package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/heartbeam-data/pulse.report/internal/httputil"
	"github.com/heartbeam-data/pulse.report/internal/rppg/reference"
	"github.com/heartbeam-data/pulse.report/internal/rppg/storage/sqlite"
)

// sessionSeries is the chart-ready view of one session: elapsed seconds on
// the x axis, camera BPM per ready reading, and the nearest reference BPM
// where one exists inside the pairing horizon.
type sessionSeries struct {
	session *sqlite.Session
	elapsed []float64
	camera  []float64
	ref     []*float64
	hasRef  bool
}

// loadSessionSeries fetches and aligns the data both chart endpoints share.
func (ws *WebServer) loadSessionSeries(sessionID string) (*sessionSeries, error) {
	sess, err := ws.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	readings, err := ws.store.ListReadings(sessionID, 0)
	if err != nil {
		return nil, err
	}

	pairs, err := ws.store.PairedReadings(sessionID, int64(reference.DefaultHorizon))
	if err != nil {
		return nil, err
	}
	refByT := make(map[int64]float64, len(pairs))
	for _, p := range pairs {
		refByT[p.TNs] = p.ReferenceBPM
	}

	s := &sessionSeries{session: sess}
	for _, rd := range readings {
		if rd.State != "ready" {
			continue
		}
		s.elapsed = append(s.elapsed, float64(rd.TNs-sess.StartedAtNs)/1e9)
		s.camera = append(s.camera, rd.BPM)
		if refBPM, ok := refByT[rd.TNs]; ok {
			v := refBPM
			s.ref = append(s.ref, &v)
			s.hasRef = true
		} else {
			s.ref = append(s.ref, nil)
		}
	}

	return s, nil
}

// handleSessionChart renders an HTML line chart of one session's heart
// rate over time, with the reference device overlaid when samples exist.
// Query params:
//
//	id (required)
func (ws *WebServer) handleSessionChart(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil {
		httputil.InternalServerError(w, "no database configured")
		return
	}

	sessionID := r.URL.Query().Get("id")
	if sessionID == "" {
		httputil.BadRequest(w, "missing 'id' parameter")
		return
	}

	series, err := ws.loadSessionSeries(sessionID)
	if err != nil {
		httputil.NotFound(w, fmt.Sprintf("load session: %v", err))
		return
	}
	if len(series.camera) == 0 {
		httputil.NotFound(w, "no ready readings for session")
		return
	}

	x := make([]string, len(series.elapsed))
	camera := make([]opts.LineData, len(series.camera))
	ref := make([]opts.LineData, len(series.ref))
	for i := range series.elapsed {
		x[i] = fmt.Sprintf("%.1f", series.elapsed[i])
		camera[i] = opts.LineData{Value: series.camera[i]}
		if series.ref[i] != nil {
			ref[i] = opts.LineData{Value: *series.ref[i]}
		} else {
			ref[i] = opts.LineData{Value: nil}
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "rPPG Session", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title: "Heart rate over time",
			Subtitle: fmt.Sprintf("session=%s fps=%.1f window=%.1fs band=%.0f..%.0f bpm",
				series.session.ID, series.session.FPS, series.session.WindowSecs,
				series.session.MinBPM, series.session.MaxBPM),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "BPM"}),
	)

	line.SetXAxis(x).
		AddSeries("camera", camera, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	if series.hasRef {
		line.AddSeries("reference", ref, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
