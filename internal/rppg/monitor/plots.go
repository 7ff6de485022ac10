package monitor

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/heartbeam-data/pulse.report/internal/httputil"
	"github.com/heartbeam-data/pulse.report/internal/monitoring"
)

// handleSessionPlot renders the same session series as the HTML chart,
// but as a static PNG suitable for reports.
// Query params:
//
//	id (required)
func (ws *WebServer) handleSessionPlot(w http.ResponseWriter, r *http.Request) {
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

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Heart rate - session %s", series.session.ID)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "BPM"

	cameraPts := make(plotter.XYs, 0, len(series.camera))
	refPts := make(plotter.XYs, 0, len(series.ref))
	for i := range series.elapsed {
		cameraPts = append(cameraPts, plotter.XY{X: series.elapsed[i], Y: series.camera[i]})
		if series.ref[i] != nil {
			refPts = append(refPts, plotter.XY{X: series.elapsed[i], Y: *series.ref[i]})
		}
	}

	cameraLine, err := plotter.NewLine(cameraPts)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to build plot: %v", err))
		return
	}
	cameraLine.Color = color.RGBA{R: 64, G: 192, B: 64, A: 255}
	cameraLine.Width = vg.Points(1)
	p.Add(cameraLine)
	p.Legend.Add("camera", cameraLine)

	if len(refPts) > 0 {
		refLine, err := plotter.NewLine(refPts)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to build plot: %v", err))
			return
		}
		refLine.Color = color.RGBA{R: 220, G: 80, B: 64, A: 255}
		refLine.Width = vg.Points(1)
		p.Add(refLine)
		p.Legend.Add("reference", refLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		monitoring.Logf("session plot: write response: %v", err)
	}
}

// handleHUDFrame serves the most recent composed overlay frame as a PNG,
// the same view the on-screen HUD shows. Returns 404 until the pipeline
// has published a frame.
func (ws *WebServer) handleHUDFrame(w http.ResponseWriter, r *http.Request) {
	if ws.hud == nil {
		httputil.InternalServerError(w, "no HUD state configured")
		return
	}

	frame, ok := ws.hud.ComposeFrame()
	if !ok {
		httputil.NotFound(w, "no frame published yet")
		return
	}

	img := image.NewRGBA(image.Rect(0, 0, frame.W, frame.H))
	for y := 0; y < frame.H; y++ {
		for x := 0; x < frame.W; x++ {
			b, g, rr := frame.At(x, y)
			img.SetRGBA(x, y, color.RGBA{R: rr, G: g, B: b, A: 255})
		}
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		monitoring.Logf("hud frame: write response: %v", err)
	}
}
