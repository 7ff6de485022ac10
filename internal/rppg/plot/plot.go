package plot

import (
	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// Default raster size for debug plots.
const (
	DefaultWidth  = 360
	DefaultHeight = 180
)

// Colors are BGR triples.
var (
	background = [3]uint8{24, 16, 16}
	gridline   = [3]uint8{56, 48, 48}
	trace      = [3]uint8{80, 220, 80}
)

// Render draws a scalar sequence as a line plot into a w x h raster.
//
// The series is min-max normalized to the raster height; a flat series
// widens its range by 1.0 so the trace sits on the midline instead of
// dividing by zero. Fewer than two samples yield an all-background
// raster of the requested size. Non-positive dimensions fall back to
// the defaults.
func Render(series []float64, w, h int) vision.Frame {
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	img := vision.NewFrame(w, h)
	if len(series) < 2 {
		// Nothing to plot. A zeroed raster reads as "no signal" on the HUD.
		return img
	}
	img.Fill(background[0], background[1], background[2])

	// Midline grid.
	img.DrawLine(0, h/2, w-1, h/2, gridline[0], gridline[1], gridline[2])

	lo, hi := series[0], series[0]
	for _, v := range series[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span == 0 {
		// Flat input: widen the range so the trace renders mid-raster.
		lo -= 0.5
		span = 1.0
	}

	n := len(series)
	toXY := func(i int) (int, int) {
		x := i * (w - 1) / (n - 1)
		norm := (series[i] - lo) / span
		y := int((1 - norm) * float64(h-1))
		if y < 0 {
			y = 0
		}
		if y > h-1 {
			y = h - 1
		}
		return x, y
	}

	px, py := toXY(0)
	for i := 1; i < n; i++ {
		x, y := toXY(i)
		img.DrawLine(px, py, x, y, trace[0], trace[1], trace[2])
		px, py = x, y
	}
	return img
}

// RenderDefault draws the series at the standard debug plot size.
func RenderDefault(series []float64) vision.Frame {
	return Render(series, DefaultWidth, DefaultHeight)
}
