package rppg

import (
	"fmt"

	"github.com/heartbeam-data/pulse.report/internal/rppg/window"
	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// MeanBGR reduces a region of interest to the spatial mean of each
// color channel, full 0-255 scale. The stabilizer guarantees rasters of
// at least 2x2, so an empty raster here is a caller bug and yields an
// error rather than a panic.
func MeanBGR(roi vision.Frame) (window.ColorSample, error) {
	if roi.Empty() {
		return window.ColorSample{}, fmt.Errorf("sampling empty raster")
	}
	var b, g, r float64
	for i := 0; i < len(roi.Pix); i += vision.Channels {
		b += float64(roi.Pix[i])
		g += float64(roi.Pix[i+1])
		r += float64(roi.Pix[i+2])
	}
	n := float64(roi.W * roi.H)
	return window.ColorSample{B: b / n, G: g / n, R: r / n}, nil
}
