package rppg

import (
	"fmt"
	"math"

	"github.com/heartbeam-data/pulse.report/internal/rppg/landmarks"
	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// Proportions of the outer-eye-corner distance used by the legacy
// forehead box.
const (
	legacyBoxWidthRatio  = 0.70
	legacyBoxHeightRatio = 0.35
	legacyBoxLiftRatio   = 0.15
)

// LegacyForeheadBox derives an axis-aligned forehead rectangle from the
// brow midpoint, sized by the outer-eye-corner distance: width 0.70 and
// height 0.35 of that distance, centered horizontally on the brow mean
// with the bottom edge 0.15 of the distance above it. Landmark sets
// with coincident eye corners yield an empty rectangle.
//
// Deprecated: the affine-stabilized ROI (internal/rppg/stabilize) tracks
// head motion; this box does not. Kept for comparison runs only.
func LegacyForeheadBox(lm landmarks.Set) vision.Rect {
	d := lm.EyeDistance()
	if d <= 0 {
		return vision.Rect{}
	}
	bm := lm.BrowMean()
	w := legacyBoxWidthRatio * d
	h := legacyBoxHeightRatio * d
	x := bm.X - w/2
	y := bm.Y - legacyBoxLiftRatio*d - h
	return vision.Rect{
		X: int(math.Round(x)),
		Y: int(math.Round(y)),
		W: int(math.Round(w)),
		H: int(math.Round(h)),
	}
}

// LegacyMeanHue averages the hue channel over the box, clipped to the
// frame. Hue follows the OpenCV convention, 0-179. An empty clipped box
// yields an error.
//
// Deprecated: the canonical signal is the mean BGR sample (MeanBGR)
// feeding POS extraction; a single hue channel discards most of the
// pulse energy.
func LegacyMeanHue(frame vision.Frame, box vision.Rect) (float64, error) {
	clipped := box.Intersect(frame.Bounds())
	if clipped.Empty() {
		return 0, fmt.Errorf("hue box %v outside frame %v", box, frame.Bounds())
	}
	var sum float64
	for y := clipped.Y; y < clipped.Y+clipped.H; y++ {
		for x := clipped.X; x < clipped.X+clipped.W; x++ {
			b, g, r := frame.At(x, y)
			sum += hueOf(b, g, r)
		}
	}
	return sum / float64(clipped.W*clipped.H), nil
}

// hueOf converts one BGR pixel to OpenCV hue (degrees halved, 0-179).
// Achromatic pixels read as hue 0.
func hueOf(b, g, r uint8) float64 {
	fb, fg, fr := float64(b), float64(g), float64(r)
	max := math.Max(fb, math.Max(fg, fr))
	min := math.Min(fb, math.Min(fg, fr))
	if max == min {
		return 0
	}
	span := max - min
	var deg float64
	switch max {
	case fr:
		deg = 60 * (fg - fb) / span
		if deg < 0 {
			deg += 360
		}
	case fg:
		deg = 60*(fb-fr)/span + 120
	default:
		deg = 60*(fr-fg)/span + 240
	}
	return deg / 2
}
