package landmarks

import (
	"math"

	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// Count is the number of points in a standard 68-point facial landmark
// annotation.
const Count = 68

// Named indices into the 68-point annotation. Only the points the
// estimation core reads are named; the rest travel opaquely.
const (
	LeftBrowOuter  = 17 // start of the left eyebrow arc
	LeftBrowPeak   = 19 // stabilizer anchor
	LeftBrowInner  = 21 // end of the left eyebrow arc
	RightBrowInner = 22 // start of the right eyebrow arc
	RightBrowPeak  = 24 // stabilizer anchor
	RightBrowOuter = 26 // end of the right eyebrow arc
	NoseBridge     = 27 // stabilizer anchor
	LeftEyeOuter   = 36 // legacy ROI sizing
	RightEyeOuter  = 45 // legacy ROI sizing
)

// Set is one face's landmark positions in source-image pixel
// coordinates, indexed per the standard 68-point annotation.
type Set [Count]vision.Point

// Anchors returns the three stabilizer anchor points: left brow peak,
// right brow peak, nose bridge.
func (s Set) Anchors() [3]vision.Point {
	return [3]vision.Point{s[LeftBrowPeak], s[RightBrowPeak], s[NoseBridge]}
}

// AnchorCentroid returns the mean position of the three stabilizer
// anchors.
func (s Set) AnchorCentroid() vision.Point {
	a := s.Anchors()
	return vision.Point{
		X: (a[0].X + a[1].X + a[2].X) / 3,
		Y: (a[0].Y + a[1].Y + a[2].Y) / 3,
	}
}

// BrowMean returns the mean position of the ten eyebrow points (17-26).
// Used by the legacy forehead box.
func (s Set) BrowMean() vision.Point {
	var sx, sy float64
	for i := LeftBrowOuter; i <= RightBrowOuter; i++ {
		sx += s[i].X
		sy += s[i].Y
	}
	return vision.Point{X: sx / 10, Y: sy / 10}
}

// EyeDistance returns the distance between the outer eye corners.
// Used by the legacy forehead box for scale.
func (s Set) EyeDistance() float64 {
	dx := s[RightEyeOuter].X - s[LeftEyeOuter].X
	dy := s[RightEyeOuter].Y - s[LeftEyeOuter].Y
	return math.Hypot(dx, dy)
}

// SelectCentral picks the landmark set whose anchor centroid lies
// nearest the frame centre. Detectors may report several faces; the
// estimator tracks exactly one. Ties keep the lowest index. Returns
// false when the slice is empty.
func SelectCentral(sets []Set, frameW, frameH int) (Set, bool) {
	if len(sets) == 0 {
		return Set{}, false
	}
	cx := float64(frameW) / 2
	cy := float64(frameH) / 2

	best := 0
	bestDist := math.Inf(1)
	for i, s := range sets {
		c := s.AnchorCentroid()
		d := math.Hypot(c.X-cx, c.Y-cy)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return sets[best], true
}
