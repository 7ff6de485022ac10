package testutil

import (
	"math"

	"github.com/heartbeam-data/pulse.report/internal/rppg/landmarks"
	"github.com/heartbeam-data/pulse.report/internal/rppg/window"
	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// PulsedSample synthesizes the mean skin color of frame i of an
// n-frame window, with a small green-channel oscillation landing
// exactly on the given DFT bin.
func PulsedSample(i, bin, n int) window.ColorSample {
	g := 128 + 5*math.Cos(2*math.Pi*float64(bin)*float64(i)/float64(n))
	return window.ColorSample{B: 128, G: g, R: 128}
}

// FaceLandmarks builds a 68-point set whose brow and nose anchors sit
// at scale times their canonical stabilizer positions, shifted by
// (offX, offY). Scale 0.75 with integer-friendly offsets makes the
// stabilized crop land on whole pixels, which keeps warp output
// bit-comparable in tests. The brow arc and eye corners are filled in
// so the legacy box geometry works on the same fixture.
func FaceLandmarks(scale, offX, offY float64) landmarks.Set {
	at := func(x, y float64) vision.Point {
		return vision.Point{X: x*scale + offX, Y: y*scale + offY}
	}
	var lm landmarks.Set
	for i := range lm {
		lm[i] = at(100, 140)
	}
	lm[landmarks.LeftBrowOuter] = at(55, 102)
	lm[18] = at(60, 99)
	lm[landmarks.LeftBrowPeak] = at(65, 100)
	lm[20] = at(72, 100)
	lm[landmarks.LeftBrowInner] = at(80, 101)
	lm[landmarks.RightBrowInner] = at(120, 101)
	lm[23] = at(128, 100)
	lm[landmarks.RightBrowPeak] = at(135, 100)
	lm[25] = at(140, 99)
	lm[landmarks.RightBrowOuter] = at(145, 102)
	lm[landmarks.NoseBridge] = at(100, 125)
	lm[landmarks.LeftEyeOuter] = at(58, 112)
	lm[landmarks.RightEyeOuter] = at(142, 112)
	return lm
}

// PulsedFaceFrame renders a uniform frame carrying the window
// oscillation for frame i. Uniform fill makes the stabilized ROI mean
// equal the fill color regardless of where the box lands.
func PulsedFaceFrame(w, h, i, bin, n int) vision.Frame {
	f := vision.NewFrame(w, h)
	s := PulsedSample(i, bin, n)
	f.Fill(uint8(math.Round(s.B)), uint8(math.Round(s.G)), uint8(math.Round(s.R)))
	return f
}
