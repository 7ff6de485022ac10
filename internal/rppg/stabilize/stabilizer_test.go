package stabilize

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/heartbeam-data/pulse.report/internal/rppg/landmarks"
	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// scaledFace places the anchor landmarks at 0.75x canonical scale,
// offset by (10, 7.5). With that geometry the crop-local transform is
// exactly identity, so the ROI must equal a direct crop at (55, 30).
func scaledFace() landmarks.Set {
	var lm landmarks.Set
	place := func(idx int, canonical vision.Point) {
		lm[idx] = vision.Point{X: 0.75*canonical.X + 10, Y: 0.75*canonical.Y + 7.5}
	}
	place(landmarks.LeftBrowPeak, vision.Point{X: 65, Y: 100})
	place(landmarks.RightBrowPeak, vision.Point{X: 135, Y: 100})
	place(landmarks.NoseBridge, vision.Point{X: 100, Y: 125})
	return lm
}

func gradientFrame(w, h int) vision.Frame {
	f := vision.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Set(x, y, uint8((x*3+y*5)%256), uint8((x*7+y)%256), uint8((x+y*11)%256))
		}
	}
	return f
}

func TestNewStabilizerDefaults(t *testing.T) {
	s := NewStabilizer(Config{})
	if s.Config().ROIWidth != 60 || s.Config().ROIHeight != 45 {
		t.Errorf("expected 60x45 defaults, got %+v", s.Config())
	}
}

func TestStabilizeMatchesDirectCrop(t *testing.T) {
	frame := gradientFrame(200, 150)
	s := NewStabilizer(DefaultConfig())

	roi, corners, err := s.Stabilize(frame, scaledFace())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roi.W != 60 || roi.H != 45 {
		t.Fatalf("expected 60x45 ROI, got %dx%d", roi.W, roi.H)
	}

	// Corner quad is the canonical forehead rectangle mapped to source.
	wantCorners := [4][2]float64{{55, 30}, {115, 30}, {115, 75}, {55, 75}}
	for i, want := range wantCorners {
		if math.Abs(corners[i].X-want[0]) > 1e-6 || math.Abs(corners[i].Y-want[1]) > 1e-6 {
			t.Errorf("corner %d = %+v, want (%v,%v)", i, corners[i], want[0], want[1])
		}
	}

	for y := 0; y < roi.H; y++ {
		for x := 0; x < roi.W; x++ {
			gb, gg, gr := roi.At(x, y)
			wb, wg, wr := frame.At(55+x, 30+y)
			if gb != wb || gg != wg || gr != wr {
				t.Fatalf("ROI(%d,%d) = (%d,%d,%d), want direct crop (%d,%d,%d)",
					x, y, gb, gg, gr, wb, wg, wr)
			}
		}
	}
}

func TestStabilizeDeterministic(t *testing.T) {
	frame := gradientFrame(200, 150)
	lm := scaledFace()
	s := NewStabilizer(DefaultConfig())

	first, _, err := s.Stabilize(frame, lm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snapshot := first.Clone()

	second, _, err := s.Stabilize(frame, lm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(snapshot.Pix, second.Pix) {
		t.Error("same frame and landmarks should produce identical ROI bytes")
	}
}

func TestStabilizeCollinearAnchors(t *testing.T) {
	frame := gradientFrame(100, 100)
	var lm landmarks.Set
	lm[landmarks.LeftBrowPeak] = vision.Point{X: 10, Y: 10}
	lm[landmarks.RightBrowPeak] = vision.Point{X: 20, Y: 20}
	lm[landmarks.NoseBridge] = vision.Point{X: 30, Y: 30}

	s := NewStabilizer(DefaultConfig())
	_, _, err := s.Stabilize(frame, lm)
	if !errors.Is(err, ErrGeometry) {
		t.Fatalf("expected ErrGeometry, got %v", err)
	}
}

func TestStabilizeOffFrame(t *testing.T) {
	frame := gradientFrame(100, 100)
	var lm landmarks.Set
	// A valid triangle far outside the frame bounds.
	lm[landmarks.LeftBrowPeak] = vision.Point{X: 1065, Y: 1100}
	lm[landmarks.RightBrowPeak] = vision.Point{X: 1135, Y: 1100}
	lm[landmarks.NoseBridge] = vision.Point{X: 1100, Y: 1125}

	s := NewStabilizer(DefaultConfig())
	_, _, err := s.Stabilize(frame, lm)
	if !errors.Is(err, ErrGeometry) {
		t.Fatalf("expected ErrGeometry for off-frame region, got %v", err)
	}
}

func TestStabilizeEmptyFrame(t *testing.T) {
	s := NewStabilizer(DefaultConfig())
	_, _, err := s.Stabilize(vision.Frame{}, scaledFace())
	if !errors.Is(err, ErrGeometry) {
		t.Fatalf("expected ErrGeometry for empty frame, got %v", err)
	}
}

func TestStabilizeUniformRegionUniformROI(t *testing.T) {
	frame := vision.NewFrame(200, 150)
	frame.Fill(40, 80, 120)

	s := NewStabilizer(DefaultConfig())
	roi, _, err := s.Stabilize(frame, scaledFace())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for y := 0; y < roi.H; y++ {
		for x := 0; x < roi.W; x++ {
			b, g, r := roi.At(x, y)
			if b != 40 || g != 80 || r != 120 {
				t.Fatalf("ROI(%d,%d) = (%d,%d,%d), want uniform (40,80,120)", x, y, b, g, r)
			}
		}
	}
}
