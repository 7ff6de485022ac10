package stabilize

import (
	"errors"
	"fmt"

	"github.com/heartbeam-data/pulse.report/internal/rppg/landmarks"
	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// ErrGeometry is the defined per-frame failure of the stabilizer:
// degenerate anchors, an unsolvable transform, or a forehead region
// that falls off the frame. Callers treat it as a normal outcome, not
// a fault.
var ErrGeometry = errors.New("forehead geometry unavailable")

// Canonical face space. The three anchor landmarks are mapped onto
// fixed positions in a 200x200 reference frame; the forehead rectangle
// is defined once in that frame and projected back into every source
// image.
const CanonicalSize = 200

var canonicalAnchors = [3]vision.Point{
	{X: 65, Y: 100},  // left brow peak
	{X: 135, Y: 100}, // right brow peak
	{X: 100, Y: 125}, // nose bridge
}

// canonicalForehead sits above the brow line in canonical units.
var canonicalForehead = vision.Rect{X: 60, Y: 30, W: 80, H: 60}

// MinROIDim is the smallest acceptable clipped forehead box edge. Below
// this the region carries no skin signal worth sampling.
const MinROIDim = 2

// Config holds the stabilizer output shape.
type Config struct {
	ROIWidth  int // output raster width in px (default 60)
	ROIHeight int // output raster height in px (default 45)
}

// DefaultConfig returns the standard 60x45 output raster.
func DefaultConfig() Config {
	return Config{ROIWidth: 60, ROIHeight: 45}
}

// Stabilizer warps the forehead region of each frame into a fixed-size
// raster aligned to the canonical face space. The output buffer is
// reused between calls; the returned frame is valid until the next
// Stabilize on the same instance.
type Stabilizer struct {
	cfg Config
	roi vision.Frame
}

// NewStabilizer creates a Stabilizer, applying defaults for unset
// config fields.
func NewStabilizer(cfg Config) *Stabilizer {
	def := DefaultConfig()
	if cfg.ROIWidth < MinROIDim {
		cfg.ROIWidth = def.ROIWidth
	}
	if cfg.ROIHeight < MinROIDim {
		cfg.ROIHeight = def.ROIHeight
	}
	return &Stabilizer{
		cfg: cfg,
		roi: vision.NewFrame(cfg.ROIWidth, cfg.ROIHeight),
	}
}

// Config returns the active configuration.
func (s *Stabilizer) Config() Config {
	return s.cfg
}

// Stabilize extracts the motion-compensated forehead ROI from a frame.
//
// The two-stage transform first solves the global anchor affine into
// canonical space, projects the canonical forehead rectangle back into
// the source image (the returned quad, usable for overlays), then
// re-solves a crop-local affine and warps only the clipped bounding box
// into the fixed ROI raster. The full frame is never transformed.
//
// All failures wrap ErrGeometry.
func (s *Stabilizer) Stabilize(frame vision.Frame, lm landmarks.Set) (vision.Frame, vision.Quad, error) {
	if frame.Empty() {
		return vision.Frame{}, vision.Quad{}, fmt.Errorf("%w: empty frame", ErrGeometry)
	}

	srcAnchors := lm.Anchors()

	global, err := SolveAffine(srcAnchors, canonicalAnchors)
	if err != nil {
		return vision.Frame{}, vision.Quad{}, fmt.Errorf("%w: anchor solve: %v", ErrGeometry, err)
	}
	toSource, err := global.Invert()
	if err != nil {
		return vision.Frame{}, vision.Quad{}, fmt.Errorf("%w: anchor solve not invertible: %v", ErrGeometry, err)
	}

	corners := vision.Quad{
		toSource.Apply(vision.Point{X: float64(canonicalForehead.X), Y: float64(canonicalForehead.Y)}),
		toSource.Apply(vision.Point{X: float64(canonicalForehead.X + canonicalForehead.W), Y: float64(canonicalForehead.Y)}),
		toSource.Apply(vision.Point{X: float64(canonicalForehead.X + canonicalForehead.W), Y: float64(canonicalForehead.Y + canonicalForehead.H)}),
		toSource.Apply(vision.Point{X: float64(canonicalForehead.X), Y: float64(canonicalForehead.Y + canonicalForehead.H)}),
	}

	box := corners.BoundingRect().Intersect(frame.Bounds())
	if box.W < MinROIDim || box.H < MinROIDim {
		return vision.Frame{}, corners, fmt.Errorf("%w: clipped region %dx%d below %dpx", ErrGeometry, box.W, box.H, MinROIDim)
	}

	// Crop-local solve: anchors re-based to the box origin on the source
	// side, to the forehead rectangle origin (scaled to the ROI raster)
	// on the canonical side.
	sx := float64(s.cfg.ROIWidth) / float64(canonicalForehead.W)
	sy := float64(s.cfg.ROIHeight) / float64(canonicalForehead.H)
	var srcLocal, dstLocal [3]vision.Point
	for i := 0; i < 3; i++ {
		srcLocal[i] = vision.Point{
			X: srcAnchors[i].X - float64(box.X),
			Y: srcAnchors[i].Y - float64(box.Y),
		}
		dstLocal[i] = vision.Point{
			X: (canonicalAnchors[i].X - float64(canonicalForehead.X)) * sx,
			Y: (canonicalAnchors[i].Y - float64(canonicalForehead.Y)) * sy,
		}
	}
	local, err := SolveAffine(srcLocal, dstLocal)
	if err != nil {
		return vision.Frame{}, corners, fmt.Errorf("%w: local solve: %v", ErrGeometry, err)
	}
	toCrop, err := local.Invert()
	if err != nil {
		return vision.Frame{}, corners, fmt.Errorf("%w: local solve not invertible: %v", ErrGeometry, err)
	}

	crop := frame.SubRegion(box)
	for y := 0; y < s.cfg.ROIHeight; y++ {
		for x := 0; x < s.cfg.ROIWidth; x++ {
			src := toCrop.Apply(vision.Point{X: float64(x), Y: float64(y)})
			b, g, r := crop.BilinearAt(src.X, src.Y)
			s.roi.Set(x, y, b, g, r)
		}
	}
	return s.roi, corners, nil
}
