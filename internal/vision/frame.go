package vision

import "fmt"

// Channels is the number of interleaved channels in a Frame (B, G, R).
const Channels = 3

// Frame is an owned BGR image raster. Pixels are stored row-major,
// three bytes per pixel in B,G,R order. Coordinates are integer with
// the origin at the top-left corner, y increasing downward.
type Frame struct {
	Pix    []uint8 // len = H*Stride
	W, H   int
	Stride int // bytes per row, = W*Channels
}

// NewFrame allocates a zeroed (black) frame of the given dimensions.
// Non-positive dimensions yield an empty frame.
func NewFrame(w, h int) Frame {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Frame{
		Pix:    make([]uint8, w*h*Channels),
		W:      w,
		H:      h,
		Stride: w * Channels,
	}
}

// Empty reports whether the frame has no pixels.
func (f Frame) Empty() bool {
	return f.W == 0 || f.H == 0
}

// Bounds returns the frame extent as a Rect anchored at the origin.
func (f Frame) Bounds() Rect {
	return Rect{X: 0, Y: 0, W: f.W, H: f.H}
}

// At returns the BGR triple at (x, y). Out-of-bounds reads return black.
func (f Frame) At(x, y int) (b, g, r uint8) {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return 0, 0, 0
	}
	i := y*f.Stride + x*Channels
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Set writes the BGR triple at (x, y). Out-of-bounds writes are dropped.
func (f Frame) Set(x, y int, b, g, r uint8) {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return
	}
	i := y*f.Stride + x*Channels
	f.Pix[i] = b
	f.Pix[i+1] = g
	f.Pix[i+2] = r
}

// Fill sets every pixel to the given BGR triple.
func (f Frame) Fill(b, g, r uint8) {
	for i := 0; i < len(f.Pix); i += Channels {
		f.Pix[i] = b
		f.Pix[i+1] = g
		f.Pix[i+2] = r
	}
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	out := Frame{Pix: make([]uint8, len(f.Pix)), W: f.W, H: f.H, Stride: f.Stride}
	copy(out.Pix, f.Pix)
	return out
}

// CopyInto copies f into dst, reallocating dst's pixel buffer only when
// the shape changed. Returns the (possibly reallocated) destination.
func (f Frame) CopyInto(dst Frame) Frame {
	if dst.W != f.W || dst.H != f.H || len(dst.Pix) != len(f.Pix) {
		dst = NewFrame(f.W, f.H)
	}
	copy(dst.Pix, f.Pix)
	return dst
}

// SubRegion returns a copying crop of the frame restricted to r. The
// rectangle is clipped to the frame bounds first; a crop with no overlap
// returns an empty frame.
func (f Frame) SubRegion(r Rect) Frame {
	r = r.Intersect(f.Bounds())
	if r.Empty() {
		return Frame{}
	}
	out := NewFrame(r.W, r.H)
	for y := 0; y < r.H; y++ {
		srcOff := (r.Y+y)*f.Stride + r.X*Channels
		dstOff := y * out.Stride
		copy(out.Pix[dstOff:dstOff+out.Stride], f.Pix[srcOff:srcOff+r.W*Channels])
	}
	return out
}

// String describes the frame shape for log lines.
func (f Frame) String() string {
	return fmt.Sprintf("Frame(%dx%d)", f.W, f.H)
}
