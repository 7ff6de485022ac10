package vision

import "math"

// DrawLine draws a 1-px line from (x0, y0) to (x1, y1) using integer
// Bresenham stepping. Segments leaving the frame are clipped per pixel.
func (f Frame) DrawLine(x0, y0, x1, y1 int, b, g, r uint8) {
	dx := x1 - x0
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y0
	if dy < 0 {
		dy = -dy
	}
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy
	for {
		f.Set(x0, y0, b, g, r)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawRect outlines the rectangle with 1-px edges.
func (f Frame) DrawRect(r Rect, cb, cg, cr uint8) {
	if r.Empty() {
		return
	}
	f.DrawLine(r.X, r.Y, r.X+r.W-1, r.Y, cb, cg, cr)
	f.DrawLine(r.X, r.Y+r.H-1, r.X+r.W-1, r.Y+r.H-1, cb, cg, cr)
	f.DrawLine(r.X, r.Y, r.X, r.Y+r.H-1, cb, cg, cr)
	f.DrawLine(r.X+r.W-1, r.Y, r.X+r.W-1, r.Y+r.H-1, cb, cg, cr)
}

// DrawQuad outlines the four corner points in order.
func (f Frame) DrawQuad(q Quad, b, g, r uint8) {
	for i := 0; i < 4; i++ {
		p0 := q[i]
		p1 := q[(i+1)%4]
		f.DrawLine(int(math.Round(p0.X)), int(math.Round(p0.Y)),
			int(math.Round(p1.X)), int(math.Round(p1.Y)), b, g, r)
	}
}

// Blit copies src onto f with its top-left corner at (x, y). Source
// pixels falling outside the destination are dropped.
func (f Frame) Blit(src Frame, x, y int) {
	for sy := 0; sy < src.H; sy++ {
		dy := y + sy
		if dy < 0 || dy >= f.H {
			continue
		}
		for sx := 0; sx < src.W; sx++ {
			dx := x + sx
			if dx < 0 || dx >= f.W {
				continue
			}
			si := sy*src.Stride + sx*Channels
			di := dy*f.Stride + dx*Channels
			f.Pix[di] = src.Pix[si]
			f.Pix[di+1] = src.Pix[si+1]
			f.Pix[di+2] = src.Pix[si+2]
		}
	}
}

// ResizeToFit returns src scaled (nearest neighbour) so it fits within
// maxW x maxH. The scale factor is clamped to [0.1, 1.0]; upscaling is
// never performed. Results smaller than 2 px in either dimension, or a
// budget too small to hold them, return an empty frame.
func ResizeToFit(src Frame, maxW, maxH int) Frame {
	if src.Empty() || maxW < 2 || maxH < 2 {
		return Frame{}
	}
	scale := 1.0
	if sw := float64(maxW) / float64(src.W); sw < scale {
		scale = sw
	}
	if sh := float64(maxH) / float64(src.H); sh < scale {
		scale = sh
	}
	if scale < 0.1 {
		scale = 0.1
	}
	w := int(float64(src.W) * scale)
	h := int(float64(src.H) * scale)
	if w < 2 || h < 2 || w > maxW || h > maxH {
		return Frame{}
	}
	if w == src.W && h == src.H {
		return src.Clone()
	}
	out := NewFrame(w, h)
	for y := 0; y < h; y++ {
		sy := y * src.H / h
		for x := 0; x < w; x++ {
			sx := x * src.W / w
			b, g, r := src.At(sx, sy)
			out.Set(x, y, b, g, r)
		}
	}
	return out
}

// BilinearAt samples the frame at a sub-pixel position with bilinear
// interpolation. Samples outside the frame read as black, matching the
// constant-border convention of the warp path.
func (f Frame) BilinearAt(x, y float64) (b, g, r uint8) {
	if f.Empty() {
		return 0, 0, 0
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	b00, g00, r00 := f.At(x0, y0)
	b10, g10, r10 := f.At(x0+1, y0)
	b01, g01, r01 := f.At(x0, y0+1)
	b11, g11, r11 := f.At(x0+1, y0+1)

	lerp2 := func(c00, c10, c01, c11 uint8) uint8 {
		top := float64(c00)*(1-fx) + float64(c10)*fx
		bot := float64(c01)*(1-fx) + float64(c11)*fx
		v := top*(1-fy) + bot*fy
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return uint8(v + 0.5)
	}
	return lerp2(b00, b10, b01, b11), lerp2(g00, g10, g01, g11), lerp2(r00, r10, r01, r11)
}
