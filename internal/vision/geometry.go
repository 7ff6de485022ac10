package vision

import "math"

// Point is a 2D position in pixel units. Sub-pixel positions are
// meaningful for landmark coordinates and warp math.
type Point struct {
	X, Y float64
}

// Rect is an integer pixel rectangle: origin (X, Y), extent (W, H).
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Contains reports whether the integer pixel (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Intersect returns the overlap of two rectangles. Disjoint inputs
// yield an empty Rect.
func (r Rect) Intersect(o Rect) Rect {
	x0 := r.X
	if o.X > x0 {
		x0 = o.X
	}
	y0 := r.Y
	if o.Y > y0 {
		y0 = o.Y
	}
	x1 := r.X + r.W
	if o.X+o.W < x1 {
		x1 = o.X + o.W
	}
	y1 := r.Y + r.H
	if o.Y+o.H < y1 {
		y1 = o.Y + o.H
	}
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Quad is an ordered set of four corner points: top-left, top-right,
// bottom-right, bottom-left of a rectangle mapped through a transform.
type Quad [4]Point

// BoundingRect returns the integer axis-aligned bounding box of the quad
// (floor of the minima, ceil of the maxima).
func (q Quad) BoundingRect() Rect {
	minX, minY := q[0].X, q[0].Y
	maxX, maxY := q[0].X, q[0].Y
	for _, p := range q[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	x0 := int(math.Floor(minX))
	y0 := int(math.Floor(minY))
	x1 := int(math.Ceil(maxX))
	y1 := int(math.Ceil(maxY))
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
