package vision

import "testing"

func TestRectIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}

	got := a.Intersect(b)
	want := Rect{X: 5, Y: 5, W: 5, H: 5}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRectIntersectDisjoint(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 4, H: 4}
	b := Rect{X: 10, Y: 10, W: 4, H: 4}

	if got := a.Intersect(b); !got.Empty() {
		t.Errorf("expected empty intersection, got %+v", got)
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 2, Y: 2, W: 3, H: 3}

	cases := []struct {
		x, y int
		want bool
	}{
		{2, 2, true},
		{4, 4, true},
		{5, 4, false},
		{1, 2, false},
	}
	for _, c := range cases {
		if got := r.Contains(c.x, c.y); got != c.want {
			t.Errorf("Contains(%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestQuadBoundingRect(t *testing.T) {
	q := Quad{
		{X: 1.2, Y: 2.7},
		{X: 9.1, Y: 2.1},
		{X: 9.9, Y: 8.4},
		{X: 0.6, Y: 8.9},
	}

	got := q.BoundingRect()
	want := Rect{X: 0, Y: 2, W: 10, H: 7}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestBilinearAt(t *testing.T) {
	f := NewFrame(2, 2)
	f.Set(0, 0, 0, 0, 0)
	f.Set(1, 0, 100, 100, 100)
	f.Set(0, 1, 100, 100, 100)
	f.Set(1, 1, 200, 200, 200)

	b, _, _ := f.BilinearAt(0.5, 0.5)
	if b != 100 {
		t.Errorf("expected midpoint 100, got %d", b)
	}

	b, _, _ = f.BilinearAt(0, 0)
	if b != 0 {
		t.Errorf("expected exact corner 0, got %d", b)
	}

	// Outside the frame reads as black.
	b, g, r := f.BilinearAt(-5, -5)
	if b != 0 || g != 0 || r != 0 {
		t.Errorf("expected black outside frame")
	}
}

func TestResizeToFit(t *testing.T) {
	src := NewFrame(100, 50)

	out := ResizeToFit(src, 50, 50)
	if out.W != 50 || out.H != 25 {
		t.Errorf("expected 50x25, got %dx%d", out.W, out.H)
	}

	// Never upscales.
	out = ResizeToFit(src, 500, 500)
	if out.W != 100 || out.H != 50 {
		t.Errorf("expected original size, got %dx%d", out.W, out.H)
	}

	// Too small a budget yields an empty frame.
	out = ResizeToFit(src, 3, 3)
	if !out.Empty() {
		t.Errorf("expected empty frame for tiny budget, got %dx%d", out.W, out.H)
	}
}

func TestBlitClipped(t *testing.T) {
	dst := NewFrame(4, 4)
	src := NewFrame(3, 3)
	src.Fill(9, 9, 9)

	dst.Blit(src, 2, 2)

	b, _, _ := dst.At(3, 3)
	if b != 9 {
		t.Errorf("expected blitted pixel at (3,3)")
	}
	b, _, _ = dst.At(1, 1)
	if b != 0 {
		t.Errorf("expected untouched pixel at (1,1)")
	}
}
