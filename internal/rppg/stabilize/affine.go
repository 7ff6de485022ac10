package stabilize

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// errSingular marks an anchor triple that spans no area (collinear or
// coincident points), for which no affine solution exists.
var errSingular = errors.New("singular anchor geometry")

// Affine is a 2x3 transform:
//
//	x' = A*x + B*y + C
//	y' = D*x + E*y + F
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Apply maps a point through the transform.
func (t Affine) Apply(p vision.Point) vision.Point {
	return vision.Point{
		X: t.A*p.X + t.B*p.Y + t.C,
		Y: t.D*p.X + t.E*p.Y + t.F,
	}
}

// Invert returns the inverse transform. Fails when the linear part is
// singular.
func (t Affine) Invert() (Affine, error) {
	det := t.A*t.E - t.B*t.D
	if math.Abs(det) < 1e-12 {
		return Affine{}, errSingular
	}
	inv := Affine{
		A: t.E / det,
		B: -t.B / det,
		D: -t.D / det,
		E: t.A / det,
	}
	inv.C = -(inv.A*t.C + inv.B*t.F)
	inv.F = -(inv.D*t.C + inv.E*t.F)
	return inv, nil
}

// SolveAffine computes the exact affine transform carrying the three
// src points onto the three dst points. Three non-collinear pairs
// determine the six coefficients; degenerate input is a defined error.
func SolveAffine(src, dst [3]vision.Point) (Affine, error) {
	m := mat.NewDense(3, 3, []float64{
		src[0].X, src[0].Y, 1,
		src[1].X, src[1].Y, 1,
		src[2].X, src[2].Y, 1,
	})
	bx := mat.NewVecDense(3, []float64{dst[0].X, dst[1].X, dst[2].X})
	by := mat.NewVecDense(3, []float64{dst[0].Y, dst[1].Y, dst[2].Y})

	var rowX, rowY mat.VecDense
	if err := rowX.SolveVec(m, bx); err != nil {
		return Affine{}, fmt.Errorf("%w: %v", errSingular, err)
	}
	if err := rowY.SolveVec(m, by); err != nil {
		return Affine{}, fmt.Errorf("%w: %v", errSingular, err)
	}

	t := Affine{
		A: rowX.AtVec(0), B: rowX.AtVec(1), C: rowX.AtVec(2),
		D: rowY.AtVec(0), E: rowY.AtVec(1), F: rowY.AtVec(2),
	}
	// A solvable but numerically collapsed system still has no usable
	// inverse; reject it here so callers see one failure mode.
	if math.Abs(t.A*t.E-t.B*t.D) < 1e-12 {
		return Affine{}, errSingular
	}
	return t, nil
}
