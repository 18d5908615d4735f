package model

import (
	"math"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/geom"
)

// Affine is the full 6-parameter affine model, stored in the canonical
// [m00, m10, m01, m11, tx, ty] layout used across the whole affine-closed
// family.
type Affine struct {
	M00, M10, M01, M11, TX, TY float64
}

// NewAffine returns the identity affine transform.
func NewAffine() *Affine {
	return &Affine{M00: 1, M11: 1}
}

func (a *Affine) Class() string { return "AffineModel2D" }

func (a *Affine) MinPoints() int { return 3 }

func (a *Affine) Apply(l geom.Vec2) geom.Vec2 {
	return geom.Vec2{
		X: a.M00*l.X + a.M01*l.Y + a.TX,
		Y: a.M10*l.X + a.M11*l.Y + a.TY,
	}
}

func (a *Affine) det() float64 { return a.M00*a.M11 - a.M01*a.M10 }

func (a *Affine) ApplyInverse(w geom.Vec2) (geom.Vec2, error) {
	d := a.det()
	if d == 0 {
		return geom.Vec2{}, alignerr.NonInvertibleModel.New("affine model has zero determinant")
	}
	x := w.X - a.TX
	y := w.Y - a.TY
	return geom.Vec2{
		X: (a.M11*x - a.M01*y) / d,
		Y: (-a.M10*x + a.M00*y) / d,
	}, nil
}

func (a *Affine) Fit(matches []geom.PointMatch) error {
	n := len(matches)
	if n < a.MinPoints() {
		return notEnoughPoints(n, a.MinPoints())
	}

	rowsX := make([][]float64, n)
	rowsY := make([][]float64, n)
	tx := make([]float64, n)
	ty := make([]float64, n)
	wx := make([]float64, n)
	wy := make([]float64, n)
	for i, m := range matches {
		w := m.Weight
		if w <= 0 {
			w = 1
		}
		rowsX[i] = []float64{m.P1.L.X, m.P1.L.Y, 1}
		rowsY[i] = []float64{m.P1.L.X, m.P1.L.Y, 1}
		tx[i] = m.P2.W.X
		ty[i] = m.P2.W.Y
		wx[i] = w
		wy[i] = w
	}

	px, err := solveWeightedLeastSquares(rowsX, tx, wx)
	if err != nil {
		return err
	}
	py, err := solveWeightedLeastSquares(rowsY, ty, wy)
	if err != nil {
		return err
	}

	a.M00, a.M01, a.TX = px[0], px[1], px[2]
	a.M10, a.M11, a.TY = py[0], py[1], py[2]
	return nil
}

func (a *Affine) ToArray() []float64 { return []float64{a.M00, a.M10, a.M01, a.M11, a.TX, a.TY} }

func (a *Affine) FromArray(v []float64) error {
	if len(v) != 6 {
		return notEnoughPoints(len(v), 6)
	}
	a.M00, a.M10, a.M01, a.M11, a.TX, a.TY = v[0], v[1], v[2], v[3], v[4], v[5]
	return nil
}

func (a *Affine) Cost(matches []geom.PointMatch) float64 {
	return meanCost(a.Apply, matches)
}

func (a *Affine) Clone() geom.Model {
	c := *a
	return &c
}

func (a *Affine) Compose(other geom.Model) (geom.Model, error) {
	return composeAffine(a, other)
}

func (a *Affine) Preconcatenate(other geom.Model) (geom.Model, error) {
	return preconcatenateAffine(a, other)
}

// affineArray adapts any affine-family model to its canonical 6-value form.
func affineArray(m geom.Model) (m00, m10, m01, m11, tx, ty float64) {
	v := m.ToArray()
	return v[0], v[1], v[2], v[3], v[4], v[5]
}

// composeAffine returns a model equal to applying self then other, i.e.
// other(self(x)), represented as a fresh Affine.
func composeAffine(self, other geom.Model) (geom.Model, error) {
	a00, a10, a01, a11, atx, aty := affineArray(self)
	b00, b10, b01, b11, btx, bty := affineArray(other)

	return &Affine{
		M00: b00*a00 + b01*a10,
		M10: b10*a00 + b11*a10,
		M01: b00*a01 + b01*a11,
		M11: b10*a01 + b11*a11,
		TX:  b00*atx + b01*aty + btx,
		TY:  b10*atx + b11*aty + bty,
	}, nil
}

// preconcatenateAffine returns a model equal to applying other then self,
// i.e. self(other(x)), represented as a fresh Affine.
func preconcatenateAffine(self, other geom.Model) (geom.Model, error) {
	return composeAffine(other, self)
}

// isSingular2x2 reports whether the 2x2 linear part of an affine-family
// model has (numerically) zero determinant.
func isSingular2x2(m00, m10, m01, m11 float64) bool {
	return math.Abs(m00*m11-m01*m10) < 1e-15
}
