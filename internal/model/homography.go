package model

import (
	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/geom"
)

// Homography is a projective transform, stored as a row-major 3x3 matrix
// with h[8] normalized to 1. It is not a member of the affine-closed
// family: it does not implement Composable.
type Homography struct {
	H [9]float64
}

// NewHomography returns the identity homography.
func NewHomography() *Homography {
	return &Homography{H: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

func (h *Homography) Class() string { return "HomographyModel2D" }

func (h *Homography) MinPoints() int { return 4 }

func (h *Homography) Apply(l geom.Vec2) geom.Vec2 {
	den := h.H[6]*l.X + h.H[7]*l.Y + h.H[8]
	return geom.Vec2{
		X: (h.H[0]*l.X + h.H[1]*l.Y + h.H[2]) / den,
		Y: (h.H[3]*l.X + h.H[4]*l.Y + h.H[5]) / den,
	}
}

func (h *Homography) det() float64 {
	return h.H[0]*(h.H[4]*h.H[8]-h.H[5]*h.H[7]) -
		h.H[1]*(h.H[3]*h.H[8]-h.H[5]*h.H[6]) +
		h.H[2]*(h.H[3]*h.H[7]-h.H[4]*h.H[6])
}

// ApplyInverse inverts the 3x3 homogeneous matrix and applies it.
func (h *Homography) ApplyInverse(w geom.Vec2) (geom.Vec2, error) {
	d := h.det()
	if d == 0 {
		return geom.Vec2{}, alignerr.NonInvertibleModel.New("homography has zero determinant")
	}
	inv := [9]float64{
		(h.H[4]*h.H[8] - h.H[5]*h.H[7]) / d,
		(h.H[2]*h.H[7] - h.H[1]*h.H[8]) / d,
		(h.H[1]*h.H[5] - h.H[2]*h.H[4]) / d,
		(h.H[5]*h.H[6] - h.H[3]*h.H[8]) / d,
		(h.H[0]*h.H[8] - h.H[2]*h.H[6]) / d,
		(h.H[2]*h.H[3] - h.H[0]*h.H[5]) / d,
		(h.H[3]*h.H[7] - h.H[4]*h.H[6]) / d,
		(h.H[1]*h.H[6] - h.H[0]*h.H[7]) / d,
		(h.H[0]*h.H[4] - h.H[1]*h.H[3]) / d,
	}
	den := inv[6]*w.X + inv[7]*w.Y + inv[8]
	if den == 0 {
		return geom.Vec2{}, alignerr.NonInvertibleModel.New("homography inverse is degenerate at this point")
	}
	return geom.Vec2{
		X: (inv[0]*w.X + inv[1]*w.Y + inv[2]) / den,
		Y: (inv[3]*w.X + inv[4]*w.Y + inv[5]) / den,
	}, nil
}

// Fit solves the direct linear transform with h[8] fixed to 1, via the
// weighted normal equations of the eight remaining unknowns.
func (h *Homography) Fit(matches []geom.PointMatch) error {
	n := len(matches)
	if n < h.MinPoints() {
		return notEnoughPoints(n, h.MinPoints())
	}

	rows := make([][]float64, 0, 2*n)
	targets := make([]float64, 0, 2*n)
	weights := make([]float64, 0, 2*n)

	for _, m := range matches {
		w := m.Weight
		if w <= 0 {
			w = 1
		}
		x, y := m.P1.L.X, m.P1.L.Y
		xp, yp := m.P2.W.X, m.P2.W.Y

		rows = append(rows, []float64{x, y, 1, 0, 0, 0, -x * xp, -y * xp})
		targets = append(targets, xp)
		weights = append(weights, w)

		rows = append(rows, []float64{0, 0, 0, x, y, 1, -x * yp, -y * yp})
		targets = append(targets, yp)
		weights = append(weights, w)
	}

	sol, err := solveWeightedLeastSquares(rows, targets, weights)
	if err != nil {
		return err
	}
	h.H = [9]float64{sol[0], sol[1], sol[2], sol[3], sol[4], sol[5], sol[6], sol[7], 1}
	return nil
}

func (h *Homography) ToArray() []float64 { return h.H[:] }

func (h *Homography) FromArray(a []float64) error {
	if len(a) != 9 {
		return notEnoughPoints(len(a), 9)
	}
	copy(h.H[:], a)
	return nil
}

func (h *Homography) Cost(matches []geom.PointMatch) float64 {
	return meanCost(h.Apply, matches)
}

func (h *Homography) Clone() geom.Model {
	c := *h
	return &c
}
