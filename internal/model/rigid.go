package model

import (
	"math"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/geom"
)

// Rigid is a rotation + translation model (no scale, no shear).
type Rigid struct {
	Theta  float64
	Offset geom.Vec2
}

// NewRigid returns the identity rigid transform.
func NewRigid() *Rigid { return &Rigid{} }

func (r *Rigid) Class() string { return "RigidModel2D" }

func (r *Rigid) MinPoints() int { return 2 }

func (r *Rigid) Apply(l geom.Vec2) geom.Vec2 {
	c, s := math.Cos(r.Theta), math.Sin(r.Theta)
	return geom.Vec2{
		X: c*l.X - s*l.Y + r.Offset.X,
		Y: s*l.X + c*l.Y + r.Offset.Y,
	}
}

func (r *Rigid) ApplyInverse(w geom.Vec2) (geom.Vec2, error) {
	c, s := math.Cos(r.Theta), math.Sin(r.Theta)
	x := w.X - r.Offset.X
	y := w.Y - r.Offset.Y
	// Inverse rotation is the transpose since the linear part is orthonormal.
	return geom.Vec2{X: c*x + s*y, Y: -s*x + c*y}, nil
}

// Fit estimates rotation and translation from weighted matches using the
// closed-form Kabsch/Umeyama solution: rotate about the weighted centroids
// by the angle that best aligns the two point clouds.
func (r *Rigid) Fit(matches []geom.PointMatch) error {
	n := len(matches)
	if n < r.MinPoints() {
		return notEnoughPoints(n, r.MinPoints())
	}
	cl, cw, totalW := weightedCentroids(matches)
	if totalW == 0 {
		return notEnoughPoints(n, r.MinPoints())
	}

	var dot, cross float64
	for _, m := range matches {
		w := m.Weight
		if w <= 0 {
			w = 1
		}
		sx, sy := m.P1.L.X-cl.X, m.P1.L.Y-cl.Y
		dx, dy := m.P2.W.X-cw.X, m.P2.W.Y-cw.Y
		dot += w * (sx*dx + sy*dy)
		cross += w * (sx*dy - sy*dx)
	}
	if dot == 0 && cross == 0 {
		return alignerr.NotEnoughDataPoints.New("rigid fit is degenerate (all points coincide)")
	}

	r.Theta = math.Atan2(cross, dot)
	c, s := math.Cos(r.Theta), math.Sin(r.Theta)
	r.Offset = geom.Vec2{
		X: cw.X - (c*cl.X - s*cl.Y),
		Y: cw.Y - (s*cl.X + c*cl.Y),
	}
	return nil
}

func (r *Rigid) ToArray() []float64 {
	c, s := math.Cos(r.Theta), math.Sin(r.Theta)
	return []float64{c, s, -s, c, r.Offset.X, r.Offset.Y}
}

func (r *Rigid) FromArray(a []float64) error {
	if len(a) != 6 {
		return notEnoughPoints(len(a), 6)
	}
	r.Theta = math.Atan2(a[1], a[0])
	r.Offset = geom.Vec2{X: a[4], Y: a[5]}
	return nil
}

func (r *Rigid) Cost(matches []geom.PointMatch) float64 {
	return meanCost(r.Apply, matches)
}

func (r *Rigid) Clone() geom.Model {
	c := *r
	return &c
}

func (r *Rigid) Compose(other geom.Model) (geom.Model, error) {
	return composeAffine(r, other)
}

func (r *Rigid) Preconcatenate(other geom.Model) (geom.Model, error) {
	return preconcatenateAffine(r, other)
}
