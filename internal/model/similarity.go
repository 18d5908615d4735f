package model

import (
	"math"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/geom"
)

// Similarity is a rotation + uniform scale + translation model.
type Similarity struct {
	Scale  float64
	Theta  float64
	Offset geom.Vec2
}

// NewSimilarity returns the identity similarity transform.
func NewSimilarity() *Similarity { return &Similarity{Scale: 1} }

func (s *Similarity) Class() string { return "SimilarityModel2D" }

func (s *Similarity) MinPoints() int { return 2 }

func (s *Similarity) Apply(l geom.Vec2) geom.Vec2 {
	c, sn := math.Cos(s.Theta), math.Sin(s.Theta)
	return geom.Vec2{
		X: s.Scale*(c*l.X-sn*l.Y) + s.Offset.X,
		Y: s.Scale*(sn*l.X+c*l.Y) + s.Offset.Y,
	}
}

func (s *Similarity) ApplyInverse(w geom.Vec2) (geom.Vec2, error) {
	if s.Scale == 0 {
		return geom.Vec2{}, alignerr.NonInvertibleModel.New("similarity model has zero scale")
	}
	c, sn := math.Cos(s.Theta), math.Sin(s.Theta)
	x := (w.X - s.Offset.X) / s.Scale
	y := (w.Y - s.Offset.Y) / s.Scale
	return geom.Vec2{X: c*x + sn*y, Y: -sn*x + c*y}, nil
}

// Fit is the weighted Umeyama closed form for similarity transforms:
// rotation and scale come from the weighted cross-covariance of the
// centered point clouds.
func (s *Similarity) Fit(matches []geom.PointMatch) error {
	n := len(matches)
	if n < s.MinPoints() {
		return notEnoughPoints(n, s.MinPoints())
	}
	cl, cw, totalW := weightedCentroids(matches)
	if totalW == 0 {
		return notEnoughPoints(n, s.MinPoints())
	}

	var dot, cross, srcVar float64
	for _, m := range matches {
		w := m.Weight
		if w <= 0 {
			w = 1
		}
		sx, sy := m.P1.L.X-cl.X, m.P1.L.Y-cl.Y
		dx, dy := m.P2.W.X-cw.X, m.P2.W.Y-cw.Y
		dot += w * (sx*dx + sy*dy)
		cross += w * (sx*dy - sy*dx)
		srcVar += w * (sx*sx + sy*sy)
	}
	if srcVar == 0 {
		return alignerr.NotEnoughDataPoints.New("similarity fit is degenerate (all source points coincide)")
	}

	s.Theta = math.Atan2(cross, dot)
	s.Scale = math.Hypot(dot, cross) / srcVar
	c, sn := math.Cos(s.Theta), math.Sin(s.Theta)
	s.Offset = geom.Vec2{
		X: cw.X - s.Scale*(c*cl.X-sn*cl.Y),
		Y: cw.Y - s.Scale*(sn*cl.X+c*cl.Y),
	}
	return nil
}

func (s *Similarity) ToArray() []float64 {
	c, sn := math.Cos(s.Theta), math.Sin(s.Theta)
	return []float64{s.Scale * c, s.Scale * sn, -s.Scale * sn, s.Scale * c, s.Offset.X, s.Offset.Y}
}

func (s *Similarity) FromArray(a []float64) error {
	if len(a) != 6 {
		return notEnoughPoints(len(a), 6)
	}
	s.Scale = math.Hypot(a[0], a[1])
	s.Theta = math.Atan2(a[1], a[0])
	s.Offset = geom.Vec2{X: a[4], Y: a[5]}
	return nil
}

func (s *Similarity) Cost(matches []geom.PointMatch) float64 {
	return meanCost(s.Apply, matches)
}

func (s *Similarity) Clone() geom.Model {
	c := *s
	return &c
}

func (s *Similarity) Compose(other geom.Model) (geom.Model, error) {
	return composeAffine(s, other)
}

func (s *Similarity) Preconcatenate(other geom.Model) (geom.Model, error) {
	return preconcatenateAffine(s, other)
}
