package model

import (
	"math"
	"testing"

	"github.com/render-align/elastic-align/internal/geom"
)

func pm(lx, ly, wx, wy, weight float64) geom.PointMatch {
	return geom.PointMatch{
		P1:     geom.NewPoint(geom.Vec2{X: lx, Y: ly}),
		P2:     &geom.Point{L: geom.Vec2{X: wx, Y: wy}, W: geom.Vec2{X: wx, Y: wy}},
		Weight: weight,
	}
}

func TestNewByModelIndex(t *testing.T) {
	for i, want := range []string{"TranslationModel2D", "RigidModel2D", "SimilarityModel2D", "AffineModel2D", "HomographyModel2D"} {
		m, err := New(i)
		if err != nil {
			t.Fatalf("New(%d): %v", i, err)
		}
		if m.Class() != want {
			t.Errorf("New(%d).Class() = %q, want %q", i, m.Class(), want)
		}
	}
	if _, err := New(99); err == nil {
		t.Errorf("expected error for unknown model index")
	}
}

func TestTranslationFit(t *testing.T) {
	matches := []geom.PointMatch{
		pm(0, 0, 10, 5, 1),
		pm(1, 0, 11, 5, 1),
		pm(0, 1, 10, 6, 1),
	}
	tr := NewTranslation()
	if err := tr.Fit(matches); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got := tr.Apply(geom.Vec2{X: 5, Y: 5})
	want := geom.Vec2{X: 15, Y: 10}
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
		t.Errorf("Apply = %+v, want %+v", got, want)
	}
}

func TestTranslationNotEnoughPoints(t *testing.T) {
	tr := NewTranslation()
	if err := tr.Fit(nil); err == nil {
		t.Fatalf("expected not-enough-data-points error")
	}
}

func TestRigidFitRecoversRotationAndTranslation(t *testing.T) {
	theta := 0.3
	offset := geom.Vec2{X: 12, Y: -7}
	c, s := math.Cos(theta), math.Sin(theta)
	src := []geom.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 5, Y: 7}}
	var matches []geom.PointMatch
	for _, l := range src {
		w := geom.Vec2{X: c*l.X - s*l.Y + offset.X, Y: s*l.X + c*l.Y + offset.Y}
		matches = append(matches, geom.PointMatch{P1: geom.NewPoint(l), P2: &geom.Point{L: w, W: w}, Weight: 1})
	}

	r := NewRigid()
	if err := r.Fit(matches); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if math.Abs(r.Theta-theta) > 1e-6 {
		t.Errorf("theta = %v, want %v", r.Theta, theta)
	}
	if r.Offset.Dist(offset) > 1e-6 {
		t.Errorf("offset = %+v, want %+v", r.Offset, offset)
	}
}

func TestSimilarityFitRecoversScale(t *testing.T) {
	scale := 2.5
	theta := -0.2
	offset := geom.Vec2{X: 3, Y: 4}
	c, s := math.Cos(theta), math.Sin(theta)
	src := []geom.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	var matches []geom.PointMatch
	for _, l := range src {
		w := geom.Vec2{
			X: scale*(c*l.X-s*l.Y) + offset.X,
			Y: scale*(s*l.X+c*l.Y) + offset.Y,
		}
		matches = append(matches, geom.PointMatch{P1: geom.NewPoint(l), P2: &geom.Point{L: w, W: w}, Weight: 1})
	}

	sim := NewSimilarity()
	if err := sim.Fit(matches); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if math.Abs(sim.Scale-scale) > 1e-6 {
		t.Errorf("scale = %v, want %v", sim.Scale, scale)
	}
}

func TestAffineFitAndInverse(t *testing.T) {
	a := &Affine{M00: 1.2, M10: 0.1, M01: -0.3, M11: 0.9, TX: 5, TY: -2}
	src := []geom.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 4, Y: 6}}
	var matches []geom.PointMatch
	for _, l := range src {
		w := a.Apply(l)
		matches = append(matches, geom.PointMatch{P1: geom.NewPoint(l), P2: &geom.Point{L: w, W: w}, Weight: 1})
	}

	fit := NewAffine()
	if err := fit.Fit(matches); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if fit.Cost(matches) > 1e-6 {
		t.Errorf("cost = %v, want ~0", fit.Cost(matches))
	}

	l := geom.Vec2{X: 3, Y: -1}
	w := fit.Apply(l)
	back, err := fit.ApplyInverse(w)
	if err != nil {
		t.Fatalf("ApplyInverse: %v", err)
	}
	if back.Dist(l) > 1e-6 {
		t.Errorf("round trip = %+v, want %+v", back, l)
	}
}

func TestAffineNonInvertible(t *testing.T) {
	a := &Affine{M00: 1, M10: 2, M01: 2, M11: 4} // singular: rows are multiples
	if _, err := a.ApplyInverse(geom.Vec2{X: 1, Y: 1}); err == nil {
		t.Fatalf("expected non-invertible-model error")
	}
}

func TestHomographyFitAndApply(t *testing.T) {
	h := &Homography{H: [9]float64{1, 0.1, 2, 0, 1.1, -1, 0.0005, 0.0002, 1}}
	src := []geom.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 5, Y: 3}}
	var matches []geom.PointMatch
	for _, l := range src {
		w := h.Apply(l)
		matches = append(matches, geom.PointMatch{P1: geom.NewPoint(l), P2: &geom.Point{L: w, W: w}, Weight: 1})
	}

	fit := NewHomography()
	if err := fit.Fit(matches); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if fit.Cost(matches) > 1e-4 {
		t.Errorf("cost = %v, want ~0", fit.Cost(matches))
	}
}

func TestComposeAndPreconcatenate(t *testing.T) {
	t1 := NewTranslation()
	t1.T = geom.Vec2{X: 1, Y: 2}
	t2 := NewTranslation()
	t2.T = geom.Vec2{X: 10, Y: 20}

	composed, err := t1.Compose(t2)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	got := composed.Apply(geom.Vec2{X: 0, Y: 0})
	want := t2.Apply(t1.Apply(geom.Vec2{X: 0, Y: 0}))
	if got.Dist(want) > 1e-9 {
		t.Errorf("Compose result = %+v, want %+v", got, want)
	}

	preconcat, err := t1.Preconcatenate(t2)
	if err != nil {
		t.Fatalf("Preconcatenate: %v", err)
	}
	got2 := preconcat.Apply(geom.Vec2{X: 0, Y: 0})
	want2 := t1.Apply(t2.Apply(geom.Vec2{X: 0, Y: 0}))
	if got2.Dist(want2) > 1e-9 {
		t.Errorf("Preconcatenate result = %+v, want %+v", got2, want2)
	}
}
