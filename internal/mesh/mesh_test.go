package mesh

import (
	"context"
	"math"
	"testing"

	"github.com/render-align/elastic-align/internal/geom"
)

func TestLatticeCoversBounds(t *testing.T) {
	m := New(100, 100, 4, 0.5, 1000, 0.5)
	if len(m.ActiveVertices) == 0 {
		t.Fatal("expected active vertices")
	}
	min, max := m.Bounds()
	if min.X < -1e-9 || min.Y < -1e-9 {
		t.Errorf("min bound %+v should be near origin", min)
	}
	if max.X < 90 || max.Y < 90 {
		t.Errorf("max bound %+v should roughly cover the requested size", max)
	}
}

func TestSpringForceZeroAtRest(t *testing.T) {
	a, b := geom.Vec2{X: 0, Y: 0}, geom.Vec2{X: 10, Y: 0}
	s := NewSpring(10, 1, 100)
	f := s.forceOn(a, b)
	if f.Length() > 1e-9 {
		t.Errorf("expected zero force at rest length, got %+v", f)
	}
}

func TestSpringForcePullsTowardStretchedNeighbor(t *testing.T) {
	a, b := geom.Vec2{X: 0, Y: 0}, geom.Vec2{X: 20, Y: 0}
	s := NewSpring(10, 1, 100)
	f := s.forceOn(a, b)
	if f.X <= 0 {
		t.Errorf("expected positive pull toward stretched neighbor, got %+v", f)
	}
}

func TestApplyInPlaceIdentityAtRest(t *testing.T) {
	m := New(100, 100, 4, 0.5, 1000, 0.5)
	p := geom.NewPoint(geom.Vec2{X: 50, Y: 50})
	if !m.ApplyInPlace(p) {
		t.Fatal("expected point inside mesh hull")
	}
	if p.W.Dist(p.L) > 1e-6 {
		t.Errorf("mesh at rest should be identity, got L=%+v W=%+v", p.L, p.W)
	}
}

func TestPassiveVertexCarriedByTriangle(t *testing.T) {
	m := New(20, 20, 2, 0.5, 1000, 0.5)
	passive := NewVertex(geom.Vec2{X: 10, Y: 5})
	if !m.AddPassiveVertex(passive) {
		t.Fatal("expected passive vertex to bind to a triangle")
	}

	shift := geom.Vec2{X: 3, Y: -1}
	for _, v := range m.ActiveVertices {
		v.W = v.W.Add(shift)
	}
	// Run one Update: a uniform shift stretches no spring, so force
	// integration leaves the active vertices in place and only the passive
	// vertex's binding is recomputed.
	m.Update()

	if passive.W.Dist(passive.L.Add(shift)) > 1e-6 {
		t.Errorf("passive vertex should translate with a uniform shift of its enclosing triangle, got %+v want %+v", passive.W, passive.L.Add(shift))
	}
}

func TestOptimizeMeshesConvergesTowardAnchor(t *testing.T) {
	m := New(20, 20, 2, 0.2, 1000, 0.3)
	corner := m.ActiveVertices[0]
	anchor := NewVertex(corner.L)
	anchor.W = corner.L.Add(geom.Vec2{X: 5, Y: 0})
	corner.AddSpring(anchor, NewSpring(0, 0.5, 1000))

	iters, err := OptimizeMeshes(context.Background(), []*SpringMesh{m}, 1e-9, 50000, 5)
	if err != nil {
		t.Fatalf("OptimizeMeshes: %v", err)
	}
	if iters == 0 {
		t.Fatal("expected at least one iteration")
	}
	if d := corner.W.Dist(anchor.W); d > 1.0 {
		t.Errorf("corner vertex did not relax toward anchor, distance=%v", d)
	}
}

func TestOptimizeMeshesConvergenceTimeout(t *testing.T) {
	m := New(20, 20, 2, 0.2, 1000, 0.3)
	corner := m.ActiveVertices[0]
	anchor := NewVertex(corner.L)
	anchor.W = corner.L.Add(geom.Vec2{X: 5, Y: 0})
	corner.AddSpring(anchor, NewSpring(0, 0.5, 1000))

	_, err := OptimizeMeshes(context.Background(), []*SpringMesh{m}, 1e-9, 1, 5)
	if err == nil {
		t.Fatal("expected convergence timeout with a one-iteration budget")
	}
}

func TestOptimizeMeshesCanceled(t *testing.T) {
	m := New(20, 20, 2, 0.2, 1000, 0.3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := OptimizeMeshes(ctx, []*SpringMesh{m}, 1e-9, 10, 5)
	if err == nil {
		t.Fatal("expected canceled error")
	}
}

func TestOptimizeMeshes2ConvergesTowardAnchor(t *testing.T) {
	m := New(20, 20, 2, 0.2, 1000, 0.3)
	corner := m.ActiveVertices[0]
	anchor := NewVertex(corner.L)
	anchor.W = corner.L.Add(geom.Vec2{X: 5, Y: 0})
	corner.AddSpring(anchor, NewSpring(0, 0.5, 1000))

	if err := OptimizeMeshes2(context.Background(), []*SpringMesh{m}, 1e-9, 500); err != nil {
		t.Fatalf("OptimizeMeshes2: %v", err)
	}
	if d := corner.W.Dist(anchor.W); d > 1.0 {
		t.Errorf("corner vertex did not relax toward anchor, distance=%v", d)
	}
}

func TestOptimizeMeshes2StopsEarlyBelowEpsilon(t *testing.T) {
	m := New(20, 20, 2, 0.2, 1000, 0.3)
	if err := OptimizeMeshes2(context.Background(), []*SpringMesh{m}, 1e9, 500); err != nil {
		t.Fatalf("OptimizeMeshes2: %v", err)
	}
}

func TestOptimizeMeshes2Canceled(t *testing.T) {
	m := New(20, 20, 2, 0.2, 1000, 0.3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := OptimizeMeshes2(ctx, []*SpringMesh{m}, 1e-9, 10); err == nil {
		t.Fatal("expected canceled error")
	}
}

func TestBarycentricClampInsideUnitSimplex(t *testing.T) {
	u, v, w := clampBarycentric(-0.2, 0.5, 0.9)
	if u < 0 || v < 0 || w < 0 {
		t.Errorf("clamped weights should be non-negative: %v %v %v", u, v, w)
	}
	if math.Abs(u+v+w-1) > 1e-9 {
		t.Errorf("clamped weights should sum to 1: %v", u+v+w)
	}
}
