package mls

import (
	"math"
	"testing"

	"github.com/render-align/elastic-align/internal/geom"
)

func gridControls(shiftX, shiftY float64) []Control {
	pts := []geom.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 5, Y: 5}}
	out := make([]Control, len(pts))
	for i, p := range pts {
		out[i] = Control{L: p, W: geom.Vec2{X: p.X + shiftX, Y: p.Y + shiftY}, Weight: 1}
	}
	return out
}

func TestNewWithSufficientControlsAppliesUniformShift(t *testing.T) {
	controls := gridControls(3, -2)
	mlsT, err := New(controls, BBox{-1, -1, 11, 11})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := mlsT.Apply(geom.Vec2{X: 5, Y: 3})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := geom.Vec2{X: 8, Y: 1}
	if got.Dist(want) > 1e-6 {
		t.Errorf("Apply = %+v, want %+v", got, want)
	}
}

func TestApplyExactAtControlPoint(t *testing.T) {
	controls := gridControls(1, 1)
	mlsT, err := New(controls, BBox{-1, -1, 11, 11})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := controls[0]
	got, err := mlsT.Apply(c.L)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Dist(c.W) > 1e-12 {
		t.Errorf("Apply at a control point should return its W exactly, got %+v want %+v", got, c.W)
	}
}

func TestRestrictionExcludesFarControls(t *testing.T) {
	near := gridControls(0, 0)
	far := Control{L: geom.Vec2{X: 10000, Y: 10000}, W: geom.Vec2{X: 10000, Y: 10000}, Weight: 1}
	mlsT, err := New(append(near, far), BBox{-1, -1, 11, 11})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, c := range mlsT.Controls {
		if c.L == far.L {
			t.Errorf("expected the far control to be excluded by restriction")
		}
	}
}

func TestFallbackWithTooFewControls(t *testing.T) {
	controls := []Control{
		{L: geom.Vec2{X: 0, Y: 0}, W: geom.Vec2{X: 1, Y: 1}, Weight: 1},
		{L: geom.Vec2{X: 10, Y: 0}, W: geom.Vec2{X: 11, Y: 1}, Weight: 1},
		{L: geom.Vec2{X: 0, Y: 10}, W: geom.Vec2{X: 1, Y: 11}, Weight: 1},
	}
	// A bbox far from every control, even after inflation, leaves nothing
	// restricted and forces a fallback affine fit over the full control set.
	mlsT, err := New(controls, BBox{1000, 1000, 1000.2, 1000.2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := mlsT.Apply(geom.Vec2{X: 0, Y: 0})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Dist(geom.Vec2{X: 1, Y: 1}) > 1e-6 {
		t.Errorf("fallback affine should reproduce the training shift, got %+v", got)
	}
}

func TestDataStringRoundTrip(t *testing.T) {
	controls := gridControls(2.5, -1.25)
	orig, err := New(controls, BBox{-1, -1, 11, 11})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := orig.DataString()
	parsed, err := ParseDataString(s)
	if err != nil {
		t.Fatalf("ParseDataString: %v", err)
	}

	for _, x := range []geom.Vec2{{X: 3, Y: 4}, {X: 8, Y: 1}, {X: 5, Y: 5}} {
		want, err := orig.Apply(x)
		if err != nil {
			t.Fatalf("orig.Apply: %v", err)
		}
		got, err := parsed.Apply(x)
		if err != nil {
			t.Fatalf("parsed.Apply: %v", err)
		}
		if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
			t.Errorf("round-tripped Apply(%+v) = %+v, want %+v", x, got, want)
		}
	}
}

func TestNotEnoughDataPoints(t *testing.T) {
	controls := []Control{
		{L: geom.Vec2{X: 0, Y: 0}, W: geom.Vec2{X: 0, Y: 0}, Weight: 1},
	}
	if _, err := New(controls, BBox{-1, -1, 1, 1}); err == nil {
		t.Fatal("expected not-enough-data-points error")
	}
}
