package tilespec

import (
	"fmt"
	"testing"

	"github.com/render-align/elastic-align/internal/geom"
)

func identityTranslation(tx, ty float64) Transform {
	return Transform{ClassName: "AffineModel2D", DataString: fmt.Sprintf("1 0 0 1 %g %g", tx, ty)}
}

func TestWorldToLocalMarksLastInvertibleVisible(t *testing.T) {
	a := &TileSpec{TileID: "a", Transforms: []Transform{identityTranslation(5, 5)}}
	b := &TileSpec{TileID: "b", Transforms: []Transform{{ClassName: "MLS", DataString: "2 1 0 0 10 10 0"}}}
	c := &TileSpec{TileID: "c", Transforms: []Transform{identityTranslation(10, 0)}}

	results, err := WorldToLocal([]*TileSpec{a, b, c}, geom.Vec2{X: 100, Y: 100})
	if err != nil {
		t.Fatalf("WorldToLocal: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 invertible results (b skipped), got %d: %+v", len(results), results)
	}
	if results[0].TileID != "a" || results[0].Visible {
		t.Errorf("first result should be tile a, not visible: %+v", results[0])
	}
	if results[1].TileID != "c" || !results[1].Visible {
		t.Errorf("last invertible result (tile c) should be visible: %+v", results[1])
	}
	want := geom.Vec2{X: 95, Y: 95}
	if got := results[0].Local; got != want {
		t.Errorf("tile a local = %+v, want %+v", got, want)
	}
	want = geom.Vec2{X: 90, Y: 100}
	if got := results[1].Local; got != want {
		t.Errorf("tile c local = %+v, want %+v", got, want)
	}
}

func TestWorldToLocalAllNonInvertibleFails(t *testing.T) {
	a := &TileSpec{TileID: "a", Transforms: []Transform{{ClassName: "MLS", DataString: "2 1 0 0 10 10 0"}}}
	b := &TileSpec{TileID: "b", Transforms: []Transform{{ClassName: "MLS", DataString: "2 1 0 0 10 10 0"}}}

	if _, err := WorldToLocal([]*TileSpec{a, b}, geom.Vec2{X: 100, Y: 100}); err == nil {
		t.Fatal("expected non-invertible-model error when no tile can be inverted")
	}
}
