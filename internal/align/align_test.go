package align

import (
	"context"
	"testing"

	"github.com/render-align/elastic-align/internal/correspondence"
	"github.com/render-align/elastic-align/internal/mesh"
	"github.com/render-align/elastic-align/internal/rangeexpr"
	"github.com/render-align/elastic-align/internal/tilespec"
)

func baseParams() Params {
	return Params{
		ModelIndex:                1,
		LayerScale:                1.0,
		ResolutionSpringMesh:      2,
		StiffnessSpringMesh:       0.5,
		DampSpringMesh:            0.5,
		MaxStretchSpringMesh:      1000,
		MaxEpsilon:                1e-3,
		MaxIterationsSpringMesh:   50,
		MaxPlateauwidthSpringMesh: 3,
		MaxLayersDistance:         1,
		Threads:                   2,
		FromLayer:                 0,
		ToLayer:                   1,
		ImageWidth:                20,
		ImageHeight:               20,
	}
}

func TestRunTwoLayerAlreadyAlignedConverges(t *testing.T) {
	params := baseParams()
	params.FixedLayers = map[int]bool{0: true}

	files := []*LayerFile{
		{Layer: 0, Location: "layer_0.json", Tiles: []*tilespec.TileSpec{
			{TileID: "t0", Layer: 0, BBox: [4]float64{0, 0, 20, 20}, Width: 20, Height: 20},
		}},
		{Layer: 1, Location: "layer_1.json", Tiles: []*tilespec.TileSpec{
			{TileID: "t1", Layer: 1, BBox: [4]float64{0, 0, 20, 20}, Width: 20, Height: 20},
		}},
	}

	// Probe an identically-parameterized mesh purely to read off lattice
	// vertex coordinates, so the correspondence's local points line up
	// exactly with vertices the aligner's own meshes will build.
	probe := mesh.New(20, 20, params.ResolutionSpringMesh, params.StiffnessSpringMesh, params.MaxStretchSpringMesh, params.DampSpringMesh)
	var pairs []correspondence.Pair
	for _, v := range probe.ActiveVertices {
		pairs = append(pairs, correspondence.Pair{
			P1:     correspondence.PointLW{L: [2]float64{v.L.X, v.L.Y}, W: [2]float64{v.L.X, v.L.Y}},
			P2:     correspondence.PointLW{L: [2]float64{v.L.X, v.L.Y}, W: [2]float64{v.L.X, v.L.Y}},
			Weight: 1,
		})
	}
	spec := &correspondence.Spec{
		URL1: "layer_0.json", URL2: "layer_1.json",
		CorrespondencePointPairs: pairs, ShouldConnect: true,
		Layer1: 0, Layer2: 1,
	}
	corrs := correspondence.Index{0: {1: spec}}

	result, err := New(params, files, corrs).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Files) != 2 {
		t.Fatalf("expected 2 emitted files, got %d", len(result.Files))
	}
	for _, f := range result.Files {
		for _, ts := range f.Tiles {
			if len(ts.Transforms) != 1 || ts.Transforms[0].ClassName != "MLS" {
				t.Errorf("layer %d tile %s: expected exactly one appended MLS transform, got %+v", f.Layer, ts.TileID, ts.Transforms)
			}
		}
	}
	if result.DroppedMatches != 0 {
		t.Errorf("expected no dropped matches, got %d", result.DroppedMatches)
	}
}

func TestRunSkipsExcludedLayers(t *testing.T) {
	params := baseParams()
	params.ToLayer = 2
	skip, err := rangeexpr.Parse("1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	params.SkipLayers = skip
	// No correspondences are wired between any of these layers, so every
	// tile must be fixed or it has no neighbor matches to fit against.
	params.FixedLayers = map[int]bool{0: true, 2: true}

	files := []*LayerFile{
		{Layer: 0, Location: "layer_0.json", Tiles: []*tilespec.TileSpec{{TileID: "t0", Layer: 0, BBox: [4]float64{0, 0, 20, 20}}}},
		{Layer: 1, Location: "layer_1.json", Tiles: []*tilespec.TileSpec{{TileID: "t1", Layer: 1, BBox: [4]float64{0, 0, 20, 20}}}},
		{Layer: 2, Location: "layer_2.json", Tiles: []*tilespec.TileSpec{{TileID: "t2", Layer: 2, BBox: [4]float64{0, 0, 20, 20}}}},
	}

	result, err := New(params, files, correspondence.Index{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Files) != 2 {
		t.Fatalf("expected 2 emitted files (layer 1 skipped), got %d", len(result.Files))
	}
	for _, f := range result.Files {
		if f.Layer == 1 {
			t.Errorf("layer 1 should have been skipped, got an emitted file for it")
		}
	}
}

func TestRunCanceledContext(t *testing.T) {
	params := baseParams()
	files := []*LayerFile{
		{Layer: 0, Location: "layer_0.json", Tiles: []*tilespec.TileSpec{{TileID: "t0", Layer: 0, BBox: [4]float64{0, 0, 20, 20}}}},
		{Layer: 1, Location: "layer_1.json", Tiles: []*tilespec.TileSpec{{TileID: "t1", Layer: 1, BBox: [4]float64{0, 0, 20, 20}}}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(params, files, correspondence.Index{}).Run(ctx); err == nil {
		t.Fatal("expected an error from a pre-canceled context")
	}
}
