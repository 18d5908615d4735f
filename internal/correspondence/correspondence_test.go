package correspondence

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/render-align/elastic-align/internal/geom"
	"github.com/render-align/elastic-align/internal/mesh"
)

func TestChunksPartitioning(t *testing.T) {
	got := chunks(10, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	total := 0
	for _, r := range got {
		total += r[1] - r[0]
	}
	if total != 10 {
		t.Errorf("chunks should cover all 10 items, covered %d", total)
	}
	if got[len(got)-1][1] != 10 {
		t.Errorf("last chunk should absorb the remainder, got %+v", got)
	}
}

func TestFixOneRebindsOntoMeshVertex(t *testing.T) {
	m := mesh.New(20, 20, 2, 0.5, 1000, 0.5)
	target := m.ActiveVertices[0]

	matches := []geom.PointMatch{
		{
			P1:     &geom.Point{L: target.L, W: geom.Vec2{X: target.L.X + 1, Y: target.L.Y + 1}},
			P2:     geom.NewPoint(geom.Vec2{X: 5, Y: 5}),
			Weight: 1,
		},
	}
	fixed, dropped := fixOne(matches, m.ActiveVertices)
	if len(fixed) != 1 {
		t.Fatalf("expected exactly one fixed match, got %d", len(fixed))
	}
	if dropped != 0 {
		t.Errorf("expected no drops, got %d", dropped)
	}
	if fixed[0].P1 != &target.Point {
		t.Errorf("fixed match should point at the mesh vertex's own Point")
	}
	if target.W.Dist(geom.Vec2{X: target.L.X + 1, Y: target.L.Y + 1}) > 1e-12 {
		t.Errorf("vertex world coordinate should be overwritten by the match's, got %+v", target.W)
	}
}

func TestFixOneIgnoresNonMatchingLocal(t *testing.T) {
	m := mesh.New(20, 20, 2, 0.5, 1000, 0.5)
	matches := []geom.PointMatch{
		{P1: geom.NewPoint(geom.Vec2{X: 12345, Y: 6789}), P2: geom.NewPoint(geom.Vec2{X: 1, Y: 1}), Weight: 1},
	}
	fixed, dropped := fixOne(matches, m.ActiveVertices)
	if len(fixed) != 0 {
		t.Errorf("expected no fixed matches for a point far from any vertex, got %d", len(fixed))
	}
	if dropped != 1 {
		t.Errorf("expected the unmatched point to be counted as dropped, got %d", dropped)
	}
}

func TestIndexInsertDetectsDuplicate(t *testing.T) {
	idx := make(Index)
	s1 := &Spec{Layer1: 1, Layer2: 2}
	s2 := &Spec{Layer1: 1, Layer2: 2}
	if err := idx.insert(s1); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := idx.insert(s2); err == nil {
		t.Fatal("expected duplicate correspondence error")
	}
}

type fakeFetcher map[string][]byte

func (f fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) { return f[url], nil }

type fakeResolver map[string]int

func (f fakeResolver) LayerForTileSpec(_ context.Context, url string) (int, error) { return f[url], nil }

func TestParseFilesResolvesLayersAndMerges(t *testing.T) {
	specs := []*Spec{
		{URL1: "a.json", URL2: "b.json", CorrespondencePointPairs: []Pair{
			{P1: PointLW{L: [2]float64{0, 0}, W: [2]float64{0, 0}}, P2: PointLW{L: [2]float64{1, 1}, W: [2]float64{1, 1}}},
		}},
	}
	data, err := json.Marshal(specs)
	if err != nil {
		t.Fatal(err)
	}
	fetcher := fakeFetcher{"corr1.json": data}
	resolver := fakeResolver{"a.json": 3, "b.json": 4}

	idx, err := ParseFiles(context.Background(), fetcher, resolver, []string{"corr1.json"}, nil, 2)
	if err != nil {
		t.Fatalf("ParseFiles: %v", err)
	}
	got, ok := idx[3][4]
	if !ok {
		t.Fatalf("expected an entry at Index[3][4], got %+v", idx)
	}
	if len(got.Matches()) != 1 {
		t.Errorf("expected one match, got %d", len(got.Matches()))
	}
}
