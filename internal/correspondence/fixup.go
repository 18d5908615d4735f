package correspondence

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/render-align/elastic-align/internal/geom"
	"github.com/render-align/elastic-align/internal/mesh"
)

// ulp mirrors Java's Math.ulp: the spacing between x and the next
// representable float64 above it.
func ulp(x float64) float64 {
	if x == 0 {
		return math.SmallestNonzeroFloat64
	}
	return math.Nextafter(x, math.Inf(1)) - x
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= 2*ulp(b)
}

func sameLocal(a, b geom.Vec2) bool {
	return closeEnough(a.X, b.X) && closeEnough(a.Y, b.Y)
}

// fixOne rebinds every match whose P1 lands within 2 ulp of a mesh
// vertex's local coordinate onto that vertex, so the mesh's own relaxation
// moves the match's world coordinate along with it. The vertex's world
// coordinate is overwritten by the match's, so the most recently applied
// constraint wins if two records happen to target the same vertex. Matches
// with no owning vertex are dropped; dropped counts how many.
func fixOne(matches []geom.PointMatch, vertices []*mesh.Vertex) (fixed []geom.PointMatch, dropped int) {
	fixed = make([]geom.PointMatch, 0, len(matches))
	for _, m := range matches {
		bound := false
		for _, v := range vertices {
			if !sameLocal(m.P1.L, v.L) {
				continue
			}
			v.W = m.P1.W
			fixed = append(fixed, geom.PointMatch{P1: &v.Point, P2: m.P2, Weight: m.Weight})
			bound = true
		}
		if !bound {
			dropped++
		}
	}
	return fixed, dropped
}

// FixVertices rebinds every correspondence record's P1 endpoint onto its
// owning layer's mesh vertices, processing contiguous layer slabs
// concurrently the way fixAllPointMatchVertices partitions its layer range
// across threads. It returns the total number of matches dropped for
// landing outside any mesh vertex, the run-report counter named in the
// vertex fix-up design.
func FixVertices(ctx context.Context, meshes map[int]*mesh.SpringMesh, idx Index, threads int) (int, error) {
	layers := make([]int, 0, len(idx))
	for l := range idx {
		layers = append(layers, l)
	}
	sort.Ints(layers)

	ranges := chunks(len(layers), threads)
	dropCounts := make([]int, len(ranges))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			for _, layer := range layers[r[0]:r[1]] {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				m, ok := meshes[layer]
				if !ok {
					continue
				}
				for _, spec := range idx[layer] {
					fixed, dropped := fixOne(spec.Matches(), m.ActiveVertices)
					spec.SetMatches(fixed)
					dropCounts[i] += dropped
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	total := 0
	for _, d := range dropCounts {
		total += d
	}
	return total, nil
}
