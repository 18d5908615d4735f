// Package tileconfig implements the tile-configuration graph solver used
// for rigid/affine pre-alignment before spring-mesh relaxation: each tile
// carries its own coordinate model, tiles are connected pairwise by point
// matches, and Optimize iteratively refits every unfixed tile's model
// against its neighbors' current world-space estimate.
package tileconfig

import "github.com/render-align/elastic-align/internal/geom"

// edge is one directed connection from a tile to a neighbor: the point
// matches are stored with P1 in this tile's local frame and P2 in the
// neighbor's local frame.
type edge struct {
	other   *Tile
	matches []geom.PointMatch
}

// Tile is one node of the tile-configuration graph: a coordinate model
// together with the point-match edges linking it to its neighbors.
type Tile struct {
	ID    string
	Model geom.Model

	fixed bool
	edges []*edge
}

// NewTile wraps a model with the identifier used in logging and error
// messages.
func NewTile(id string, model geom.Model) *Tile {
	return &Tile{ID: id, Model: model}
}

// Fixed reports whether the tile's model is excluded from Optimize's
// per-iteration refits.
func (t *Tile) Fixed() bool { return t.fixed }

// FixTile pins a tile's model so Optimize never overwrites it; fixed tiles
// still contribute their (frozen) world-space estimate to their
// neighbors' fits.
func FixTile(t *Tile) { t.fixed = true }

// Connect installs a symmetric edge between a and b: matches must have P1
// in a's local frame and P2 in b's local frame. The mirrored edge on b
// gets the same matches with P1/P2 swapped. Connecting the same pair twice
// is a no-op on the edge itself; the new matches are appended to the
// existing edge, deduplicated by point identity, rather than creating a
// second parallel edge.
func Connect(a, b *Tile, matches []geom.PointMatch) {
	mirrored := make([]geom.PointMatch, len(matches))
	for i, m := range matches {
		mirrored[i] = geom.PointMatch{P1: m.P2, P2: m.P1, Weight: m.Weight}
	}
	addOrMerge(a, b, matches)
	addOrMerge(b, a, mirrored)
}

// addOrMerge finds t's existing edge to other and appends any matches not
// already present, or creates a new edge if none exists yet.
func addOrMerge(t, other *Tile, matches []geom.PointMatch) {
	for _, e := range t.edges {
		if e.other != other {
			continue
		}
		for _, m := range matches {
			if !hasMatch(e.matches, m) {
				e.matches = append(e.matches, m)
			}
		}
		return
	}
	t.edges = append(t.edges, &edge{other: other, matches: append([]geom.PointMatch(nil), matches...)})
}

// hasMatch reports whether matches already contains m, identified by the
// identity of its two endpoints rather than their coordinate values.
func hasMatch(matches []geom.PointMatch, m geom.PointMatch) bool {
	for _, x := range matches {
		if x.P1 == m.P1 && x.P2 == m.P2 {
			return true
		}
	}
	return false
}

// neighborMatches builds the synthetic point-match list used to fit t's
// model: for every edge, each match's local point (P1) is paired against
// its neighbor's *current* world-space estimate of the matching point
// (the neighbor's model applied to P2's local coordinate).
func (t *Tile) neighborMatches() []geom.PointMatch {
	var out []geom.PointMatch
	for _, e := range t.edges {
		for _, m := range e.matches {
			target := e.other.Model.Apply(m.P2.L)
			out = append(out, geom.PointMatch{
				P1:     geom.NewPoint(m.P1.L),
				P2:     &geom.Point{L: target, W: target},
				Weight: m.Weight,
			})
		}
	}
	return out
}

// cost is the tile's current mean transfer error against its neighbors'
// world-space estimate, used by Optimize's plateau detection.
func (t *Tile) cost() float64 {
	matches := t.neighborMatches()
	if len(matches) == 0 {
		return 0
	}
	return t.Model.Cost(matches)
}
