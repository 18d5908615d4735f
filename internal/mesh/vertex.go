// Package mesh implements the regular triangulated spring mesh that
// deforms under attached point-match constraints to relax a layer's
// world-coordinate geometry, following mpicbg's SpringMesh design as
// described by OptimizeLayersElastic.java, adapted to Go value/pointer
// identity semantics.
package mesh

import "github.com/render-align/elastic-align/internal/geom"

// edge is one adjacency entry of a Vertex: a spring pulling it toward Neighbor.
type edge struct {
	Neighbor *Vertex
	Spring   *Spring
}

// Vertex is a mesh lattice point (active) or an externally attached point
// (passive). Two vertices are "the same" iff they are the identical *Vertex
// -- structural equality of coordinates is never used for identity.
type Vertex struct {
	geom.Point

	adjacency []edge
	force     geom.Vec2
}

// NewVertex creates a vertex at rest, with W initialized to L.
func NewVertex(l geom.Vec2) *Vertex {
	return &Vertex{Point: geom.Point{L: l, W: l}}
}

// NewVertexFromPoint creates a vertex that starts at the given point's
// current L/W, used when promoting a correspondence endpoint to a passive
// vertex (mirrors `new Vertex(pm.getP2())` in the original tool).
func NewVertexFromPoint(p *geom.Point) *Vertex {
	return &Vertex{Point: geom.Point{L: p.L, W: p.W}}
}

// AddSpring attaches a one-directional spring from v to neighbor: v's force
// accumulator will be pulled toward neighbor, but neighbor is not made
// aware of v unless AddSpring is also called on it (intra-mesh lattice
// springs call it both ways; cross-layer springs from an active vertex to
// a passive vertex call it only from the active side).
func (v *Vertex) AddSpring(neighbor *Vertex, s *Spring) {
	v.adjacency = append(v.adjacency, edge{Neighbor: neighbor, Spring: s})
}

// Adjacent returns the neighbors and springs currently attached to v, in
// insertion order.
func (v *Vertex) Adjacent() [](struct {
	Neighbor *Vertex
	Spring   *Spring
}) {
	out := make([]struct {
		Neighbor *Vertex
		Spring   *Spring
	}, len(v.adjacency))
	for i, e := range v.adjacency {
		out[i] = struct {
			Neighbor *Vertex
			Spring   *Spring
		}{e.Neighbor, e.Spring}
	}
	return out
}

// Degree is the number of springs attached to v.
func (v *Vertex) Degree() int { return len(v.adjacency) }
