// Package correspondence loads and indexes inter-layer point-match
// records, and performs the vertex fix-up that binds each record's first
// endpoint onto its owning mesh's lattice vertex, following
// OptimizeLayersElastic.java's parseCorrespondenceFiles/
// fixAllPointMatchVertices pair.
package correspondence

import "github.com/render-align/elastic-align/internal/geom"

// PointLW is one endpoint of a correspondence pair, carrying both its
// local (pre-alignment) and world (current best estimate) coordinates,
// mirroring the on-disk `{"l":[x,y],"w":[x,y]}` point representation.
type PointLW struct {
	L [2]float64 `json:"l"`
	W [2]float64 `json:"w"`
}

func (p PointLW) toPoint() *geom.Point {
	return &geom.Point{
		L: geom.Vec2{X: p.L[0], Y: p.L[1]},
		W: geom.Vec2{X: p.W[0], Y: p.W[1]},
	}
}

func fromPoint(p *geom.Point) PointLW {
	return PointLW{L: [2]float64{p.L.X, p.L.Y}, W: [2]float64{p.W.X, p.W.Y}}
}

// Pair is one correspondence point pair as stored in a correspondence
// file, plus an optional match weight.
type Pair struct {
	P1     PointLW `json:"p1"`
	P2     PointLW `json:"p2"`
	Weight float64 `json:"w,omitempty"`
}

// Spec is one correspondence record between two tile-spec URLs, as
// parsed from a `--corrFiles` JSON document.
type Spec struct {
	URL1                     string  `json:"url1"`
	URL2                     string  `json:"url2"`
	CorrespondencePointPairs []Pair  `json:"correspondencePointPairs"`
	ModelIndex               *int    `json:"modelIndex,omitempty"`
	ShouldConnect            bool    `json:"shouldConnect"`

	// Layer1/Layer2 are resolved during loading, not part of the wire format.
	Layer1 int `json:"-"`
	Layer2 int `json:"-"`

	// matches caches the decoded pairs as *geom.Point-identified matches.
	// Vertex fix-up rewrites a match's P1 to alias a mesh vertex's own
	// Point, and later stages (spring wiring) recover that vertex by
	// pointer identity via SpringMesh.VertexForPoint; round-tripping
	// through CorrespondencePointPairs on every call would mint a fresh
	// *geom.Point each time and break that identity, so once built the
	// cache is what Matches returns from then on.
	matches []geom.PointMatch
}

// Matches returns the spec's point matches, with P1 drawn from URL1's side
// and P2 from URL2's side. The first call decodes CorrespondencePointPairs
// and caches the result; SetMatches replaces the cache directly.
func (s *Spec) Matches() []geom.PointMatch {
	if s.matches != nil {
		return s.matches
	}
	out := make([]geom.PointMatch, len(s.CorrespondencePointPairs))
	for i, p := range s.CorrespondencePointPairs {
		w := p.Weight
		if w == 0 {
			w = 1
		}
		out[i] = geom.PointMatch{P1: p.P1.toPoint(), P2: p.P2.toPoint(), Weight: w}
	}
	s.matches = out
	return out
}

// SetMatches overwrites the spec's matches, used after vertex fix-up
// rewrites P1 to point at mesh vertices. CorrespondencePointPairs is
// refreshed too, so anything inspecting the wire-format field directly
// still sees the rebound endpoints, but Matches keeps serving the cached
// slice so pointer identity survives.
func (s *Spec) SetMatches(matches []geom.PointMatch) {
	s.matches = matches
	pairs := make([]Pair, len(matches))
	for i, m := range matches {
		pairs[i] = Pair{P1: fromPoint(m.P1), P2: fromPoint(m.P2), Weight: m.Weight}
	}
	s.CorrespondencePointPairs = pairs
}

// Index is the loaded and layer-resolved correspondence set: Index[a][b]
// is the record between layer a and layer b, keyed the same direction it
// was declared in the source file (a corresponds to URL1's layer).
type Index map[int]map[int]*Spec

// insert adds spec under Index[spec.Layer1][spec.Layer2], creating the
// inner map if needed. It returns alignerr.DuplicateCorrespondence if a
// record already exists for that ordered layer pair.
func (idx Index) insert(spec *Spec) error {
	inner, ok := idx[spec.Layer1]
	if !ok {
		inner = make(map[int]*Spec)
		idx[spec.Layer1] = inner
	}
	if _, exists := inner[spec.Layer2]; exists {
		return duplicateCorrespondenceError(spec.Layer1, spec.Layer2)
	}
	inner[spec.Layer2] = spec
	return nil
}
