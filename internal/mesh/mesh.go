package mesh

import (
	"math"

	"github.com/render-align/elastic-align/internal/geom"
)

// binding records how a passive vertex is carried by the mesh's fixed
// triangulation: which triangle encloses it, and at what barycentric
// weights, both fixed at the moment the passive vertex was attached.
type binding struct {
	tri  *triangle
	u, v, w float64
}

// SpringMesh is a regular triangulated lattice covering a layer's image
// bounds, whose vertices relax under attached spring constraints. Active
// vertices are the mesh's own lattice points, driven directly by force
// integration; passive vertices are foreign points (correspondence
// endpoints belonging to a partner mesh) carried along by the enclosing
// triangle's deformation.
type SpringMesh struct {
	Width, Height float64
	Resolution    int

	Stiffness  float64
	MaxStretch float64
	Damp       float64

	ActiveVertices  []*Vertex
	PassiveVertices []*Vertex

	triangles []*triangle
	bindings  map[*Vertex]binding

	va  []*geom.PointMatch
	vaTargets map[*geom.PointMatch][]*Vertex
	pva map[*Vertex]*geom.PointMatch

	pointIndex map[*geom.Point]*Vertex
}

// New builds a triangulated lattice covering [0,width]x[0,height] with
// approximately `resolution` columns per row, following the row-offset
// equilateral triangulation described for spring meshes: alternating rows
// are offset by half the column spacing so each interior vertex has six
// neighbors.
func New(width, height float64, resolution int, stiffness, maxStretch, damp float64) *SpringMesh {
	if resolution < 1 {
		resolution = 1
	}
	m := &SpringMesh{
		Width:      width,
		Height:     height,
		Resolution: resolution,
		Stiffness:  stiffness,
		MaxStretch: maxStretch,
		Damp:       damp,
		bindings:   make(map[*Vertex]binding),
		vaTargets:  make(map[*geom.PointMatch][]*Vertex),
		pva:        make(map[*Vertex]*geom.PointMatch),
		pointIndex: make(map[*geom.Point]*Vertex),
	}
	m.buildLattice()
	for _, v := range m.ActiveVertices {
		m.pointIndex[&v.Point] = v
	}
	return m
}

// VertexForPoint returns the active vertex whose embedded point is p, if p
// belongs to this mesh's lattice. Correspondence fix-up rewrites a match's
// P1 to alias a vertex's own point, so this is how later stages recover the
// vertex behind a fixed-up match without reaching into mesh internals.
func (m *SpringMesh) VertexForPoint(p *geom.Point) (*Vertex, bool) {
	v, ok := m.pointIndex[p]
	return v, ok
}

func (m *SpringMesh) buildLattice() {
	spacing := m.Width / float64(m.Resolution)
	rowHeight := spacing * math.Sqrt(3) / 2
	cols := m.Resolution + 1
	rows := int(math.Ceil(m.Height/rowHeight)) + 1

	grid := make([][]*Vertex, rows)
	for r := 0; r < rows; r++ {
		grid[r] = make([]*Vertex, cols)
		offset := 0.0
		if r%2 == 1 {
			offset = spacing / 2
		}
		for c := 0; c < cols; c++ {
			v := NewVertex(geom.Vec2{X: float64(c)*spacing + offset, Y: float64(r) * rowHeight})
			grid[r][c] = v
			m.ActiveVertices = append(m.ActiveVertices, v)
		}
	}

	type edgeKey struct{ a, b *Vertex }
	seen := make(map[edgeKey]bool)
	addSpring := func(a, b *Vertex) {
		if a == b {
			return
		}
		k1, k2 := edgeKey{a, b}, edgeKey{b, a}
		if seen[k1] || seen[k2] {
			return
		}
		seen[k1] = true
		s := NewSpring(a.L.Dist(b.L), m.Stiffness, m.MaxStretch)
		a.AddSpring(b, s)
		b.AddSpring(a, s)
	}

	for r := 0; r < rows-1; r++ {
		for c := 0; c < cols-1; c++ {
			a, b, d, e := grid[r][c], grid[r][c+1], grid[r+1][c], grid[r+1][c+1]
			if r%2 == 0 {
				m.triangles = append(m.triangles, &triangle{A: a, B: b, C: d})
				m.triangles = append(m.triangles, &triangle{A: b, B: e, C: d})
				addSpring(b, d)
			} else {
				m.triangles = append(m.triangles, &triangle{A: a, B: e, C: d})
				m.triangles = append(m.triangles, &triangle{A: a, B: b, C: e})
				addSpring(a, e)
			}
			addSpring(a, b)
			addSpring(a, d)
			addSpring(b, e)
			addSpring(d, e)
		}
	}
	// Close off the last column and last row's remaining horizontal/vertical edges.
	for r := 0; r < rows-1; r++ {
		addSpring(grid[r][cols-1], grid[r+1][cols-1])
	}
	for c := 0; c < cols-1; c++ {
		addSpring(grid[rows-1][c], grid[rows-1][c+1])
	}
}

// Bounds returns the mesh's local-coordinate bounding box, [minL, maxL].
func (m *SpringMesh) Bounds() (min, max geom.Vec2) {
	min = geom.Vec2{X: math.Inf(1), Y: math.Inf(1)}
	max = geom.Vec2{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, v := range m.ActiveVertices {
		if v.L.X < min.X {
			min.X = v.L.X
		}
		if v.L.Y < min.Y {
			min.Y = v.L.Y
		}
		if v.L.X > max.X {
			max.X = v.L.X
		}
		if v.L.Y > max.Y {
			max.Y = v.L.Y
		}
	}
	return min, max
}

// enclosing returns the triangle enclosing local point p, or the nearest
// triangle (by centroid distance) with clamped barycentric weights if p
// lies outside the mesh's convex hull.
func (m *SpringMesh) enclosing(p geom.Vec2) (*triangle, float64, float64, float64) {
	var best *triangle
	bestDist := math.Inf(1)
	var bu, bv, bw float64
	for _, t := range m.triangles {
		if u, v, w, inside := t.barycentric(p); inside {
			return t, u, v, w
		} else if d := t.centroidL().Dist(p); d < bestDist {
			bestDist, best, bu, bv, bw = d, t, u, v, w
		}
	}
	if best == nil {
		return nil, 0, 0, 0
	}
	cu, cv, cw := clampBarycentric(bu, bv, bw)
	return best, cu, cv, cw
}

// ApplyInPlace warps p.L through the mesh's current deformation, writing
// the result into p.W. Points outside the mesh's convex hull are snapped
// to the nearest boundary triangle.
func (m *SpringMesh) ApplyInPlace(p *geom.Point) bool {
	t, u, v, w := m.enclosing(p.L)
	if t == nil {
		return false
	}
	p.W = t.worldAt(u, v, w)
	return true
}

// AddPassiveVertex attaches a foreign point as a passive vertex of this
// mesh: it is bound to its enclosing triangle at construction time and
// carried along by that triangle's deformation from then on, without ever
// generating force back into the lattice.
func (m *SpringMesh) AddPassiveVertex(v *Vertex) bool {
	t, u, vv, w := m.enclosing(v.L)
	if t == nil {
		return false
	}
	m.bindings[v] = binding{tri: t, u: u, v: vv, w: w}
	m.PassiveVertices = append(m.PassiveVertices, v)
	return true
}

// Connect installs a one-directional spring from an active vertex of this
// mesh (pm.P1, which must already have been snapped onto the lattice) to a
// freshly created passive vertex representing the partner mesh's point,
// recording the linkage in VA/PVA for later MLS control-point extraction
// and world-coordinate unscaling. constant is the spring's own stiffness,
// independent of the mesh's intra-lattice Stiffness, since cross-layer
// constraints are scaled by layer distance.
func (m *SpringMesh) Connect(pm *geom.PointMatch, active *Vertex, passive *Vertex, restLength, constant float64) {
	s := NewSpring(restLength, constant, m.MaxStretch)
	active.AddSpring(passive, s)
	if _, ok := m.vaTargets[pm]; !ok {
		m.va = append(m.va, pm)
	}
	m.vaTargets[pm] = append(m.vaTargets[pm], passive)
	m.pva[passive] = pm
}

// VA returns the ordered active-vertex matches installed via Connect. Their
// passive targets are looked up with PassiveTargetsFor.
func (m *SpringMesh) VA() []*geom.PointMatch { return m.va }

// PassiveTargetsFor returns the passive vertices attached via pm.
func (m *SpringMesh) PassiveTargetsFor(pm *geom.PointMatch) []*Vertex { return m.vaTargets[pm] }

// OwningMatch returns the active-vertex match that installed passive
// vertex v, if any.
func (m *SpringMesh) OwningMatch(v *Vertex) (*geom.PointMatch, bool) {
	pm, ok := m.pva[v]
	return pm, ok
}

// Update performs one iteration of force integration: active vertices move
// under the sum of their attached spring forces scaled by Damp divided by
// the vertex's spring count, then every
// passive vertex is recomputed from its bound triangle's new corners. It
// returns the largest per-vertex displacement and the mesh's mean spring
// energy, the two signals the optimizer uses for convergence detection.
func (m *SpringMesh) Update() (maxDelta, meanEnergy float64) {
	displacements := make([]geom.Vec2, len(m.ActiveVertices))
	for i, v := range m.ActiveVertices {
		if len(v.adjacency) == 0 {
			continue
		}
		var force geom.Vec2
		for _, e := range v.adjacency {
			force = force.Add(e.Spring.forceOn(v.W, e.Neighbor.W))
		}
		displacements[i] = force.Scale(m.Damp / float64(len(v.adjacency)))
	}
	for i, v := range m.ActiveVertices {
		v.W = v.W.Add(displacements[i])
		if d := displacements[i].Length(); d > maxDelta {
			maxDelta = d
		}
	}

	for v, b := range m.bindings {
		v.W = b.tri.worldAt(b.u, b.v, b.w)
	}

	var energySum float64
	var springCount int
	for _, v := range m.ActiveVertices {
		for _, e := range v.adjacency {
			energySum += e.Spring.energy(v.W, e.Neighbor.W)
			springCount++
		}
	}
	if springCount > 0 {
		meanEnergy = energySum / float64(springCount)
	}
	return maxDelta, meanEnergy
}
