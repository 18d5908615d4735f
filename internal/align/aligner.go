package align

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/correspondence"
	"github.com/render-align/elastic-align/internal/geom"
	"github.com/render-align/elastic-align/internal/log"
	"github.com/render-align/elastic-align/internal/mesh"
	"github.com/render-align/elastic-align/internal/mls"
	"github.com/render-align/elastic-align/internal/model"
	"github.com/render-align/elastic-align/internal/tileconfig"
	"github.com/render-align/elastic-align/internal/tilespec"
)

// LayerFile is one input tile-spec file, already read and layer-tagged: the
// aligner treats every tile in a file as belonging to that file's mesh and
// tile-configuration node, and writes the (possibly many) tiles back to the
// same file on emit.
type LayerFile struct {
	Layer    int
	Location string
	Tiles    []*tilespec.TileSpec
}

// Result is everything a caller needs to write the run's output and report
// on it.
type Result struct {
	Files                 []*LayerFile
	TileConfigIterations  int
	MeshIterations        int
	DroppedMatches        int
}

// Aligner runs the eight-step elastic alignment sequence over a set of
// layer tile-spec files and their inter-layer correspondences.
type Aligner struct {
	Params Params
	Corrs  correspondence.Index

	byLayer map[int]*LayerFile

	tiles  map[int]*tileconfig.Tile
	meshes map[int]*mesh.SpringMesh
	locks  map[int]*sync.Mutex
}

// New builds an Aligner over files (one per layer) and a layer-resolved
// correspondence index.
func New(params Params, files []*LayerFile, corrs correspondence.Index) *Aligner {
	byLayer := make(map[int]*LayerFile, len(files))
	for _, f := range files {
		byLayer[f.Layer] = f
	}
	return &Aligner{Params: params, Corrs: corrs, byLayer: byLayer}
}

// layers returns the sorted, in-range, non-skipped layer numbers that have
// an input file, the working set every step iterates over.
func (a *Aligner) layers() []int {
	out := make([]int, 0, len(a.byLayer))
	for l := range a.byLayer {
		if l < a.Params.FromLayer || l > a.Params.ToLayer {
			continue
		}
		if a.Params.skipped(l) {
			continue
		}
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// Run executes the full instantiate/fixup/wire/pre-align/relax/unscale/emit
// sequence and returns the emitted files.
func (a *Aligner) Run(ctx context.Context) (*Result, error) {
	layers := a.layers()
	log.Logger(ctx).Info("starting alignment run", zap.Int("layers", len(layers)))
	if len(layers) == 0 {
		return &Result{}, nil
	}

	if err := a.instantiateTiles(layers); err != nil {
		return nil, err
	}
	a.instantiateMeshes(layers)
	log.Logger(ctx).Info("tiles and meshes instantiated")

	dropped, err := correspondence.FixVertices(ctx, a.meshes, a.Corrs, a.Params.Threads)
	if err != nil {
		return nil, err
	}
	log.Logger(ctx).Info("vertex fix-up complete", zap.Int("dropped_matches", dropped))

	if err := a.wire(ctx, layers); err != nil {
		return nil, err
	}
	log.Logger(ctx).Info("inter-layer constraints wired")

	tcIters, err := a.preAlign(ctx, layers)
	if err != nil {
		return nil, err
	}
	log.Logger(ctx).Info("pre-alignment complete", zap.Int("iterations", tcIters))

	meshIters, err := a.relax(ctx, layers)
	if err != nil {
		return nil, err
	}
	log.Logger(ctx).Info("mesh relaxation complete", zap.Int("iterations", meshIters))

	a.unscale(layers)

	files, err := a.emit(ctx, layers)
	if err != nil {
		return nil, err
	}
	log.Logger(ctx).Info("alignment run complete", zap.Int("layers_emitted", len(files)))

	return &Result{
		Files:                files,
		TileConfigIterations: tcIters,
		MeshIterations:       meshIters,
		DroppedMatches:       dropped,
	}, nil
}

// step 1: instantiate per-layer tiles of the chosen model type.
func (a *Aligner) instantiateTiles(layers []int) error {
	a.tiles = make(map[int]*tileconfig.Tile, len(layers))
	for _, l := range layers {
		mdl, err := model.New(a.Params.ModelIndex)
		if err != nil {
			return fmt.Errorf("layer %d: %w", l, err)
		}
		t := tileconfig.NewTile(fmt.Sprintf("layer-%d", l), mdl)
		if a.Params.FixedLayers[l] {
			tileconfig.FixTile(t)
		}
		a.tiles[l] = t
	}
	return nil
}

// step 2: instantiate per-layer meshes sized to the scaled image bounds.
func (a *Aligner) instantiateMeshes(layers []int) {
	width, height := a.Params.meshDims()
	a.meshes = make(map[int]*mesh.SpringMesh, len(layers))
	a.locks = make(map[int]*sync.Mutex, len(layers))
	for _, l := range layers {
		a.meshes[l] = mesh.New(width, height, a.Params.ResolutionSpringMesh,
			a.Params.StiffnessSpringMesh, a.Params.MaxStretchSpringMesh, a.Params.DampSpringMesh)
		a.locks[l] = &sync.Mutex{}
	}
}

// step 4: wire inter-layer constraints. Fans out one worker per layer a;
// each worker wires its pairs (a, b) for b in (a, a+maxLayerDistance],
// taking the pair's mesh locks in ascending layer order to avoid deadlock
// against a concurrent worker wiring (a', b) where a' > a.
func (a *Aligner) wire(ctx context.Context, layers []int) error {
	present := make(map[int]bool, len(layers))
	for _, l := range layers {
		present[l] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, la := range layers {
		la := la
		g.Go(func() error {
			maxB := la + a.Params.MaxLayersDistance
			for lb := la + 1; lb <= maxB; lb++ {
				if !present[lb] {
					continue
				}
				select {
				case <-gctx.Done():
					return alignerr.Canceled.Wrap(gctx.Err(), "wiring canceled")
				default:
				}
				a.wirePair(la, lb)
			}
			return nil
		})
	}
	return g.Wait()
}

// wirePair installs the cross-layer springs and, if requested, the
// tile-configuration edge between layers la < lb.
func (a *Aligner) wirePair(la, lb int) {
	lockLow, lockHigh := a.locks[la], a.locks[lb]
	lockLow.Lock()
	defer lockLow.Unlock()
	lockHigh.Lock()
	defer lockHigh.Unlock()

	k := 1.0 / float64(lb-la)
	meshA, meshB := a.meshes[la], a.meshes[lb]

	var configMatches []geom.PointMatch

	if spec, ok := a.Corrs[la][lb]; ok {
		a.wireSprings(meshA, meshB, spec.Matches(), k)
		if spec.ShouldConnect {
			configMatches = append(configMatches, spec.Matches()...)
		}
	}
	if spec, ok := a.Corrs[lb][la]; ok {
		a.wireSprings(meshB, meshA, spec.Matches(), k)
		if spec.ShouldConnect {
			for _, m := range spec.Matches() {
				configMatches = append(configMatches, geom.PointMatch{P1: m.P2, P2: m.P1, Weight: m.Weight})
			}
		}
	}

	if len(configMatches) > 0 {
		tileconfig.Connect(a.tiles[la], a.tiles[lb], configMatches)
	}
}

// wireSprings installs, for each match p in matches (P1 already snapped
// onto activeMesh's lattice by fix-up), a fresh passive vertex on
// passiveMesh carrying p.P2, and a one-directional spring of constant k
// from p.P1's vertex to that passive vertex.
func (a *Aligner) wireSprings(activeMesh, passiveMesh *mesh.SpringMesh, matches []geom.PointMatch, k float64) {
	for _, m := range matches {
		active, ok := activeMesh.VertexForPoint(m.P1)
		if !ok {
			continue
		}
		passive := mesh.NewVertexFromPoint(m.P2)
		if !passiveMesh.AddPassiveVertex(passive) {
			continue
		}
		mCopy := m
		activeMesh.Connect(&mCopy, active, passive, 0, k)
	}
}

// step 5: pre-align via the tile-configuration solver, then pre-warp every
// mesh's vertices through its tile's fitted model.
func (a *Aligner) preAlign(ctx context.Context, layers []int) (int, error) {
	tiles := make([]*tileconfig.Tile, len(layers))
	for i, l := range layers {
		tiles[i] = a.tiles[l]
	}
	epsilon := a.Params.MaxEpsilon * a.Params.LayerScale
	iters, err := tileconfig.Optimize(ctx, tiles, epsilon, a.Params.MaxIterationsSpringMesh, a.Params.MaxPlateauwidthSpringMesh)
	if err != nil {
		return iters, err
	}

	for _, l := range layers {
		t := a.tiles[l]
		for _, v := range a.meshes[l].ActiveVertices {
			v.W = t.Model.Apply(v.L)
		}
	}
	return iters, nil
}

// step 6: relax the spring meshes to equilibrium.
func (a *Aligner) relax(ctx context.Context, layers []int) (int, error) {
	meshes := make([]*mesh.SpringMesh, len(layers))
	for i, l := range layers {
		meshes[i] = a.meshes[l]
	}
	epsilon := a.Params.MaxEpsilon * a.Params.LayerScale
	if a.Params.UseLegacyOptimizer {
		if err := mesh.OptimizeMeshes2(ctx, meshes, epsilon, a.Params.MaxIterationsSpringMesh); err != nil {
			return 0, err
		}
		return a.Params.MaxIterationsSpringMesh, nil
	}
	return mesh.OptimizeMeshes(ctx, meshes, epsilon, a.Params.MaxIterationsSpringMesh, a.Params.MaxPlateauwidthSpringMesh)
}

// step 7: unscale every match endpoint (every mesh vertex, active and
// passive) back to full-resolution world coordinates.
func (a *Aligner) unscale(layers []int) {
	scale := a.Params.LayerScale
	if scale == 0 {
		scale = 1
	}
	origin := a.Params.SceneOrigin
	unscaleVertex := func(v *mesh.Vertex) {
		v.L = v.L.Scale(1 / scale).Add(origin)
		v.W = v.W.Scale(1 / scale).Add(origin)
	}
	for _, l := range layers {
		m := a.meshes[l]
		for _, v := range m.ActiveVertices {
			unscaleVertex(v)
		}
		for _, v := range m.PassiveVertices {
			unscaleVertex(v)
		}
	}
}

// step 8: emit a restricted MLS transform per tile, appended to its
// existing chain, with its bbox recomputed from the layer mesh's bounds.
// Layers are processed concurrently; each owns its own file exclusively.
func (a *Aligner) emit(ctx context.Context, layers []int) ([]*LayerFile, error) {
	files := make([]*LayerFile, len(layers))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range layers {
		i, l := i, l
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return alignerr.Canceled.Wrap(gctx.Err(), "emit canceled")
			default:
			}
			f, ok := a.byLayer[l]
			if !ok {
				return nil
			}
			if err := a.emitLayer(f, a.meshes[l]); err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := files[:0]
	for _, f := range files {
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}

func (a *Aligner) emitLayer(f *LayerFile, m *mesh.SpringMesh) error {
	controls := make([]mls.Control, len(m.ActiveVertices))
	for i, v := range m.ActiveVertices {
		controls[i] = mls.Control{L: v.L, W: v.W, Weight: 1}
	}
	bbox := worldBounds(m.ActiveVertices)

	for _, ts := range f.Tiles {
		tileBBox := mls.BBox{ts.BBox[0], ts.BBox[1], ts.BBox[2], ts.BBox[3]}
		transform, err := mls.New(controls, tileBBox)
		if err != nil {
			return fmt.Errorf("tile %s: %w", ts.TileID, err)
		}
		ts.AppendTransform("MLS", transform.DataString())
		ts.BBox = [4]float64{bbox[0], bbox[1], bbox[2], bbox[3]}
	}
	return nil
}

func worldBounds(vertices []*mesh.Vertex) mls.BBox {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range vertices {
		if v.W.X < minX {
			minX = v.W.X
		}
		if v.W.Y < minY {
			minY = v.W.Y
		}
		if v.W.X > maxX {
			maxX = v.W.X
		}
		if v.W.Y > maxY {
			maxY = v.W.Y
		}
	}
	if len(vertices) == 0 {
		return mls.BBox{}
	}
	return mls.BBox{minX, minY, maxX, maxY}
}
