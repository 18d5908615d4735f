// Package align implements the elastic aligner orchestrator: it wires
// together internal/model, internal/mesh, internal/tileconfig,
// internal/correspondence and internal/mls to run the full per-layer
// alignment sequence described for OptimizeLayersElastic.java's Go
// counterpart.
package align

import (
	"math"

	"github.com/render-align/elastic-align/internal/geom"
	"github.com/render-align/elastic-align/internal/rangeexpr"
)

// Params bundles the tuning knobs of one alignment run, mirroring the CLI
// surface's optional flags one-to-one.
type Params struct {
	ModelIndex int

	LayerScale float64

	ResolutionSpringMesh     int
	StiffnessSpringMesh      float64
	DampSpringMesh           float64
	MaxStretchSpringMesh     float64
	MaxEpsilon               float64
	MaxIterationsSpringMesh  int
	MaxPlateauwidthSpringMesh int

	MaxLayersDistance  int
	UseLegacyOptimizer bool
	Threads            int

	FromLayer, ToLayer int
	SkipLayers         rangeexpr.Set
	FixedLayers        map[int]bool

	ImageWidth, ImageHeight float64
	SceneOrigin             geom.Vec2
}

// skipped reports whether layer should be excluded from meshing and
// emission entirely.
func (p Params) skipped(layer int) bool {
	if p.SkipLayers == nil {
		return false
	}
	return p.SkipLayers.Contains(layer)
}

// meshDims returns the scaled mesh width/height for the run's image size,
// per "sized ceil(image_w * layer_scale) x ceil(image_h * layer_scale)".
func (p Params) meshDims() (width, height float64) {
	return math.Ceil(p.ImageWidth * p.LayerScale), math.Ceil(p.ImageHeight * p.LayerScale)
}
