package mesh

import (
	"context"
	"math"

	"github.com/render-align/elastic-align/internal/alignerr"
)

// plateauWindow tracks the mean-energy history used to detect a converged
// relaxation: once the recent window's relative spread falls under
// plateauTolerance, the optimizer stops iterating rather than spending the
// rest of its iteration budget on negligible improvement.
type plateauWindow struct {
	history []float64
	width   int
}

func newPlateauWindow(width int) *plateauWindow {
	if width < 2 {
		width = 2
	}
	return &plateauWindow{width: width}
}

func (p *plateauWindow) push(v float64) {
	p.history = append(p.history, v)
	if len(p.history) > p.width {
		p.history = p.history[len(p.history)-p.width:]
	}
}

const plateauTolerance = 1e-4

func (p *plateauWindow) plateaued() bool {
	if len(p.history) < p.width {
		return false
	}
	min, max := p.history[0], p.history[0]
	for _, v := range p.history {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return true
	}
	return (max-min)/max < plateauTolerance
}

// detectCollapse reports whether any triangle in the mesh has inverted
// (its signed area changed sign from construction), which mpicbg's spring
// model treats as an unrecoverable relaxation failure.
func detectCollapse(m *SpringMesh) bool {
	for _, t := range m.triangles {
		a, b, c := t.A.W, t.B.W, t.C.W
		area := (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
		la, lb, lc := t.A.L, t.B.L, t.C.L
		rest := (lb.X-la.X)*(lc.Y-la.Y) - (lc.X-la.X)*(lb.Y-la.Y)
		if area == 0 || math.IsNaN(area) || (area > 0) != (rest > 0) {
			return true
		}
	}
	return false
}

// OptimizeMeshes relaxes every mesh in lockstep until either the largest
// per-vertex displacement across all meshes falls under maxEpsilon or the
// combined mean spring energy plateaus (its relative spread over the last
// maxPlateauWidth iterations falls under tolerance), whichever comes
// first, with a hard cap at maxIterations. It returns the number of
// iterations run.
func OptimizeMeshes(ctx context.Context, meshes []*SpringMesh, maxEpsilon float64, maxIterations, maxPlateauWidth int) (int, error) {
	window := newPlateauWindow(maxPlateauWidth)
	iter := 0
	for ; iter < maxIterations; iter++ {
		select {
		case <-ctx.Done():
			return iter, alignerr.Canceled.Wrap(ctx.Err(), "mesh optimization canceled")
		default:
		}

		var totalEnergy, maxDelta float64
		for _, m := range meshes {
			delta, energy := m.Update()
			totalEnergy += energy
			if delta > maxDelta {
				maxDelta = delta
			}
			if detectCollapse(m) {
				return iter, alignerr.MeshCollapse.New("mesh collapsed at iteration %d", iter)
			}
		}
		if maxDelta < maxEpsilon {
			return iter + 1, nil
		}
		window.push(totalEnergy)
		if window.plateaued() {
			return iter + 1, nil
		}
	}
	return iter, alignerr.ConvergenceTimeout.New("mesh relaxation did not converge within %d iterations", maxIterations)
}

// OptimizeMeshes2 is the legacy fixed-iteration variant retained for
// bit-compatible reproduction of older runs: it runs up to iterations
// passes with no plateau check, exiting early once the largest per-vertex
// displacement across all meshes falls under maxEpsilon, or on mesh
// collapse or cancellation.
func OptimizeMeshes2(ctx context.Context, meshes []*SpringMesh, maxEpsilon float64, iterations int) error {
	for i := 0; i < iterations; i++ {
		select {
		case <-ctx.Done():
			return alignerr.Canceled.Wrap(ctx.Err(), "mesh optimization canceled")
		default:
		}
		var maxDelta float64
		for _, m := range meshes {
			delta, _ := m.Update()
			if delta > maxDelta {
				maxDelta = delta
			}
			if detectCollapse(m) {
				return alignerr.MeshCollapse.New("mesh collapsed at iteration %d", i)
			}
		}
		if maxDelta < maxEpsilon {
			return nil
		}
	}
	return nil
}
