package tileconfig

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/utils/pairwise"
)

const plateauTolerance = 1e-4

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

// minTileMatches is the least number of neighbor matches a non-fixed tile
// must carry to be refit, independent of its model's own algebraic
// minimum: a model with a looser MinPoints() still needs this much
// overdetermination for the tile-configuration solver's fit to be
// meaningful.
const minTileMatches = 3

// Optimize refits every unfixed tile's model against its neighbors' current
// world-space estimate, iterating until either the worst per-tile error
// falls under maxEpsilon or the tile set's mean error plateaus, whichever
// comes first, with a hard cap at maxIterations. Per-tile refits within an
// iteration run concurrently, but the convergence signal is reduced with
// pairwise.Mean over a fixed, tile-index-ordered slice so the result never
// depends on goroutine completion order. A non-fixed tile left with fewer
// than minTileMatches neighbor matches fails with
// alignerr.NotEnoughDataPoints rather than being silently skipped.
func Optimize(ctx context.Context, tiles []*Tile, maxEpsilon float64, maxIterations, maxPlateauWidth int) (int, error) {
	window := newPlateauWindow(maxPlateauWidth)
	iter := 0
	for ; iter < maxIterations; iter++ {
		select {
		case <-ctx.Done():
			return iter, alignerr.Canceled.Wrap(ctx.Err(), "tile configuration optimization canceled")
		default:
		}

		g, _ := errgroup.WithContext(ctx)
		for _, t := range tiles {
			t := t
			if t.fixed {
				continue
			}
			g.Go(func() error {
				matches := t.neighborMatches()
				if len(matches) < minTileMatches {
					return alignerr.NotEnoughDataPoints.New("tile %s has %d neighbor matches, need at least %d", t.ID, len(matches), minTileMatches)
				}
				if err := t.Model.Fit(matches); err != nil {
					return alignerr.NotEnoughDataPoints.Wrap(err, "tile %s failed to fit", t.ID)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return iter, err
		}

		costs := make([]float64, len(tiles))
		var maxCost float64
		for i, t := range tiles {
			costs[i] = t.cost()
			if costs[i] > maxCost {
				maxCost = costs[i]
			}
		}
		if maxCost < maxEpsilon {
			return iter + 1, nil
		}
		mean := pairwise.Mean(costs)
		window.push(mean)
		if window.plateaued() {
			return iter + 1, nil
		}
	}
	return iter, alignerr.ConvergenceTimeout.New("tile configuration did not converge within %d iterations", maxIterations)
}
