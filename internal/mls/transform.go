// Package mls implements the restricted moving-least-squares transform
// emitted for each tile at the end of alignment: a weighted local-affine
// interpolation over a control-point set, restricted to the points near a
// tile's bounding box.
package mls

import (
	"math"
	"sort"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/geom"
	"github.com/render-align/elastic-align/internal/model"
)

// Control is one moving-least-squares control point: a local coordinate,
// its current world-space estimate, and a fit weight.
type Control struct {
	L, W   geom.Vec2
	Weight float64
}

// BBox is a world-space axis-aligned bounding box [minX, minY, maxX, maxY].
type BBox [4]float64

func (b BBox) inflate(r float64) BBox {
	return BBox{b[0] - r, b[1] - r, b[2] + r, b[3] + r}
}

func (b BBox) contains(p geom.Vec2) bool {
	return p.X >= b[0] && p.X <= b[2] && p.Y >= b[1] && p.Y <= b[3]
}

// RestrictedMLS is a weighted local-affine interpolant restricted to
// control points near a tile's bounding box.
type RestrictedMLS struct {
	Alpha    float64
	Radius   float64
	BBox     BBox
	Controls []Control

	// fallback holds a plain affine fit over the full control set when no
	// control survives restriction; Apply uses it directly instead of the
	// weighted scheme.
	fallback *model.Affine
}

const defaultAlpha = 2.0

// medianNNDistance returns the median nearest-neighbor distance among the
// controls' local coordinates, used as the basis for the default
// restriction radius.
func medianNNDistance(controls []Control) float64 {
	n := len(controls)
	if n < 2 {
		return 0
	}
	nearest := make([]float64, n)
	for i := range controls {
		best := math.Inf(1)
		for j := range controls {
			if i == j {
				continue
			}
			if d := controls[i].L.Dist(controls[j].L); d < best {
				best = d
			}
		}
		nearest[i] = best
	}
	sort.Float64s(nearest)
	mid := n / 2
	if n%2 == 1 {
		return nearest[mid]
	}
	return (nearest[mid-1] + nearest[mid]) / 2
}

// New builds a restricted MLS transform for a tile: controls are filtered
// to those within tileBBox inflated by default_radius = 2 * median
// nearest-neighbor distance, then used directly for weighted evaluation
// when at least 3 survive. When none survive, a single plain affine is fitted
// over the full control set instead; when 1 or 2 survive, New returns
// NotEnoughDataPoints.
func New(controls []Control, tileBBox BBox) (*RestrictedMLS, error) {
	radius := 2 * medianNNDistance(controls)
	inflated := tileBBox.inflate(radius)

	var restricted []Control
	for _, c := range controls {
		if inflated.contains(c.L) {
			restricted = append(restricted, c)
		}
	}

	t := &RestrictedMLS{Alpha: defaultAlpha, Radius: radius, BBox: tileBBox, Controls: restricted}
	if len(restricted) >= 3 {
		return t, nil
	}

	pool := restricted
	if len(pool) == 0 {
		pool = controls
	}
	if len(pool) < model.NewAffine().MinPoints() {
		return nil, alignerr.NotEnoughDataPoints.New("mls transform has %d controls, need at least 3", len(pool))
	}
	affine := model.NewAffine()
	if err := affine.Fit(controlsToMatches(pool)); err != nil {
		return nil, err
	}
	t.fallback = affine
	return t, nil
}

func controlsToMatches(controls []Control) []geom.PointMatch {
	out := make([]geom.PointMatch, len(controls))
	for i, c := range controls {
		out[i] = geom.PointMatch{
			P1:     geom.NewPoint(c.L),
			P2:     &geom.Point{L: c.W, W: c.W},
			Weight: c.Weight,
		}
	}
	return out
}

// Apply evaluates the transform at x: it fits a local affine from the
// controls weighted by inverse-square distance (or a higher power, per
// Alpha) and applies it, unless the transform degenerated to a plain
// affine fallback during construction.
func (t *RestrictedMLS) Apply(x geom.Vec2) (geom.Vec2, error) {
	if t.fallback != nil {
		return t.fallback.Apply(x), nil
	}

	matches := make([]geom.PointMatch, len(t.Controls))
	for i, c := range t.Controls {
		if c.L == x {
			return c.W, nil
		}
		d := x.Dist(c.L)
		w := c.Weight / math.Pow(d, 2*t.Alpha)
		matches[i] = geom.PointMatch{
			P1:     geom.NewPoint(c.L),
			P2:     &geom.Point{L: c.W, W: c.W},
			Weight: w,
		}
	}

	local := model.NewAffine()
	if err := local.Fit(matches); err != nil {
		return geom.Vec2{}, err
	}
	return local.Apply(x), nil
}
