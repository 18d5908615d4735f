package tilespec

import (
	"strconv"
	"strings"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/geom"
	"github.com/render-align/elastic-align/internal/model"
)

// LocalCoordinate is one tile's result from WorldToLocal.
type LocalCoordinate struct {
	TileID  string
	Local   geom.Vec2
	Visible bool
}

// WorldToLocal inverts a world coordinate through each tile's transform
// chain, in tileSpecs order (assumed to be render order, the same order
// used by TileCoordinates.getLocalCoordinates in the original renderer).
// A tile whose chain can't be inverted -- an "MLS" descriptor has no
// closed-form inverse, or a model step is singular at this point -- is
// skipped rather than failing the whole lookup. The last tile to invert
// successfully is marked Visible, since in render order it is drawn last
// and so sits "on top of" any earlier overlapping tile. Only when every
// tile's chain is non-invertible at world does this return
// alignerr.NonInvertibleModel.
func WorldToLocal(tileSpecs []*TileSpec, world geom.Vec2) ([]LocalCoordinate, error) {
	var results []LocalCoordinate
	var skipped []string

	for _, ts := range tileSpecs {
		local, err := invertChain(ts.Transforms, world)
		if err != nil {
			skipped = append(skipped, ts.TileID)
			continue
		}
		results = append(results, LocalCoordinate{TileID: ts.TileID, Local: local})
	}

	if len(results) == 0 {
		return nil, alignerr.NonInvertibleModel.New("world coordinate (%v, %v) found in tile id(s) %v cannot be inverted", world.X, world.Y, skipped)
	}
	results[len(results)-1].Visible = true
	return results, nil
}

// invertChain applies each transform's inverse in reverse order, since
// the forward chain is applied first-to-last.
func invertChain(transforms []Transform, world geom.Vec2) (geom.Vec2, error) {
	current := world
	for i := len(transforms) - 1; i >= 0; i-- {
		m, err := decodeTransform(transforms[i])
		if err != nil {
			return geom.Vec2{}, err
		}
		current, err = m.ApplyInverse(current)
		if err != nil {
			return geom.Vec2{}, err
		}
	}
	return current, nil
}

// decodeTransform builds the geom.Model a chain entry represents. An MLS
// descriptor always fails: internal/mls.RestrictedMLS doesn't implement
// geom.Model in the first place, because a weighted local-affine
// interpolant has no closed-form inverse.
func decodeTransform(t Transform) (geom.Model, error) {
	if t.ClassName == "MLS" {
		return nil, alignerr.NonInvertibleModel.New("MLS transform has no closed-form inverse")
	}
	m, err := model.NewByClassName(t.ClassName)
	if err != nil {
		return nil, alignerr.InputParse.Wrap(err, "decoding transform class %q", t.ClassName)
	}
	values, err := parseDataString(t.DataString)
	if err != nil {
		return nil, err
	}
	if err := m.FromArray(values); err != nil {
		return nil, err
	}
	return m, nil
}

func parseDataString(s string) ([]float64, error) {
	fields := strings.Fields(s)
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, alignerr.InputParse.Wrap(err, "parsing transform dataString field %d", i)
		}
		values[i] = v
	}
	return values, nil
}
