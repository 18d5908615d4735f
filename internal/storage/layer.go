package storage

import (
	"context"
	"encoding/json"

	"github.com/render-align/elastic-align/internal/alignerr"
)

// LayerForTileSpec implements internal/correspondence.LayerResolver: it
// opens the tile-spec file at location and returns its first tile's layer
// field, the readLayerFromFile fallback used when a correspondence
// record's URL is missing from the caller's known url-to-layer map. Only
// the "layer" field is decoded here to avoid a dependency on the full
// tile-spec schema, which lives in internal/tilespec.
func (s *Store) LayerForTileSpec(ctx context.Context, location string) (int, error) {
	data, err := s.Fetch(ctx, location)
	if err != nil {
		return 0, err
	}
	var tiles []struct {
		Layer int `json:"layer"`
	}
	if err := json.Unmarshal(data, &tiles); err != nil {
		return 0, alignerr.InputParse.Wrap(err, "parsing tile-spec file %q for its layer field", location)
	}
	if len(tiles) == 0 {
		return 0, alignerr.MissingLayer.New("tile-spec file %q has no tiles", location)
	}
	return tiles[0].Layer, nil
}
