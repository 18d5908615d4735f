package tilespec

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/storage"
)

// Reader resolves and decodes tile-spec files, and writes aligned output
// back preserving the input file's basename.
type Reader struct {
	Store *storage.Store
}

// NewReader wraps a storage.Store.
func NewReader(store *storage.Store) *Reader {
	return &Reader{Store: store}
}

// Read fetches and validates every tile in the tile-spec file at
// location.
func (r *Reader) Read(ctx context.Context, location string) ([]*TileSpec, error) {
	data, err := r.Store.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	var tiles []*TileSpec
	if err := json.Unmarshal(data, &tiles); err != nil {
		return nil, alignerr.InputParse.Wrap(err, "parsing tile-spec file %q", location)
	}
	for _, t := range tiles {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return tiles, nil
}

// WriteLayer serializes tiles and writes them under targetDir, using the
// basename of sourceLocation as the output filename -- the same
// filename-preservation behavior as the original alignment tool's output
// step.
func (r *Reader) WriteLayer(ctx context.Context, targetDir, sourceLocation string, tiles []*TileSpec) error {
	base, err := storage.Base(sourceLocation)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(tiles, "", "  ")
	if err != nil {
		return alignerr.IO.Wrap(err, "serializing tile-spec output for %q", sourceLocation)
	}
	out := filepath.Join(targetDir, base)
	return r.Store.Write(ctx, out, data)
}
