// Package tilespec defines the external JSON tile-spec format and the
// storage-backed helpers that read and write it, giving the "tile-spec
// files (external)" collaborator named in the alignment engine's design a
// concrete, swappable transport via internal/storage.
package tilespec

import "github.com/render-align/elastic-align/internal/alignerr"

// Transform is one entry in a tile's transform chain: a class name
// identifying the transform kind and a compact serialized parameter
// string, following the tile-spec wire format's transforms array.
type Transform struct {
	ClassName  string `json:"className"`
	DataString string `json:"dataString"`
}

// TileSpec is one tile-spec record.
type TileSpec struct {
	TileID       string      `json:"tileId"`
	Layer        int         `json:"layer"`
	BBox         [4]float64  `json:"bbox"`
	Transforms   []Transform `json:"transforms"`
	MipmapLevels []int       `json:"mipmapLevels,omitempty"`
	Width        int         `json:"width"`
	Height       int         `json:"height"`
	Z            *float64    `json:"z,omitempty"`
}

// Validate reports the missing-layer hard error for tiles whose layer
// field is unset (-1), the only structural requirement the wire format
// imposes.
func (t *TileSpec) Validate() error {
	if t.Layer == -1 {
		return alignerr.MissingLayer.New("tile %q has no layer assigned", t.TileID)
	}
	return nil
}

// AppendTransform appends a new transform to the tile's chain without
// disturbing the existing entries, so the emitted MLS descriptor is
// always the last of the chain -- composition by append, not fold.
func (t *TileSpec) AppendTransform(className, dataString string) {
	t.Transforms = append(t.Transforms, Transform{ClassName: className, DataString: dataString})
}
