package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestLocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New()
	loc := filepath.Join(dir, "sub", "tile.json")

	if err := s.Write(context.Background(), loc, []byte(`{"hello":"world"}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err := s.Exists(context.Background(), loc)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	data, err := s.Fetch(context.Background(), loc)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != `{"hello":"world"}` {
		t.Errorf("Fetch = %q", data)
	}
}

func TestUnregisteredSchemeErrors(t *testing.T) {
	s := New()
	if _, err := s.Fetch(context.Background(), "gs://bucket/path.json"); err == nil {
		t.Fatal("expected error for unregistered scheme")
	}
}

func TestLayerForTileSpec(t *testing.T) {
	dir := t.TempDir()
	s := New()
	loc := filepath.Join(dir, "tiles.json")
	if err := s.Write(context.Background(), loc, []byte(`[{"tileId":"a","layer":7}]`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	layer, err := s.LayerForTileSpec(context.Background(), loc)
	if err != nil {
		t.Fatalf("LayerForTileSpec: %v", err)
	}
	if layer != 7 {
		t.Errorf("layer = %d, want 7", layer)
	}
}

func TestBase(t *testing.T) {
	b, err := Base("gs://bucket/path/to/file.json")
	if err != nil {
		t.Fatalf("Base: %v", err)
	}
	if b != "file.json" {
		t.Errorf("Base = %q, want file.json", b)
	}
}
