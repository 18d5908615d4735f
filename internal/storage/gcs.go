package storage

import (
	"context"
	"io"

	gcs "cloud.google.com/go/storage"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/storage/uri"
)

// GCSStrategy backs gs:// locations with cloud.google.com/go/storage.
type GCSStrategy struct {
	client *gcs.Client
}

// NewGCSStrategy builds a strategy from an already-authenticated client,
// mirroring geocube's own interface/storage/gcs backend construction.
func NewGCSStrategy(client *gcs.Client) *GCSStrategy {
	return &GCSStrategy{client: client}
}

func (g *GCSStrategy) ReadFile(ctx context.Context, u uri.URI) ([]byte, error) {
	r, err := g.client.Bucket(u.Bucket).Object(u.Path).NewReader(ctx)
	if err != nil {
		return nil, alignerr.IO.Wrap(err, "opening gs://%s/%s", u.Bucket, u.Path)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, alignerr.IO.Wrap(err, "reading gs://%s/%s", u.Bucket, u.Path)
	}
	return data, nil
}

func (g *GCSStrategy) WriteFile(ctx context.Context, u uri.URI, data []byte) error {
	w := g.client.Bucket(u.Bucket).Object(u.Path).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return alignerr.IO.Wrap(err, "writing gs://%s/%s", u.Bucket, u.Path)
	}
	if err := w.Close(); err != nil {
		return alignerr.IO.Wrap(err, "closing gs://%s/%s", u.Bucket, u.Path)
	}
	return nil
}

func (g *GCSStrategy) Exists(ctx context.Context, u uri.URI) (bool, error) {
	_, err := g.client.Bucket(u.Bucket).Object(u.Path).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if err == gcs.ErrObjectNotExist {
		return false, nil
	}
	return false, alignerr.IO.Wrap(err, "statting gs://%s/%s", u.Bucket, u.Path)
}
