package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/storage/uri"
)

// S3Strategy backs s3:// locations with aws-sdk-go-v2.
type S3Strategy struct {
	client *s3.Client
}

// NewS3Strategy builds a strategy from an already-configured client,
// mirroring the AWS SDK v2 client construction pattern used across the
// teacher pack's S3-backed consolidation tooling.
func NewS3Strategy(client *s3.Client) *S3Strategy {
	return &S3Strategy{client: client}
}

func (s *S3Strategy) ReadFile(ctx context.Context, u uri.URI) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &u.Bucket, Key: &u.Path})
	if err != nil {
		return nil, alignerr.IO.Wrap(err, "reading s3://%s/%s", u.Bucket, u.Path)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, alignerr.IO.Wrap(err, "reading s3://%s/%s", u.Bucket, u.Path)
	}
	return data, nil
}

func (s *S3Strategy) WriteFile(ctx context.Context, u uri.URI, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &u.Bucket,
		Key:    &u.Path,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return alignerr.IO.Wrap(err, "writing s3://%s/%s", u.Bucket, u.Path)
	}
	return nil
}

func (s *S3Strategy) Exists(ctx context.Context, u uri.URI) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &u.Bucket, Key: &u.Path})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, alignerr.IO.Wrap(err, "statting s3://%s/%s", u.Bucket, u.Path)
}
