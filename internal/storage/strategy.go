// Package storage provides the URI-addressed multi-backend file access
// used to read tile-spec and correspondence files and write aligned
// tile-spec output, grounded on geocube's interface/storage Strategy
// pattern: one small interface, one implementation per backend, selected
// by the URI's scheme.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/storage/uri"
)

// Strategy is the per-backend file access contract. Every backend used by
// Store implements it.
type Strategy interface {
	ReadFile(ctx context.Context, u uri.URI) ([]byte, error)
	WriteFile(ctx context.Context, u uri.URI, data []byte) error
	Exists(ctx context.Context, u uri.URI) (bool, error)
}

// localStrategy reads and writes the local filesystem, addressed by
// URI.Path (URI.Bucket is unused for local files).
type localStrategy struct{}

func (localStrategy) ReadFile(_ context.Context, u uri.URI) ([]byte, error) {
	data, err := os.ReadFile(u.Path)
	if err != nil {
		return nil, alignerr.IO.Wrap(err, "reading local file %q", u.Path)
	}
	return data, nil
}

func (localStrategy) WriteFile(_ context.Context, u uri.URI, data []byte) error {
	if dir := filepath.Dir(u.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return alignerr.IO.Wrap(err, "creating directory %q", dir)
		}
	}
	if err := os.WriteFile(u.Path, data, 0o644); err != nil {
		return alignerr.IO.Wrap(err, "writing local file %q", u.Path)
	}
	return nil
}

func (localStrategy) Exists(_ context.Context, u uri.URI) (bool, error) {
	_, err := os.Stat(u.Path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, alignerr.IO.Wrap(err, "statting local file %q", u.Path)
}

// Store dispatches file access to the Strategy registered for a URI's
// scheme, so callers never need to know which backend a given
// --corrFiles/--tilespecFiles/--targetDir value resolves to.
type Store struct {
	strategies map[string]Strategy
}

// New returns a Store with the local filesystem always registered under
// "" and "file". Additional backends are added with Register.
func New() *Store {
	s := &Store{strategies: map[string]Strategy{}}
	local := localStrategy{}
	s.strategies[""] = local
	s.strategies["file"] = local
	return s
}

// Register installs a backend for the given URI scheme (e.g. "gs", "s3").
func (s *Store) Register(scheme string, strategy Strategy) {
	s.strategies[scheme] = strategy
}

func (s *Store) resolve(raw string) (uri.URI, Strategy, error) {
	u, err := uri.Parse(raw)
	if err != nil {
		return uri.URI{}, nil, alignerr.InputParse.Wrap(err, "parsing location %q", raw)
	}
	strat, ok := s.strategies[u.Scheme]
	if !ok {
		return uri.URI{}, nil, alignerr.InputParse.New("no storage backend registered for scheme %q in %q", u.Scheme, raw)
	}
	return u, strat, nil
}

// Fetch implements internal/correspondence.Fetcher.
func (s *Store) Fetch(ctx context.Context, location string) ([]byte, error) {
	u, strat, err := s.resolve(location)
	if err != nil {
		return nil, err
	}
	return strat.ReadFile(ctx, u)
}

// Write resolves location and writes data through the matching backend,
// creating parent directories for local paths as needed.
func (s *Store) Write(ctx context.Context, location string, data []byte) error {
	u, strat, err := s.resolve(location)
	if err != nil {
		return err
	}
	return strat.WriteFile(ctx, u, data)
}

// Exists reports whether location is present in its backend.
func (s *Store) Exists(ctx context.Context, location string) (bool, error) {
	u, strat, err := s.resolve(location)
	if err != nil {
		return false, err
	}
	return strat.Exists(ctx, u)
}

// Base returns the location's final path element, used to preserve an
// input tile-spec file's basename when writing aligned output.
func Base(location string) (string, error) {
	u, err := uri.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parsing location %q: %w", location, err)
	}
	return u.Base(), nil
}
