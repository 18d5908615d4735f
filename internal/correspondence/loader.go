package correspondence

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/render-align/elastic-align/internal/alignerr"
)

// Fetcher reads the raw bytes of a correspondence or tile-spec file,
// abstracting over internal/storage's backends so this package never
// depends on a concrete transport.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// LayerResolver resolves a tile-spec URL to its layer index, used as the
// readLayerFromFile fallback when a correspondence record references a
// tile-spec URL absent from the caller's url-to-layer map.
type LayerResolver interface {
	LayerForTileSpec(ctx context.Context, url string) (int, error)
}

// resolveLayer looks up url in known first, falling back to reading the
// tile-spec file itself, matching OptimizeLayersElastic.java's
// readLayerFromFile fallback.
func resolveLayer(ctx context.Context, resolver LayerResolver, known map[string]int, url string) (int, error) {
	if layer, ok := known[url]; ok {
		return layer, nil
	}
	layer, err := resolver.LayerForTileSpec(ctx, url)
	if err != nil {
		return 0, alignerr.MissingLayer.Wrap(err, "resolving layer for tile-spec url %q", url)
	}
	return layer, nil
}

// parseOne fetches and parses a single correspondence file into
// layer-resolved specs.
func parseOne(ctx context.Context, fetcher Fetcher, resolver LayerResolver, known map[string]int, fileURL string) ([]*Spec, error) {
	data, err := fetcher.Fetch(ctx, fileURL)
	if err != nil {
		return nil, alignerr.IO.Wrap(err, "reading correspondence file %q", fileURL)
	}
	var raw []*Spec
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, alignerr.InputParse.Wrap(err, "parsing correspondence file %q", fileURL)
	}
	for _, spec := range raw {
		l1, err := resolveLayer(ctx, resolver, known, spec.URL1)
		if err != nil {
			return nil, err
		}
		l2, err := resolveLayer(ctx, resolver, known, spec.URL2)
		if err != nil {
			return nil, err
		}
		spec.Layer1, spec.Layer2 = l1, l2
	}
	return raw, nil
}

// chunks splits n items into count contiguous chunks of length n/count,
// the last chunk absorbing the remainder -- the same partitioning
// parseCorrespondenceFiles and fixAllPointMatchVertices use for their
// thread pools.
func chunks(n, count int) [][2]int {
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}
	if count == 0 {
		return nil
	}
	size := n / count
	out := make([][2]int, 0, count)
	start := 0
	for i := 0; i < count; i++ {
		end := start + size
		if i == count-1 {
			end = n
		}
		out = append(out, [2]int{start, end})
		start = end
	}
	return out
}

// ParseFiles loads every correspondence file in fileURLs concurrently
// (partitioned into `threads` contiguous chunks), resolves each record's
// layer pair, and merges the results into an Index in file order so
// duplicate detection is independent of goroutine completion order.
func ParseFiles(ctx context.Context, fetcher Fetcher, resolver LayerResolver, fileURLs []string, known map[string]int, threads int) (Index, error) {
	ranges := chunks(len(fileURLs), threads)
	results := make([][]*Spec, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			var chunkSpecs []*Spec
			for _, url := range fileURLs[r[0]:r[1]] {
				specs, err := parseOne(gctx, fetcher, resolver, known, url)
				if err != nil {
					return err
				}
				chunkSpecs = append(chunkSpecs, specs...)
			}
			results[i] = chunkSpecs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := make(Index)
	for _, chunkSpecs := range results {
		for _, spec := range chunkSpecs {
			if err := idx.insert(spec); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}
