// Command aligner runs the elastic multi-layer alignment engine over a set
// of tile-spec and correspondence files, emitting per-layer tile-spec
// files carrying an appended restricted moving-least-squares transform.
package main

import (
	"context"
	"math"
	"os"
	"os/signal"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/render-align/elastic-align/internal/align"
	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/correspondence"
	"github.com/render-align/elastic-align/internal/geom"
	"github.com/render-align/elastic-align/internal/log"
	"github.com/render-align/elastic-align/internal/storage"
	"github.com/render-align/elastic-align/internal/storage/uri"
	"github.com/render-align/elastic-align/internal/tilespec"
)

func main() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	ctx, cancel := context.WithCancel(context.Background())
	ctx = log.With(ctx, "run_id", uuid.New().String())
	runerr := make(chan error, 1)

	go func() { runerr <- run(ctx) }()

	var err error
	select {
	case err = <-runerr:
	case <-quit:
		cancel()
		err = <-runerr
	}

	if err != nil {
		log.Logger(ctx).Error("exit on error", zap.Error(err))
	} else {
		log.Logger(ctx).Info("exiting")
	}
	os.Exit(alignerr.ExitCode(err))
}

func run(ctx context.Context) error {
	cfg, err := newAlignerAppConfig()
	if err != nil {
		return err
	}

	store := storage.New()
	if err := registerBackends(ctx, store, cfg.CorrFiles, cfg.TilespecFiles, cfg.TargetDir); err != nil {
		return err
	}
	reader := tilespec.NewReader(store)

	files, known, layerMin, layerMax, origin, err := loadTileSpecs(ctx, reader, cfg.TilespecFiles)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return alignerr.InputParse.New("no tile-spec files produced any tiles")
	}

	fromLayer, toLayer := cfg.FromLayer, cfg.ToLayer
	if fromLayer < 0 {
		fromLayer = layerMin
	}
	if toLayer < 0 {
		toLayer = layerMax
	}

	fixedLayers := make(map[int]bool, len(cfg.FixedLayers))
	for _, l := range cfg.FixedLayers {
		if l < fromLayer || l > toLayer {
			continue
		}
		fixedLayers[l] = true
	}
	if len(fixedLayers) == 0 {
		fixedLayers[fromLayer] = true
	}

	corrs, err := correspondence.ParseFiles(ctx, store, store, cfg.CorrFiles, known, cfg.Threads)
	if err != nil {
		return err
	}

	params := align.Params{
		ModelIndex:                cfg.ModelIndex,
		LayerScale:                cfg.LayerScale,
		ResolutionSpringMesh:      cfg.ResolutionSpringMesh,
		StiffnessSpringMesh:       cfg.StiffnessSpringMesh,
		DampSpringMesh:            cfg.DampSpringMesh,
		MaxStretchSpringMesh:      cfg.MaxStretchSpringMesh,
		MaxEpsilon:                cfg.MaxEpsilon,
		MaxIterationsSpringMesh:   cfg.MaxIterationsSpringMesh,
		MaxPlateauwidthSpringMesh: cfg.MaxPlateauwidthSpringMesh,
		MaxLayersDistance:         cfg.MaxLayersDistance,
		UseLegacyOptimizer:        cfg.UseLegacyOptimizer,
		Threads:                   cfg.Threads,
		FromLayer:                 fromLayer,
		ToLayer:                   toLayer,
		SkipLayers:                cfg.SkipLayers,
		FixedLayers:               fixedLayers,
		ImageWidth:                cfg.ImageWidth,
		ImageHeight:               cfg.ImageHeight,
		SceneOrigin:               origin,
	}

	result, err := align.New(params, files, corrs).Run(ctx)
	if err != nil {
		return err
	}

	for _, f := range result.Files {
		if err := reader.WriteLayer(ctx, cfg.TargetDir, f.Location, f.Tiles); err != nil {
			return err
		}
	}

	log.Logger(ctx).Info("alignment finished",
		zap.Int("layersWritten", len(result.Files)),
		zap.Int("tileConfigIterations", result.TileConfigIterations),
		zap.Int("meshIterations", result.MeshIterations),
		zap.Int("droppedMatches", result.DroppedMatches),
	)
	return nil
}

// registerBackends inspects every location the run will touch and lazily
// constructs a cloud client, and registers a backend, for each non-local
// scheme actually in use, so a purely local run never needs credentials.
func registerBackends(ctx context.Context, store *storage.Store, lists ...interface{}) error {
	schemes := map[string]bool{}
	for _, l := range lists {
		switch v := l.(type) {
		case string:
			addScheme(schemes, v)
		case []string:
			for _, loc := range v {
				addScheme(schemes, loc)
			}
		}
	}

	if schemes["gs"] {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return alignerr.IO.Wrap(err, "building GCS client")
		}
		store.Register("gs", storage.NewGCSStrategy(client))
	}
	if schemes["s3"] {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return alignerr.IO.Wrap(err, "loading AWS config")
		}
		store.Register("s3", storage.NewS3Strategy(s3.NewFromConfig(awsCfg)))
	}
	return nil
}

func addScheme(schemes map[string]bool, raw string) {
	u, err := uri.Parse(raw)
	if err != nil || u.Local() {
		return
	}
	schemes[u.Scheme] = true
}

// loadTileSpecs reads every tile-spec file, groups its tiles under the
// layer its first tile declares, and derives the URL-to-layer map the
// correspondence loader needs, the run's default layer range (the lowest
// and highest of those per-file layers) and the scene origin (the minimum
// corner of the union bounding box of every tile read).
func loadTileSpecs(ctx context.Context, reader *tilespec.Reader, locations []string) ([]*align.LayerFile, map[string]int, int, int, geom.Vec2, error) {
	files := make([]*align.LayerFile, 0, len(locations))
	known := make(map[string]int, len(locations))
	minX, minY := math.Inf(1), math.Inf(1)
	layerMin, layerMax := 0, 0
	first := true

	for _, loc := range locations {
		tiles, err := reader.Read(ctx, loc)
		if err != nil {
			return nil, nil, 0, 0, geom.Vec2{}, err
		}
		if len(tiles) == 0 {
			continue
		}
		layer := tiles[0].Layer
		known[loc] = layer
		files = append(files, &align.LayerFile{Layer: layer, Location: loc, Tiles: tiles})

		for _, t := range tiles {
			if t.BBox[0] < minX {
				minX = t.BBox[0]
			}
			if t.BBox[1] < minY {
				minY = t.BBox[1]
			}
		}
		if first || layer < layerMin {
			layerMin = layer
		}
		if first || layer > layerMax {
			layerMax = layer
		}
		first = false
	}

	origin := geom.Vec2{}
	if !math.IsInf(minX, 1) {
		origin = geom.Vec2{X: minX, Y: minY}
	}
	return files, known, layerMin, layerMax, origin, nil
}
