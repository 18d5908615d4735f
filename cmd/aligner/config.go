package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/render-align/elastic-align/internal/rangeexpr"
)

func numCPU() int { return runtime.NumCPU() }

// stringListSet is a set of unique strings that also implements flag.Value,
// so repeatable string-list flags can be declared with a single
// flag.Var call, generalizing the teacher's utils.StringSet from a
// build-up-in-code collection to a flag-parsed one.
type stringListSet struct {
	values []string
	seen   map[string]struct{}
}

func newStringListSet() *stringListSet {
	return &stringListSet{seen: make(map[string]struct{})}
}

// String implements flag.Value.
func (s *stringListSet) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(s.values, ",")
}

// Set implements flag.Value: each flag occurrence may itself carry a
// space-separated list, so --corrFiles can be repeated or given once with
// several values.
func (s *stringListSet) Set(raw string) error {
	for _, v := range strings.Fields(raw) {
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.values = append(s.values, v)
	}
	return nil
}

// expandListFlag resolves a repeatable string-list flag's values: if
// exactly one value was given and it names an existing file, the file is
// read as a newline-delimited list and used instead, letting callers pass
// either an inline list or a list file interchangeably.
func expandListFlag(values []string) ([]string, error) {
	if len(values) != 1 {
		return values, nil
	}
	info, err := os.Stat(values[0])
	if err != nil || info.IsDir() {
		return values, nil
	}
	data, err := os.ReadFile(values[0])
	if err != nil {
		return nil, fmt.Errorf("reading list file %q: %w", values[0], err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

// intListSet parses a repeatable int-list flag (e.g. --fixedLayers 0 3 5),
// space-separated within one occurrence and mergeable across occurrences.
type intListSet struct {
	values []int
}

func (s *intListSet) String() string {
	if s == nil {
		return ""
	}
	strs := make([]string, len(s.values))
	for i, v := range s.values {
		strs[i] = strconv.Itoa(v)
	}
	return strings.Join(strs, ",")
}

func (s *intListSet) Set(raw string) error {
	for _, v := range strings.Fields(raw) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing int list value %q: %w", v, err)
		}
		s.values = append(s.values, n)
	}
	return nil
}

// alignerConfig holds every flag the aligner CLI accepts, following
// geocube's cmd/consolidater "flag.*Var into a config struct, validate
// after flag.Parse" convention.
type alignerConfig struct {
	CorrFiles      []string
	TilespecFiles  []string
	FixedLayers    []int
	ImageWidth     float64
	ImageHeight    float64
	TargetDir      string

	ModelIndex                int
	LayerScale                float64
	ResolutionSpringMesh      int
	StiffnessSpringMesh       float64
	DampSpringMesh            float64
	MaxStretchSpringMesh      float64
	MaxEpsilon                float64
	MaxIterationsSpringMesh   int
	MaxPlateauwidthSpringMesh int
	MaxLayersDistance         int
	UseLegacyOptimizer        bool
	Threads                   int
	FromLayer                 int
	ToLayer                   int
	SkipLayers                rangeexpr.Set
}

func newAlignerAppConfig() (*alignerConfig, error) {
	cfg := alignerConfig{}

	corrFiles := newStringListSet()
	tilespecFiles := newStringListSet()
	fixedLayers := &intListSet{}

	flag.Var(corrFiles, "corrFiles", "correspondence files (space-separated list, repeatable, or a single list file)")
	flag.Var(tilespecFiles, "tilespecFiles", "tile-spec files (space-separated list, repeatable, or a single list file)")
	flag.Var(fixedLayers, "fixedLayers", "layer indices to hold fixed during solve (space-separated, repeatable)")
	flag.Float64Var(&cfg.ImageWidth, "imageWidth", 0, "full-resolution image width in pixels")
	flag.Float64Var(&cfg.ImageHeight, "imageHeight", 0, "full-resolution image height in pixels")
	flag.StringVar(&cfg.TargetDir, "targetDir", "", "output directory for aligned tile-spec files")

	flag.IntVar(&cfg.ModelIndex, "modelIndex", 1, "coordinate model: 0=translation 1=rigid 2=similarity 3=affine 4=homography")
	flag.Float64Var(&cfg.LayerScale, "layerScale", 0.1, "downsampling factor at which mesh geometry is solved")
	flag.IntVar(&cfg.ResolutionSpringMesh, "resolutionSpringMesh", 32, "spring mesh lattice resolution (columns per row)")
	flag.Float64Var(&cfg.StiffnessSpringMesh, "stiffnessSpringMesh", 0.1, "intra-mesh spring stiffness")
	flag.Float64Var(&cfg.DampSpringMesh, "dampSpringMesh", 0.9, "force integration damping factor")
	flag.Float64Var(&cfg.MaxStretchSpringMesh, "maxStretchSpringMesh", 2000, "maximum spring stretch before force clamps")
	flag.Float64Var(&cfg.MaxEpsilon, "maxEpsilon", 200, "target maximum per-tile transfer error")
	flag.IntVar(&cfg.MaxIterationsSpringMesh, "maxIterationsSpringMesh", 1000, "hard cap on solver iterations")
	flag.IntVar(&cfg.MaxPlateauwidthSpringMesh, "maxPlateauwidthSpringMesh", 200, "plateau window width for convergence detection")
	flag.IntVar(&cfg.MaxLayersDistance, "maxLayersDistance", 1, "farthest layer distance a correspondence may wire springs across")
	flag.BoolVar(&cfg.UseLegacyOptimizer, "useLegacyOptimizer", false, "use the fixed-iteration legacy mesh optimizer instead of plateau detection")
	flag.IntVar(&cfg.Threads, "threads", 0, "worker pool size (0 = host CPU count)")
	flag.IntVar(&cfg.FromLayer, "fromLayer", -1, "first layer to process (default: lowest layer present)")
	flag.IntVar(&cfg.ToLayer, "toLayer", -1, "last layer to process (default: highest layer present)")
	skipLayersExpr := flag.String("skipLayers", "", "range expression of layers to exclude (e.g. 3,5-7,12)")

	flag.Parse()

	var err error
	if cfg.CorrFiles, err = expandListFlag(corrFiles.values); err != nil {
		return nil, err
	}
	if cfg.TilespecFiles, err = expandListFlag(tilespecFiles.values); err != nil {
		return nil, err
	}
	cfg.FixedLayers = fixedLayers.values

	if cfg.SkipLayers, err = rangeexpr.Parse(*skipLayersExpr); err != nil {
		return nil, err
	}

	if len(cfg.CorrFiles) == 0 {
		return nil, fmt.Errorf("missing --corrFiles")
	}
	if len(cfg.TilespecFiles) == 0 {
		return nil, fmt.Errorf("missing --tilespecFiles")
	}
	if cfg.ImageWidth <= 0 || cfg.ImageHeight <= 0 {
		return nil, fmt.Errorf("missing or invalid --imageWidth/--imageHeight")
	}
	if cfg.TargetDir == "" {
		return nil, fmt.Errorf("missing --targetDir")
	}
	if cfg.ModelIndex < 0 || cfg.ModelIndex > 4 {
		return nil, fmt.Errorf("--modelIndex must be in {0..4}, got %d", cfg.ModelIndex)
	}
	if cfg.Threads <= 0 {
		cfg.Threads = numCPU()
	}

	return &cfg, nil
}
