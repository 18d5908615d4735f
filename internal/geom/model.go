package geom

// Model is the common contract for every parametric 2D coordinate transform:
// translation, rigid, similarity, affine and homography. Implementations
// live in internal/model; the interface is declared here so that packages
// which only need to apply/fit a model (mesh, tileconfig, mls) do not import
// the concrete model implementations.
type Model interface {
	// Apply returns the world coordinate for a local coordinate l.
	Apply(l Vec2) Vec2

	// ApplyInverse returns the local coordinate for a world coordinate w.
	// It returns alignerr.NonInvertibleModel when the model is singular.
	ApplyInverse(w Vec2) (Vec2, error)

	// Fit performs weighted least-squares estimation of the model's
	// parameters from matches. It returns alignerr.NotEnoughDataPoints when
	// fewer than MinPoints matches are usable.
	Fit(matches []PointMatch) error

	// MinPoints is the fewest point matches Fit can work from.
	MinPoints() int

	// ToArray returns the canonical flat parameter vector.
	ToArray() []float64

	// FromArray restores parameters from a canonical flat vector.
	FromArray(a []float64) error

	// Cost returns the mean transfer error (mean |Apply(p1.L) - p2.W|) over matches.
	Cost(matches []PointMatch) float64

	// Class names the model for wire-format discrimination.
	Class() string

	// Clone returns an independent copy carrying the same parameters.
	Clone() Model
}

// Composable is implemented by the affine-closed family (translation,
// rigid, similarity, affine) which can be chained algebraically.
type Composable interface {
	Model
	// Compose returns a model equivalent to applying this model, then other.
	Compose(other Model) (Model, error)
	// Preconcatenate returns a model equivalent to applying other, then this model.
	Preconcatenate(other Model) (Model, error)
}
