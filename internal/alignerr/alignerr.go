// Package alignerr defines the typed error kinds the aligner can raise and
// the recovery/propagation policy attached to each of them.
package alignerr

import "github.com/joomcode/errorx"

// Namespace roots every error kind the aligner produces.
var Namespace = errorx.NewNamespace("align")

// fatalTrait marks error kinds that must abort the whole run rather than be
// recovered at the call site.
var fatalTrait = errorx.RegisterTrait("fatal")

var (
	// InputParse covers malformed tile-spec or correspondence JSON. Loading
	// stops at the first file or record that fails to parse; later failures
	// are not collected.
	InputParse = Namespace.NewType("input_parse")

	// MissingLayer is raised when a correspondence URL cannot be resolved to a
	// layer id, even after falling back to reading the referenced tile-spec file.
	MissingLayer = Namespace.NewType("missing_layer")

	// DuplicateCorrespondence is raised when the same (layerA, layerB) pair is
	// indexed twice.
	DuplicateCorrespondence = Namespace.NewType("duplicate_correspondence", fatalTrait)

	// NotEnoughDataPoints is raised by a model fit that received fewer points
	// than its minimum, and by the tile solver and MLS construction when too
	// few matches or controls remain. Callers propagate it and the run aborts.
	NotEnoughDataPoints = Namespace.NewType("not_enough_data_points")

	// NonInvertibleModel is raised by ApplyInverse on a singular model.
	// Recoverable at the call site that tries multiple candidate tiles.
	NonInvertibleModel = Namespace.NewType("non_invertible_model")

	// MeshCollapse is raised when a mesh triangle degenerates during relaxation.
	// Always fatal.
	MeshCollapse = Namespace.NewType("mesh_collapse", fatalTrait)

	// ConvergenceTimeout is raised when an optimizer hits its iteration cap
	// without meeting its epsilon or plateau criteria.
	ConvergenceTimeout = Namespace.NewType("convergence_timeout")

	// Canceled is returned when a cooperative cancel flag was observed between
	// optimizer iterations.
	Canceled = Namespace.NewType("canceled")

	// IO covers file/storage read and write failures.
	IO = Namespace.NewType("io")
)

// IsFatal reports whether err carries the fatal trait
// (DuplicateCorrespondence, MeshCollapse).
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errorx.HasTrait(err, fatalTrait)
}

// ExitCode maps an error to the process exit codes of the CLI surface:
// 0 success, 1 input-parse error, 2 convergence failure, 3 I/O error.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errorx.IsOfType(err, InputParse), errorx.IsOfType(err, MissingLayer), errorx.IsOfType(err, DuplicateCorrespondence):
		return 1
	case errorx.IsOfType(err, ConvergenceTimeout), errorx.IsOfType(err, MeshCollapse), errorx.IsOfType(err, NotEnoughDataPoints):
		return 2
	case errorx.IsOfType(err, IO):
		return 3
	default:
		return 1
	}
}
