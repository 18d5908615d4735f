// Package model implements the closed family of 2D coordinate-transform
// models used by the elastic aligner: translation, rigid, similarity,
// affine and homography. Each model fits its parameters from weighted point
// matches by least squares, following the pattern gonum.org/v1/gonum/mat's
// QR solver is put to in the teacher pack (cm68-traces' RANSAC affine
// fitter), generalized here to a weighted normal-equations solve shared by
// the affine and homography fits; translation, rigid and similarity fit in
// closed form.
package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/render-align/elastic-align/internal/alignerr"
	"github.com/render-align/elastic-align/internal/geom"
)

// New constructs a fresh identity model for the given index, matching the
// CLI's --modelIndex convention: 0=Translation, 1=Rigid, 2=Similarity,
// 3=Affine, 4=Homography.
func New(modelIndex int) (geom.Model, error) {
	switch modelIndex {
	case 0:
		return NewTranslation(), nil
	case 1:
		return NewRigid(), nil
	case 2:
		return NewSimilarity(), nil
	case 3:
		return NewAffine(), nil
	case 4:
		return NewHomography(), nil
	default:
		return nil, fmt.Errorf("unknown model index %d", modelIndex)
	}
}

// NewByClassName constructs a fresh model instance for the wire-format
// class name found in a tile-spec transform descriptor, the className
// counterpart to New's --modelIndex convention.
func NewByClassName(className string) (geom.Model, error) {
	switch className {
	case "TranslationModel2D":
		return NewTranslation(), nil
	case "RigidModel2D":
		return NewRigid(), nil
	case "SimilarityModel2D":
		return NewSimilarity(), nil
	case "AffineModel2D":
		return NewAffine(), nil
	case "HomographyModel2D":
		return NewHomography(), nil
	default:
		return nil, fmt.Errorf("unknown transform class %q", className)
	}
}

// weightedCentroids returns the weighted centroids of the L and W sides of
// matches, along with the total weight.
func weightedCentroids(matches []geom.PointMatch) (cl, cw geom.Vec2, totalW float64) {
	for _, m := range matches {
		cl = cl.Add(m.P1.L.Scale(m.Weight))
		cw = cw.Add(m.P2.W.Scale(m.Weight))
		totalW += m.Weight
	}
	if totalW == 0 {
		return cl, cw, 0
	}
	return cl.Scale(1 / totalW), cw.Scale(1 / totalW), totalW
}

// meanCost is the shared Cost implementation: mean weighted transfer error
// between apply(p1.L) and p2.W.
func meanCost(apply func(geom.Vec2) geom.Vec2, matches []geom.PointMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	var sum, totalW float64
	for _, m := range matches {
		w := m.Weight
		if w == 0 {
			w = 1
		}
		d := apply(m.P1.L).Dist(m.P2.W)
		sum += w * d
		totalW += w
	}
	if totalW == 0 {
		return 0
	}
	return sum / totalW
}

func notEnoughPoints(have, need int) error {
	return alignerr.NotEnoughDataPoints.New("need at least %d point matches, have %d", need, have)
}

// solveWeightedLeastSquares solves the weighted normal equations for a
// design matrix A (n x k) and target vector b (n), with per-row weight w,
// via A^T W A x = A^T W b, factorized with a Cholesky solve. It returns
// alignerr.NotEnoughDataPoints if the system is singular (rank-deficient).
func solveWeightedLeastSquares(rows [][]float64, targets, weights []float64) ([]float64, error) {
	n := len(rows)
	if n == 0 {
		return nil, notEnoughPoints(0, 1)
	}
	k := len(rows[0])

	ata := mat.NewSymDense(k, nil)
	atb := mat.NewVecDense(k, nil)

	for i := 0; i < n; i++ {
		w := weights[i]
		row := rows[i]
		for a := 0; a < k; a++ {
			atb.SetVec(a, atb.AtVec(a)+w*row[a]*targets[i])
			for b := a; b < k; b++ {
				ata.SetSym(a, b, ata.At(a, b)+w*row[a]*row[b])
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(ata); !ok {
		return nil, alignerr.NotEnoughDataPoints.New("normal equations are singular")
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, atb); err != nil {
		return nil, alignerr.NotEnoughDataPoints.Wrap(err, "solving normal equations")
	}
	out := make([]float64, k)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}
