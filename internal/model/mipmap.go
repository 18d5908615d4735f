package model

import "math"

// BestMipmapLevel returns the largest integer L such that 2^L <= 1/scale,
// the coarsest mipmap level that still oversamples an image displayed at
// the given scale.
func BestMipmapLevel(scale float64) int {
	if scale <= 0 {
		return 0
	}
	return int(math.Floor(math.Log2(1/scale) + 1e-9))
}

// CreateScaleLevelTransform returns the affine transform mapping a level-L
// mipmap's local coordinates back to level-0 coordinates: a uniform scale
// of 2^L about the pixel grid's corner.
func CreateScaleLevelTransform(level int) *Affine {
	s := math.Pow(2, float64(level))
	return &Affine{M00: s, M11: s, TX: (s - 1) / 2, TY: (s - 1) / 2}
}
