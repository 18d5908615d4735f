package model

import (
	"math"
	"testing"
)

func TestBestMipmapLevelBoundaries(t *testing.T) {
	cases := []struct {
		scale float64
		want  int
	}{
		{1.0, 0},
		{0.5, 1},
		{0.25, 2},
		{0.1, 3},
	}
	for _, c := range cases {
		if got := BestMipmapLevel(c.scale); got != c.want {
			t.Errorf("BestMipmapLevel(%v) = %d, want %d", c.scale, got, c.want)
		}
	}
}

func TestBestMipmapLevelDegenerateScale(t *testing.T) {
	if got := BestMipmapLevel(0); got != 0 {
		t.Errorf("BestMipmapLevel(0) = %d, want 0", got)
	}
	if got := BestMipmapLevel(-1); got != 0 {
		t.Errorf("BestMipmapLevel(-1) = %d, want 0", got)
	}
}

func TestCreateScaleLevelTransformMatchesFormula(t *testing.T) {
	for level := 0; level <= 3; level++ {
		tr := CreateScaleLevelTransform(level)
		s := math.Pow(2, float64(level))
		want := (s - 1) / 2
		if tr.M00 != s || tr.M11 != s {
			t.Errorf("level %d: M00/M11 = %v/%v, want %v", level, tr.M00, tr.M11, s)
		}
		if tr.M10 != 0 || tr.M01 != 0 {
			t.Errorf("level %d: expected zero off-diagonal terms, got M10=%v M01=%v", level, tr.M10, tr.M01)
		}
		if tr.TX != want || tr.TY != want {
			t.Errorf("level %d: TX/TY = %v/%v, want %v", level, tr.TX, tr.TY, want)
		}
	}
}
