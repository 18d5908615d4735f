package model

import "github.com/render-align/elastic-align/internal/geom"

// Translation is a 2D shift, the simplest model in the family.
type Translation struct {
	T geom.Vec2
}

// NewTranslation returns the identity translation.
func NewTranslation() *Translation { return &Translation{} }

func (t *Translation) Class() string { return "TranslationModel2D" }

func (t *Translation) MinPoints() int { return 1 }

func (t *Translation) Apply(l geom.Vec2) geom.Vec2 { return l.Add(t.T) }

func (t *Translation) ApplyInverse(w geom.Vec2) (geom.Vec2, error) {
	return w.Sub(t.T), nil
}

func (t *Translation) Fit(matches []geom.PointMatch) error {
	if len(matches) < t.MinPoints() {
		return notEnoughPoints(len(matches), t.MinPoints())
	}
	cl, cw, totalW := weightedCentroids(matches)
	if totalW == 0 {
		return notEnoughPoints(len(matches), t.MinPoints())
	}
	t.T = cw.Sub(cl)
	return nil
}

func (t *Translation) ToArray() []float64 { return []float64{1, 0, 0, 1, t.T.X, t.T.Y} }

func (t *Translation) FromArray(a []float64) error {
	if len(a) != 6 {
		return notEnoughPoints(len(a), 6)
	}
	t.T = geom.Vec2{X: a[4], Y: a[5]}
	return nil
}

func (t *Translation) Cost(matches []geom.PointMatch) float64 {
	return meanCost(t.Apply, matches)
}

func (t *Translation) Clone() geom.Model {
	c := *t
	return &c
}

func (t *Translation) Compose(other geom.Model) (geom.Model, error) {
	return composeAffine(t, other)
}

func (t *Translation) Preconcatenate(other geom.Model) (geom.Model, error) {
	return preconcatenateAffine(t, other)
}
