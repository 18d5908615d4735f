package mesh

import "github.com/render-align/elastic-align/internal/geom"

// Spring is a damped linear spring between two vertices: it pulls its
// owning vertex toward its rest length, with the driving stretch clamped
// to MaxStretch so a single bad correspondence cannot inject an unbounded
// force into the mesh.
type Spring struct {
	RestLength float64
	Constant   float64
	MaxStretch float64
}

// NewSpring builds a spring with the given rest length, stiffness constant
// and stretch clamp.
func NewSpring(restLength, constant, maxStretch float64) *Spring {
	return &Spring{RestLength: restLength, Constant: constant, MaxStretch: maxStretch}
}

// forceOn returns the force vector this spring exerts on the vertex at
// `from`, pulling it toward `to`.
func (s *Spring) forceOn(from, to geom.Vec2) geom.Vec2 {
	delta := to.Sub(from)
	length := delta.Length()
	if length == 0 {
		return geom.Vec2{}
	}
	stretch := length - s.RestLength
	if stretch > s.MaxStretch {
		stretch = s.MaxStretch
	} else if stretch < -s.MaxStretch {
		stretch = -s.MaxStretch
	}
	mag := s.Constant * stretch
	return delta.Scale(mag / length)
}

// energy is the elastic potential energy currently stored in the spring,
// used by the mesh optimizer's plateau detection.
func (s *Spring) energy(from, to geom.Vec2) float64 {
	stretch := to.Dist(from) - s.RestLength
	if stretch > s.MaxStretch {
		stretch = s.MaxStretch
	} else if stretch < -s.MaxStretch {
		stretch = -s.MaxStretch
	}
	return 0.5 * s.Constant * stretch * stretch
}
