// Package geom holds the point, point-match and coordinate-transform
// abstractions shared by the mesh, tile-configuration and model packages.
package geom

import "math"

// Vec2 is a 2-component coordinate vector.
type Vec2 struct {
	X, Y float64
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Length returns the Euclidean norm of v.
func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Dist returns the Euclidean distance between v and o.
func (v Vec2) Dist(o Vec2) float64 {
	return v.Sub(o).Length()
}

// Point is a pair of local/world 2-vectors. Applying a transform to a point
// overwrites W from L; it never mutates L. Two points sharing identity (the
// same *Point) are considered "the same vertex" throughout the mesh and
// tile-configuration packages -- structural equality of coordinates is not
// sufficient.
type Point struct {
	L, W Vec2
}

// NewPoint returns a Point whose L and W both start at l (the point has not
// yet been displaced by any transform).
func NewPoint(l Vec2) *Point {
	return &Point{L: l, W: l}
}

// Clone returns a new, independently-identified Point with the same L/W.
func (p *Point) Clone() *Point {
	c := *p
	return &c
}

// PointMatch asserts that P1 (in one coordinate frame) and P2 (in another)
// refer to the same physical location, with a non-negative confidence Weight.
type PointMatch struct {
	P1, P2 *Point
	Weight float64
}
