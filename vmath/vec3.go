// Package vmath provides float32 vector and quaternion math for the
// simulation's hot paths. Everything is a plain value type; no method
// mutates its receiver.
package vmath

import "math"

// Vec3 is a 3D float32 vector.
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// LenSq returns the squared length, avoiding the sqrt in distance tests.
func (v Vec3) LenSq() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Len() float32 {
	return Sqrt(v.LenSq())
}

// Normalized returns the unit vector, or the zero vector when the input
// has zero length.
func (v Vec3) Normalized() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	inv := 1 / l
	return Vec3{v.X * inv, v.Y * inv, v.Z * inv}
}

// DistSq returns the squared distance between two points.
func (v Vec3) DistSq(o Vec3) float32 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// Mul returns the component-wise product.
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z}
}

// ClampLen returns v rescaled so its length lies in [lo, hi].
// A zero vector is returned unchanged.
func (v Vec3) ClampLen(lo, hi float32) Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	if l < lo {
		return v.Scale(lo / l)
	}
	if l > hi {
		return v.Scale(hi / l)
	}
	return v
}

// IsFinite reports whether all components are finite (no NaN, no Inf).
func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(f float32) bool {
	d := float64(f)
	return !math.IsNaN(d) && !math.IsInf(d, 0)
}

// Lerp returns v + (o-v)*t.
func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return Vec3{
		v.X + (o.X-v.X)*t,
		v.Y + (o.Y-v.Y)*t,
		v.Z + (o.Z-v.Z)*t,
	}
}

// Sqrt is a float32 square root.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// Cos is a float32 cosine.
func Cos(x float32) float32 {
	return float32(math.Cos(float64(x)))
}

// Sin is a float32 sine.
func Sin(x float32) float32 {
	return float32(math.Sin(float64(x)))
}
