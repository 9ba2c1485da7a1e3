package vmath

// Quat is a rotation quaternion. The zero value is not a valid rotation;
// use QuatIdent.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdent returns the identity rotation.
func QuatIdent() Quat {
	return Quat{0, 0, 0, 1}
}

// AxisAngle builds a rotation of angle radians about the given axis.
// The axis does not need to be normalized.
func AxisAngle(axis Vec3, angle float32) Quat {
	a := axis.Normalized()
	s := Sin(angle / 2)
	return Quat{a.X * s, a.Y * s, a.Z * s, Cos(angle / 2)}
}

// FromTo returns the shortest-arc rotation taking unit vector a to unit
// vector b. Antiparallel inputs rotate about an arbitrary perpendicular.
func FromTo(a, b Vec3) Quat {
	d := a.Dot(b)
	if d > 0.999999 {
		return QuatIdent()
	}
	if d < -0.999999 {
		// 180 degrees; pick any axis orthogonal to a
		axis := Vec3{1, 0, 0}.Cross(a)
		if axis.LenSq() < 1e-6 {
			axis = Vec3{0, 1, 0}.Cross(a)
		}
		return AxisAngle(axis, 3.14159265)
	}
	c := a.Cross(b)
	q := Quat{c.X, c.Y, c.Z, 1 + d}
	return q.Normalized()
}

// Mul composes rotations: the result applies o first, then q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

func (q Quat) Normalized() Quat {
	l := Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if l == 0 {
		return QuatIdent()
	}
	inv := 1 / l
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	// v' = v + 2*qv x (qv x v + w*v)
	qv := Vec3{q.X, q.Y, q.Z}
	t := qv.Cross(v).Add(v.Scale(q.W))
	return v.Add(qv.Cross(t).Scale(2))
}

// Forward returns the rotated local forward axis (+Z).
func (q Quat) Forward() Vec3 {
	return q.Rotate(Vec3{0, 0, 1})
}

// Nlerp interpolates toward o by t and renormalizes, flipping sign to
// take the short path. Cheaper than slerp and adequate for per-step
// orientation smoothing.
func (q Quat) Nlerp(o Quat, t float32) Quat {
	d := q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W
	if d < 0 {
		o = Quat{-o.X, -o.Y, -o.Z, -o.W}
	}
	r := Quat{
		q.X + (o.X-q.X)*t,
		q.Y + (o.Y-q.Y)*t,
		q.Z + (o.Z-q.Z)*t,
		q.W + (o.W-q.W)*t,
	}
	return r.Normalized()
}
