package math

import "github.com/chewxy/math32"

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	halfAngle := angle / 2
	s := math32.Sin(halfAngle)
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: math32.Cos(halfAngle),
	}
}

// QuatRotationTo returns the shortest rotation taking unit vector a onto unit vector b.
func QuatRotationTo(a, b Vec3) Quat {
	dot := a.Dot(b)
	switch {
	case dot < -0.999999:
		axis := Vec3{1, 0, 0}.Cross(a)
		if axis.Length() < 1e-6 {
			axis = Vec3{0, 1, 0}.Cross(a)
		}
		return QuatFromAxisAngle(axis.Normalize(), math32.Pi)
	case dot > 0.999999:
		return QuatIdentity()
	}
	c := a.Cross(b)
	return Quat{X: c.X, Y: c.Y, Z: c.Z, W: 1 + dot}.Normalize()
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := math32.Sqrt(q.Dot(q))
	if length < 0.0001 {
		return QuatIdentity()
	}
	invLen := 1.0 / length
	return Quat{
		X: q.X * invLen,
		Y: q.Y * invLen,
		Z: q.Z * invLen,
		W: q.W * invLen,
	}
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Conjugate returns the inverse rotation of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Mul multiplies two quaternions (combines rotations). q.Mul(o) applies o first.
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	p := q.Mul(Quat{X: v.X, Y: v.Y, Z: v.Z}).Mul(q.Conjugate())
	return Vec3{p.X, p.Y, p.Z}
}

// AxisAngle returns the rotation axis and angle in [0, π].
// The identity rotation reports the X axis with a zero angle.
func (q Quat) AxisAngle() (Vec3, float32) {
	q = q.Normalize()
	if q.W < 0 {
		q = Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
	}
	angle := 2 * math32.Acos(Clamp(q.W, -1, 1))
	s := math32.Sqrt(1 - q.W*q.W)
	if s < 1e-6 {
		return Vec3{1, 0, 0}, 0
	}
	return Vec3{q.X / s, q.Y / s, q.Z / s}, angle
}

// IsIdentity reports whether q is within eps of the identity rotation.
func (q Quat) IsIdentity(eps float32) bool {
	_, angle := q.AxisAngle()
	return angle <= eps
}

// ToMat4 converts the quaternion to a 4x4 rotation matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx := q.X * q.X
	xy := q.X * q.Y
	xz := q.X * q.Z
	xw := q.X * q.W
	yy := q.Y * q.Y
	yz := q.Y * q.Z
	yw := q.Y * q.W
	zz := q.Z * q.Z
	zw := q.Z * q.W

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + zw), 2 * (xz - yw), 0,
		2 * (xy - zw), 1 - 2*(xx+zz), 2 * (yz + xw), 0,
		2 * (xz + yw), 2 * (yz - xw), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}
