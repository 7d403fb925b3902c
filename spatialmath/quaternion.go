// Package spatialmath defines the spatial mathematical operations the pose
// estimator is built on: unit quaternions for orientation, r3 vectors for
// translation, and the conversions between quaternions and tangent-space
// rotation vectors.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// If two rotations differ by less than this angle we treat them as the same
// for the purpose of interpolation.
const angleEpsilon = 1e-8 // radians

// Norm returns the norm of the imaginary part of the quaternion, i.e. the
// sqrt of the sum of squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Normalize returns the unit quaternion with the same direction as q. The
// zero quaternion normalizes to the identity rotation.
func Normalize(q quat.Number) quat.Number {
	length := quat.Abs(q)
	if length == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/length, q)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing
// the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// QuatToRotVec converts a quaternion to a rotation vector (R3 axis angle) in
// the same way the C++ Eigen library does.
// https://eigen.tuxfamily.org/dox/AngleAxis_8h_source.html
func QuatToRotVec(q quat.Number) r3.Vector {
	denom := Norm(q)

	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}

	if denom < 1e-12 {
		return r3.Vector{}
	}
	return r3.Vector{X: angle * q.Imag / denom, Y: angle * q.Jmag / denom, Z: angle * q.Kmag / denom}
}

// RotVecToQuat converts a rotation vector to the unit quaternion representing
// the same rotation, i.e. the quaternion exponential map of half the vector.
func RotVecToQuat(v r3.Vector) quat.Number {
	angle := v.Norm()
	if angle < angleEpsilon {
		// Small-angle series for sin(a/2)/a keeps this exact near zero.
		scale := 0.5 - angle*angle/48
		return Normalize(quat.Number{Real: 1, Imag: v.X * scale, Jmag: v.Y * scale, Kmag: v.Z * scale})
	}
	scale := math.Sin(angle/2) / angle
	return quat.Number{
		Real: math.Cos(angle / 2),
		Imag: v.X * scale,
		Jmag: v.Y * scale,
		Kmag: v.Z * scale,
	}
}

// Rotate rotates the point v by the rotation quaternion q.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	result := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: result.Imag, Y: result.Jmag, Z: result.Kmag}
}

// AngleBetween returns the magnitude in radians of the rotation taking q1 to q2.
func AngleBetween(q1, q2 quat.Number) float64 {
	return QuatToRotVec(quat.Mul(q2, quat.Conj(q1))).Norm()
}

// Slerp interpolates between q1 and q2 along the shorter arc. t=0 yields q1,
// t=1 yields q2.
func Slerp(q1, q2 quat.Number, t float64) quat.Number {
	dot := q1.Real*q2.Real + q1.Imag*q2.Imag + q1.Jmag*q2.Jmag + q1.Kmag*q2.Kmag
	if dot < 0 {
		q2 = Flip(q2)
		dot = -dot
	}
	if dot > 1 {
		dot = 1
	}
	theta := math.Acos(dot)
	if theta < angleEpsilon {
		// Arc too short for a stable sine ratio, linear blend and renormalize.
		return Normalize(quat.Add(quat.Scale(1-t, q1), quat.Scale(t, q2)))
	}
	sinTheta := math.Sin(theta)
	w1 := math.Sin((1-t)*theta) / sinTheta
	w2 := math.Sin(t*theta) / sinTheta
	return Normalize(quat.Add(quat.Scale(w1, q1), quat.Scale(w2, q2)))
}

// QuaternionAlmostEqual tests a near-equality of two rotations, accounting
// for the double cover.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return AngleBetween(a, b) < tol
}
