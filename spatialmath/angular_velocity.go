package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// AngularVelocity contains angular velocity in rad/s across x/y/z axes.
type AngularVelocity r3.Vector

// QuatToAngVel calculates an angular velocity from an orientation change
// expressed as a quaternion over a time difference.
func QuatToAngVel(diff quat.Number, dt float64) AngularVelocity {
	w := QuatToRotVec(diff).Mul(1 / dt)
	return AngularVelocity{X: w.X, Y: w.Y, Z: w.Z}
}

// R3ToAngVel converts an r3.Vector to an angular velocity.
func R3ToAngVel(v r3.Vector) AngularVelocity {
	return AngularVelocity{X: v.X, Y: v.Y, Z: v.Z}
}

// R3 converts an angular velocity back to an r3.Vector.
func (av AngularVelocity) R3() r3.Vector {
	return r3.Vector{X: av.X, Y: av.Y, Z: av.Z}
}

// Norm returns the magnitude of the angular velocity in rad/s.
func (av AngularVelocity) Norm() float64 {
	return av.R3().Norm()
}
