// Package kalman implements an extended Kalman filter for rigid-body pose
// tracking, generic over the state representation, the process model, and
// the measurement models fed to it.
//
// Orientation is handled with an externalized rotation: the linear state
// vector carries only a small-angle orientation increment, while the full
// orientation lives in a reference quaternion held next to the state vector.
// After every correction the increment is folded into the reference
// quaternion and reset to zero, keeping the linear state well-conditioned
// while representing orientation exactly.
package kalman

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/roomscale/videoimu/spatialmath"
)

// Layout of the pose error state. The process and measurement models share
// this contract; the offsets are fixed.
const (
	// PoseStateDim is the dimension of the pose error state.
	PoseStateDim = 12

	positionOffset    = 0
	orientationOffset = 3
	velocityOffset    = 6
	angularVelOffset  = 9
)

// State is the estimator's state representation: the linear error-state
// vector plus its error covariance, and the structured update applied when a
// correction lands.
type State interface {
	// Dim returns the dimension of the state vector.
	Dim() int
	// StateVector returns the current state vector. Callers must not
	// mutate it.
	StateVector() *mat.VecDense
	// SetStateVector replaces the state vector.
	SetStateVector(v *mat.VecDense)
	// ErrorCovariance returns the current error covariance. Callers must
	// not mutate it.
	ErrorCovariance() *mat.Dense
	// SetErrorCovariance replaces the error covariance.
	SetErrorCovariance(p *mat.Dense)
	// ApplyCorrection adds the Kalman correction to the state vector and
	// performs any structured post-update, such as folding an orientation
	// increment back into an external representation.
	ApplyCorrection(delta *mat.VecDense)
}

// PoseState is the 12-dimensional externalized-rotation pose state:
// position, orientation increment, velocity, and angular velocity, plus a
// unit reference quaternion holding the orientation estimate.
type PoseState struct {
	x *mat.VecDense
	p *mat.Dense
	q quat.Number
}

// NewPoseState returns a zeroed pose state with an identity orientation and
// zero covariance.
func NewPoseState() *PoseState {
	return &PoseState{
		x: mat.NewVecDense(PoseStateDim, nil),
		p: mat.NewDense(PoseStateDim, PoseStateDim, nil),
		q: quat.Number{Real: 1},
	}
}

// Dim returns the dimension of the state vector.
func (s *PoseState) Dim() int { return PoseStateDim }

// StateVector returns the current state vector.
func (s *PoseState) StateVector() *mat.VecDense { return s.x }

// SetStateVector replaces the state vector.
func (s *PoseState) SetStateVector(v *mat.VecDense) {
	s.x = mat.VecDenseCopyOf(v)
}

// ErrorCovariance returns the current error covariance.
func (s *PoseState) ErrorCovariance() *mat.Dense { return s.p }

// SetErrorCovariance replaces the error covariance.
func (s *PoseState) SetErrorCovariance(p *mat.Dense) {
	s.p = mat.DenseCopyOf(p)
}

// Quaternion returns the reference orientation, always unit-norm.
func (s *PoseState) Quaternion() quat.Number { return s.q }

// SetQuaternion replaces the reference orientation, normalizing it.
func (s *PoseState) SetQuaternion(q quat.Number) {
	s.q = spatialmath.Normalize(q)
}

// Position returns the position components of the state.
func (s *PoseState) Position() r3.Vector {
	return s.vec3At(positionOffset)
}

// SetPosition sets the position components of the state.
func (s *PoseState) SetPosition(p r3.Vector) {
	s.setVec3At(positionOffset, p)
}

// Velocity returns the velocity components of the state.
func (s *PoseState) Velocity() r3.Vector {
	return s.vec3At(velocityOffset)
}

// AngularVelocity returns the angular velocity components of the state.
func (s *PoseState) AngularVelocity() spatialmath.AngularVelocity {
	return spatialmath.R3ToAngVel(s.vec3At(angularVelOffset))
}

// Pose returns the position and reference orientation as a rigid transform.
func (s *PoseState) Pose() spatialmath.Pose {
	return spatialmath.NewPose(s.Position(), s.q)
}

// ApplyCorrection adds the correction to the state vector, then folds the
// resulting orientation increment into the reference quaternion and zeroes
// it, the externalized-rotation reset.
func (s *PoseState) ApplyCorrection(delta *mat.VecDense) {
	s.x.AddVec(s.x, delta)
	s.externalizeRotation()
}

// externalizeRotation folds the orientation-increment slots into the
// reference quaternion via the exponential map and resets them to zero.
// The increment is a left-multiplicative tangent error, matching the
// measurement residual convention.
func (s *PoseState) externalizeRotation() {
	inc := s.vec3At(orientationOffset)
	if inc == (r3.Vector{}) {
		return
	}
	s.q = spatialmath.Normalize(quat.Mul(spatialmath.RotVecToQuat(inc), s.q))
	s.setVec3At(orientationOffset, r3.Vector{})
}

func (s *PoseState) vec3At(offset int) r3.Vector {
	return r3.Vector{
		X: s.x.AtVec(offset),
		Y: s.x.AtVec(offset + 1),
		Z: s.x.AtVec(offset + 2),
	}
}

func (s *PoseState) setVec3At(offset int, v r3.Vector) {
	s.x.SetVec(offset, v.X)
	s.x.SetVec(offset+1, v.Y)
	s.x.SetVec(offset+2, v.Z)
}
