package kalman

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/roomscale/videoimu/spatialmath"
)

// Measurement maps a state to a predicted sensor observation and quantifies
// the mismatch against an actual observation. The covariance is supplied per
// measurement instance, so per-sample sensor confidence can vary.
type Measurement[S State] interface {
	// Residual returns the innovation: observed minus predicted, in the
	// measurement's linearized space.
	Residual(s S) *mat.VecDense
	// Jacobian returns the measurement Jacobian, zero-padded to the full
	// state width.
	Jacobian(s S) *mat.Dense
	// Covariance returns the measurement noise covariance. It must be
	// positive definite.
	Covariance() *mat.SymDense
}

// rotationResidual is the small-angle linearized rotation-vector difference
// between an observed and a predicted orientation, 2·vec(q_obs ⊗ q̂⁻¹).
func rotationResidual(observed, predicted quat.Number) r3.Vector {
	diff := quat.Mul(spatialmath.Normalize(observed), quat.Conj(predicted))
	if diff.Real < 0 {
		diff = spatialmath.Flip(diff)
	}
	return r3.Vector{X: 2 * diff.Imag, Y: 2 * diff.Jmag, Z: 2 * diff.Kmag}
}

// AbsoluteOrientationMeasurement observes only the rotation of the tracked
// body, as an IMU does.
type AbsoluteOrientationMeasurement struct {
	Rotation   quat.Number
	covariance *mat.SymDense // 3x3
}

// NewAbsoluteOrientationMeasurement returns an orientation measurement with
// the given 3×3 rotation-vector covariance.
func NewAbsoluteOrientationMeasurement(rotation quat.Number, covariance *mat.SymDense) AbsoluteOrientationMeasurement {
	return AbsoluteOrientationMeasurement{Rotation: rotation, covariance: covariance}
}

// Residual returns the linearized rotation difference between the observed
// and predicted orientation.
func (m AbsoluteOrientationMeasurement) Residual(s *PoseState) *mat.VecDense {
	r := rotationResidual(m.Rotation, s.Quaternion())
	return mat.NewVecDense(3, []float64{r.X, r.Y, r.Z})
}

// Jacobian selects the orientation-increment block of the state.
func (m AbsoluteOrientationMeasurement) Jacobian(s *PoseState) *mat.Dense {
	h := mat.NewDense(3, PoseStateDim, nil)
	for i := 0; i < 3; i++ {
		h.Set(i, orientationOffset+i, 1)
	}
	return h
}

// Covariance returns the measurement noise covariance.
func (m AbsoluteOrientationMeasurement) Covariance() *mat.SymDense {
	return m.covariance
}

// AbsolutePoseMeasurement observes translation and rotation jointly, as an
// absolute 6-DOF tracker does.
type AbsolutePoseMeasurement struct {
	Translation r3.Vector
	Rotation    quat.Number
	covariance  *mat.SymDense // 6x6, translation then rotation
}

// NewAbsolutePoseMeasurement returns a pose measurement with the given 6×6
// covariance, translation components first.
func NewAbsolutePoseMeasurement(translation r3.Vector, rotation quat.Number, covariance *mat.SymDense) AbsolutePoseMeasurement {
	return AbsolutePoseMeasurement{Translation: translation, Rotation: rotation, covariance: covariance}
}

// Residual stacks the translation difference with the linearized rotation
// difference.
func (m AbsolutePoseMeasurement) Residual(s *PoseState) *mat.VecDense {
	dp := m.Translation.Sub(s.Position())
	dr := rotationResidual(m.Rotation, s.Quaternion())
	return mat.NewVecDense(6, []float64{dp.X, dp.Y, dp.Z, dr.X, dr.Y, dr.Z})
}

// Jacobian selects the position and orientation-increment blocks of the
// state.
func (m AbsolutePoseMeasurement) Jacobian(s *PoseState) *mat.Dense {
	h := mat.NewDense(6, PoseStateDim, nil)
	for i := 0; i < 3; i++ {
		h.Set(i, positionOffset+i, 1)
		h.Set(3+i, orientationOffset+i, 1)
	}
	return h
}

// Covariance returns the measurement noise covariance.
func (m AbsolutePoseMeasurement) Covariance() *mat.SymDense {
	return m.covariance
}

// DiagonalCovariance builds a diagonal covariance from per-component
// variances.
func DiagonalCovariance(variances ...float64) *mat.SymDense {
	c := mat.NewSymDense(len(variances), nil)
	for i, v := range variances {
		c.SetSym(i, i, v)
	}
	return c
}
