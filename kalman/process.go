package kalman

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ProcessModel predicts how a state evolves over elapsed time absent new
// measurements. Callers must ensure dt > 0 before invoking any of these.
type ProcessModel[S State] interface {
	// Predict advances the state mean in place by dt seconds.
	Predict(s S, dt float64)
	// TransitionMatrix returns the Jacobian of the state transition.
	TransitionMatrix(s S, dt float64) *mat.Dense
	// ProcessNoise returns the process noise covariance injected over dt.
	ProcessNoise(s S, dt float64) *mat.Dense
}

// DampedConstantVelocity is a constant-velocity kinematic model with a
// multiplicative decay applied to the velocity terms each prediction step,
// modeling friction without runaway drift.
type DampedConstantVelocity struct {
	// Damping is the fraction of velocity surviving one second of
	// prediction; the attenuation applied over dt is Damping^dt.
	// Must be in (0, 1).
	Damping float64
	// NoiseAutocorrelation scales, per axis, how much white-noise
	// acceleration uncertainty is injected per unit time into the linear
	// (first three) and angular (last three) velocities.
	NoiseAutocorrelation [6]float64
}

// NewDampedConstantVelocity returns a model with uniform noise
// autocorrelation across all six velocity axes.
func NewDampedConstantVelocity(damping, noise float64) *DampedConstantVelocity {
	m := &DampedConstantVelocity{Damping: damping}
	for i := range m.NoiseAutocorrelation {
		m.NoiseAutocorrelation[i] = noise
	}
	return m
}

// attenuation returns the velocity decay factor over dt seconds.
func (m *DampedConstantVelocity) attenuation(dt float64) float64 {
	return math.Pow(m.Damping, dt)
}

// Predict advances position by velocity·dt and the orientation increment by
// angular velocity·dt, then damps both velocities. The orientation increment
// is folded into the reference quaternion so the linearization point stays
// at zero.
func (m *DampedConstantVelocity) Predict(s *PoseState, dt float64) {
	s.setVec3At(positionOffset, s.vec3At(positionOffset).Add(s.vec3At(velocityOffset).Mul(dt)))
	s.setVec3At(orientationOffset, s.vec3At(orientationOffset).Add(s.vec3At(angularVelOffset).Mul(dt)))

	att := m.attenuation(dt)
	s.setVec3At(velocityOffset, s.vec3At(velocityOffset).Mul(att))
	s.setVec3At(angularVelOffset, s.vec3At(angularVelOffset).Mul(att))

	s.externalizeRotation()
}

// TransitionMatrix returns the Jacobian of Predict: identity with dt
// coupling each pose component to its velocity, and the damping attenuation
// on the velocity block.
func (m *DampedConstantVelocity) TransitionMatrix(s *PoseState, dt float64) *mat.Dense {
	f := mat.NewDense(PoseStateDim, PoseStateDim, nil)
	att := m.attenuation(dt)
	for i := 0; i < velocityOffset; i++ {
		f.Set(i, i, 1)
		f.Set(i, i+velocityOffset, dt)
	}
	for i := velocityOffset; i < PoseStateDim; i++ {
		f.Set(i, i, att)
	}
	return f
}

// ProcessNoise returns the white-noise-acceleration covariance over dt: for
// each axis with autocorrelation q, dt³/3·q on the pose component, dt·q on
// the velocity component, and dt²/2·q coupling the two.
func (m *DampedConstantVelocity) ProcessNoise(s *PoseState, dt float64) *mat.Dense {
	q := mat.NewDense(PoseStateDim, PoseStateDim, nil)
	for i := 0; i < 6; i++ {
		qi := m.NoiseAutocorrelation[i]
		q.Set(i, i, dt*dt*dt/3*qi)
		q.Set(i, i+velocityOffset, dt*dt/2*qi)
		q.Set(i+velocityOffset, i, dt*dt/2*qi)
		q.Set(i+velocityOffset, i+velocityOffset, dt*qi)
	}
	return q
}
