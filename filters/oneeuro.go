// Package filters implements the adaptive low-pass ("one euro") filter used
// to smooth the camera-to-room estimate during calibration. The cutoff
// frequency tracks the smoothed rate of change of the signal, so a
// fast-moving signal is smoothed less (low lag) while a slow, noisy signal
// is smoothed more.
package filters

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/roomscale/videoimu/spatialmath"
)

// Params tune an adaptive low-pass filter.
type Params struct {
	// MinCutoff is the cutoff frequency in Hz applied when the signal is
	// not moving. Lower values smooth more.
	MinCutoff float64
	// Beta scales how much the cutoff opens up as the signal speeds up.
	Beta float64
	// DerivativeCutoff is the fixed cutoff in Hz used to smooth the
	// derivative estimate itself.
	DerivativeCutoff float64
}

// DefaultParams returns the tuning used for camera pose acquisition.
func DefaultParams() Params {
	return Params{MinCutoff: 1.15, Beta: 0.5, DerivativeCutoff: 1.2}
}

// smoothingFactor converts a cutoff frequency and a sample interval into the
// exponential smoothing weight of the new sample.
func smoothingFactor(dt, cutoff float64) float64 {
	tau := 1 / (2 * math.Pi * cutoff)
	return 1 / (1 + tau/dt)
}

// VectorFilter adaptively low-passes a time-sampled r3.Vector signal.
type VectorFilter struct {
	params      Params
	initialized bool
	value       r3.Vector
	derivative  r3.Vector
}

// NewVectorFilter returns a vector filter with the given tuning.
func NewVectorFilter(params Params) *VectorFilter {
	return &VectorFilter{params: params}
}

// Filter consumes a new raw sample taken dt seconds (dt > 0) after the
// previous one and returns the smoothed value. The first call seeds the
// filter and returns the sample unchanged.
func (f *VectorFilter) Filter(dt float64, raw r3.Vector) r3.Vector {
	if !f.initialized {
		f.initialized = true
		f.value = raw
		return f.value
	}

	derivative := raw.Sub(f.value).Mul(1 / dt)
	alphaD := smoothingFactor(dt, f.params.DerivativeCutoff)
	f.derivative = f.derivative.Add(derivative.Sub(f.derivative).Mul(alphaD))

	cutoff := f.params.MinCutoff + f.params.Beta*f.derivative.Norm()
	alpha := smoothingFactor(dt, cutoff)
	f.value = f.value.Add(raw.Sub(f.value).Mul(alpha))
	return f.value
}

// Value returns the current smoothed value.
func (f *VectorFilter) Value() r3.Vector {
	return f.value
}

// QuaternionFilter adaptively low-passes a time-sampled rotation signal. The
// derivative estimate is the angular velocity between consecutive smoothed
// samples, and smoothing blends along the rotation arc.
type QuaternionFilter struct {
	params      Params
	initialized bool
	value       quat.Number
	derivative  r3.Vector
}

// NewQuaternionFilter returns a rotation filter with the given tuning.
func NewQuaternionFilter(params Params) *QuaternionFilter {
	return &QuaternionFilter{params: params, value: quat.Number{Real: 1}}
}

// Filter consumes a new raw rotation sampled dt seconds (dt > 0) after the
// previous one and returns the smoothed rotation. The first call seeds the
// filter and returns the sample unchanged.
func (f *QuaternionFilter) Filter(dt float64, raw quat.Number) quat.Number {
	raw = spatialmath.Normalize(raw)
	if !f.initialized {
		f.initialized = true
		f.value = raw
		return f.value
	}

	diff := quat.Mul(raw, quat.Conj(f.value))
	derivative := spatialmath.QuatToAngVel(diff, dt).R3()
	alphaD := smoothingFactor(dt, f.params.DerivativeCutoff)
	f.derivative = f.derivative.Add(derivative.Sub(f.derivative).Mul(alphaD))

	cutoff := f.params.MinCutoff + f.params.Beta*f.derivative.Norm()
	alpha := smoothingFactor(dt, cutoff)
	f.value = spatialmath.Slerp(f.value, raw, alpha)
	return f.value
}

// Value returns the current smoothed rotation.
func (f *QuaternionFilter) Value() quat.Number {
	return f.value
}
