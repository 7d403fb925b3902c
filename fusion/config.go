package fusion

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/roomscale/videoimu/filters"
)

// Config carries every tunable of the fusion pipeline with explicit,
// per-deployment-overridable values. DefaultConfig returns the reference
// tuning; zero-value fields in a hand-built Config are rejected by Validate
// rather than silently defaulted.
type Config struct {
	// CalibrationSamples is how many accepted video reports the camera
	// pose acquisition phase needs before fusion starts.
	CalibrationSamples int

	// CalibrationTimeout, when positive, bounds how long acquisition may
	// take; if exceeded, the accumulated samples are discarded and
	// acquisition starts over. Zero disables the bound.
	CalibrationTimeout time.Duration

	// MaxCalibrationAngularRate, when positive, rejects calibration
	// samples taken while the IMU reports rotation faster than this many
	// rad/s, since the instantaneous camera-to-room candidate is only
	// valid for a near-stationary device. Zero disables the gate.
	MaxCalibrationAngularRate float64

	// PositionFilter and OrientationFilter tune the two adaptive low-pass
	// filters smoothing the camera-to-room estimate during acquisition.
	PositionFilter    filters.Params
	OrientationFilter filters.Params

	// InitialStateVariance is the diagonal of the seeded filter's error
	// covariance, in state order: position, orientation increment,
	// velocity, angular velocity.
	InitialStateVariance [12]float64

	// ProcessNoiseAutocorrelation scales the uncertainty injected per unit
	// time into the linear (first three) and angular (last three)
	// velocities.
	ProcessNoiseAutocorrelation [6]float64

	// VelocityDamping is the fraction of velocity surviving one second of
	// prediction, in (0, 1).
	VelocityDamping float64

	// IMUOrientationVariance is the per-axis rotation-vector variance of
	// an IMU orientation measurement.
	IMUOrientationVariance r3.Vector

	// CameraPositionVariance and CameraOrientationVariance form the
	// per-axis variances of a video tracker pose measurement.
	CameraPositionVariance    r3.Vector
	CameraOrientationVariance r3.Vector
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		CalibrationSamples: 10,
		PositionFilter:     filters.DefaultParams(),
		OrientationFilter:  filters.DefaultParams(),
		InitialStateVariance: [12]float64{
			1, 1, 1, 1, 1, 1,
			1, 1, 1, 1, 1, 1,
		},
		ProcessNoiseAutocorrelation: [6]float64{
			0.005, 0.005, 0.005, 0.005, 0.005, 0.005,
		},
		VelocityDamping:           0.1,
		IMUOrientationVariance:    r3.Vector{X: 1, Y: 1.5, Z: 1},
		CameraPositionVariance:    r3.Vector{X: 1, Y: 1, Z: 1},
		CameraOrientationVariance: r3.Vector{X: 1.1, Y: 1.1, Z: 1.1},
	}
}

// Validate checks every field, collecting all violations. Variances must be
// strictly positive: a zero variance claims infinite confidence and would
// destabilize the filter numerically.
func (c Config) Validate(path string) error {
	var result error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			result = multierr.Append(result,
				goutils.NewConfigValidationError(path, errors.Errorf(format, args...)))
		}
	}

	check(c.CalibrationSamples > 0, "calibration_samples must be positive, got %d", c.CalibrationSamples)
	check(c.CalibrationTimeout >= 0, "calibration_timeout must not be negative, got %v", c.CalibrationTimeout)
	check(c.MaxCalibrationAngularRate >= 0,
		"max_calibration_angular_rate must not be negative, got %v", c.MaxCalibrationAngularRate)
	check(c.VelocityDamping > 0 && c.VelocityDamping < 1,
		"velocity_damping must be in (0, 1), got %v", c.VelocityDamping)

	for _, f := range []struct {
		name   string
		params filters.Params
	}{
		{"position_filter", c.PositionFilter},
		{"orientation_filter", c.OrientationFilter},
	} {
		check(f.params.MinCutoff > 0, "%s min cutoff must be positive, got %v", f.name, f.params.MinCutoff)
		check(f.params.DerivativeCutoff > 0,
			"%s derivative cutoff must be positive, got %v", f.name, f.params.DerivativeCutoff)
		check(f.params.Beta >= 0, "%s beta must not be negative, got %v", f.name, f.params.Beta)
	}

	for i, v := range c.InitialStateVariance {
		check(v > 0, "initial_state_variance[%d] must be positive, got %v", i, v)
	}
	for i, v := range c.ProcessNoiseAutocorrelation {
		check(v > 0, "process_noise_autocorrelation[%d] must be positive, got %v", i, v)
	}
	for _, v := range []struct {
		name string
		vec  r3.Vector
	}{
		{"imu_orientation_variance", c.IMUOrientationVariance},
		{"camera_position_variance", c.CameraPositionVariance},
		{"camera_orientation_variance", c.CameraOrientationVariance},
	} {
		check(v.vec.X > 0 && v.vec.Y > 0 && v.vec.Z > 0,
			"%s components must be positive, got %v", v.name, v.vec)
	}

	return result
}
