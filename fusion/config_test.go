package fusion

import (
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestDefaultConfigValidates(t *testing.T) {
	test.That(t, DefaultConfig().Validate("fusion"), test.ShouldBeNil)
}

func TestConfigValidateRejections(t *testing.T) {
	for _, tc := range []struct {
		TestName string
		Mutate   func(*Config)
	}{
		{"zero samples", func(c *Config) { c.CalibrationSamples = 0 }},
		{"negative timeout", func(c *Config) { c.CalibrationTimeout = -time.Second }},
		{"negative angular rate gate", func(c *Config) { c.MaxCalibrationAngularRate = -1 }},
		{"damping zero", func(c *Config) { c.VelocityDamping = 0 }},
		{"damping one", func(c *Config) { c.VelocityDamping = 1 }},
		{"zero filter cutoff", func(c *Config) { c.PositionFilter.MinCutoff = 0 }},
		{"negative filter beta", func(c *Config) { c.OrientationFilter.Beta = -0.1 }},
		{"zero initial variance", func(c *Config) { c.InitialStateVariance[4] = 0 }},
		{"negative process noise", func(c *Config) { c.ProcessNoiseAutocorrelation[2] = -0.01 }},
		{"zero imu variance", func(c *Config) { c.IMUOrientationVariance = r3.Vector{X: 1, Y: 0, Z: 1} }},
		{"zero camera variance", func(c *Config) { c.CameraPositionVariance = r3.Vector{} }},
	} {
		t.Run(tc.TestName, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.Mutate(&cfg)
			test.That(t, cfg.Validate("fusion"), test.ShouldNotBeNil)
		})
	}
}

func TestConfigValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CalibrationSamples = -1
	cfg.VelocityDamping = 2
	err := cfg.Validate("fusion")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "calibration_samples")
	test.That(t, err.Error(), test.ShouldContainSubstring, "velocity_damping")
}

func TestTimeValueArithmetic(t *testing.T) {
	a := TimeValue{Seconds: 10, Microseconds: 500000}
	b := TimeValue{Seconds: 12, Microseconds: 250000}

	test.That(t, b.Sub(a), test.ShouldAlmostEqual, 1.75, 1e-12)
	test.That(t, a.Sub(b), test.ShouldAlmostEqual, -1.75, 1e-12)
	test.That(t, a.Sub(a), test.ShouldEqual, 0)

	test.That(t, a.Add(1750*time.Millisecond), test.ShouldResemble, b)

	now := time.Unix(42, 123456789)
	tv := TimeValueFromTime(now)
	test.That(t, tv.Seconds, test.ShouldEqual, 42)
	test.That(t, tv.Microseconds, test.ShouldEqual, 123456)
}
