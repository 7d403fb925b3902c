package fusion

import (
	"time"

	"github.com/benbjohnson/clock"
	"gonum.org/v1/gonum/num/quat"

	"github.com/roomscale/videoimu/filters"
	"github.com/roomscale/videoimu/spatialmath"
)

// calibration accumulates an estimate of the fixed camera-to-room transform
// while the device is held still. Each video report, paired with the most
// recent IMU orientation, yields an instantaneous transform candidate; the
// translation and rotation are smoothed independently until enough samples
// have been accepted.
type calibration struct {
	required       int
	maxAngularRate float64
	timeout        time.Duration

	reports  int
	last     TimeValue
	deadline time.Time

	position    *filters.VectorFilter
	orientation *filters.QuaternionFilter

	prevIMU     quat.Number
	haveIMU     bool
	lastIMUTime TimeValue
}

func newCalibration(cfg Config, clk clock.Clock) *calibration {
	c := &calibration{
		required:       cfg.CalibrationSamples,
		maxAngularRate: cfg.MaxCalibrationAngularRate,
		timeout:        cfg.CalibrationTimeout,
		last:           TimeValueFromTime(clk.Now()),
		position:       filters.NewVectorFilter(cfg.PositionFilter),
		orientation:    filters.NewQuaternionFilter(cfg.OrientationFilter),
	}
	if c.timeout > 0 {
		c.deadline = clk.Now().Add(c.timeout)
	}
	return c
}

// expired reports whether the acquisition has outlived its deadline without
// finishing.
func (c *calibration) expired(now time.Time) bool {
	return c.timeout > 0 && now.After(c.deadline)
}

// movingTooFast reports whether the device is rotating faster than the
// configured gate allows, based on consecutive IMU orientations.
func (c *calibration) movingTooFast(ts TimeValue, imu quat.Number) bool {
	defer func() {
		c.prevIMU = imu
		c.haveIMU = true
		c.lastIMUTime = ts
	}()
	if c.maxAngularRate <= 0 || !c.haveIMU {
		return false
	}
	dt := ts.Sub(c.lastIMUTime)
	if dt <= 0 {
		return false
	}
	diff := quat.Mul(imu, quat.Conj(c.prevIMU))
	return spatialmath.QuatToAngVel(diff, dt).Norm() > c.maxAngularRate
}

// handleReport folds one video report and its paired IMU orientation into
// the smoothed camera-to-room estimate.
func (c *calibration) handleReport(ts TimeValue, report PoseReport, imu quat.Number) {
	dt := ts.Sub(c.last)
	if dt <= 0 {
		dt = 1 // first sample, or clock weirdness; avoid dividing by zero
	}

	// The tracker reports the device pose in camera coordinates, the IMU
	// the device orientation in room coordinates. Composing the inverse of
	// the former with the latter gives an instantaneous camera-to-room
	// candidate.
	candidate := report.Pose().Invert().Compose(spatialmath.NewPoseFromOrientation(imu))
	c.position.Filter(dt, candidate.Translation)
	c.orientation.Filter(dt, candidate.Rotation)
	c.reports++
	c.last = ts
}

// finished reports whether enough samples have been accepted.
func (c *calibration) finished() bool {
	return c.reports >= c.required
}

// cameraToRoom returns the current smoothed camera-to-room transform.
func (c *calibration) cameraToRoom() spatialmath.Pose {
	return spatialmath.NewPose(c.position.Value(), c.orientation.Value())
}
