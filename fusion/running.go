package fusion

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/roomscale/videoimu/kalman"
	"github.com/roomscale/videoimu/spatialmath"
)

type poseFilter = kalman.Filter[*kalman.PoseState, *kalman.DampedConstantVelocity]

// runningData owns the running fusion filter and the per-sensor report
// bookkeeping. Each sensor keeps its own last-seen timestamp so the two
// streams can arrive at independent rates without blocking each other.
type runningData struct {
	filter       *poseFilter
	cameraToRoom spatialmath.Pose

	lastIMU  TimeValue
	lastPose TimeValue

	imuCovariance    *mat.SymDense
	cameraCovariance *mat.SymDense
}

// newRunningData seeds a filter from the smoothed camera-to-room transform
// and the latest report from each sensor, then takes over report handling.
func newRunningData(cfg Config, cameraToRoom spatialmath.Pose, imu OrientationReport, video PoseReport) *runningData {
	state := kalman.NewPoseState()
	roomPose := cameraToRoom.Compose(video.Pose())
	state.SetPosition(roomPose.Translation)
	state.SetQuaternion(roomPose.Rotation)

	p := mat.NewDense(kalman.PoseStateDim, kalman.PoseStateDim, nil)
	for i, v := range cfg.InitialStateVariance {
		p.Set(i, i, v)
	}
	state.SetErrorCovariance(p)

	process := &kalman.DampedConstantVelocity{
		Damping:              cfg.VelocityDamping,
		NoiseAutocorrelation: cfg.ProcessNoiseAutocorrelation,
	}

	return &runningData{
		filter:       kalman.NewFilter(state, process),
		cameraToRoom: cameraToRoom,
		lastIMU:      imu.Time,
		lastPose:     video.Time,
		imuCovariance: kalman.DiagonalCovariance(
			cfg.IMUOrientationVariance.X,
			cfg.IMUOrientationVariance.Y,
			cfg.IMUOrientationVariance.Z,
		),
		cameraCovariance: kalman.DiagonalCovariance(
			cfg.CameraPositionVariance.X,
			cfg.CameraPositionVariance.Y,
			cfg.CameraPositionVariance.Z,
			cfg.CameraOrientationVariance.X,
			cfg.CameraOrientationVariance.Y,
			cfg.CameraOrientationVariance.Z,
		),
	}
}

// preReport advances the filter by the elapsed time since this sensor's
// previous report. It reports false, without touching the filter, when the
// elapsed time is not positive (out-of-order or duplicate timestamps).
func (r *runningData) preReport(ts TimeValue, last *TimeValue) (bool, error) {
	dt := ts.Sub(*last)
	if dt <= 0 {
		return false, nil
	}
	*last = ts
	if err := r.filter.Predict(dt); err != nil {
		return false, err
	}
	return true, nil
}

// handleIMUReport runs a predict+correct cycle for an orientation report.
// It reports whether a correction was applied.
func (r *runningData) handleIMUReport(ts TimeValue, rotation quat.Number) (bool, error) {
	ok, err := r.preReport(ts, &r.lastIMU)
	if !ok || err != nil {
		return false, err
	}
	meas := kalman.NewAbsoluteOrientationMeasurement(rotation, r.imuCovariance)
	if err := r.filter.Correct(meas); err != nil {
		return false, err
	}
	return true, nil
}

// handlePoseReport runs a predict+correct cycle for a video tracker report,
// re-expressed in room coordinates. It reports whether a correction was
// applied.
func (r *runningData) handlePoseReport(ts TimeValue, report PoseReport) (bool, error) {
	ok, err := r.preReport(ts, &r.lastPose)
	if !ok || err != nil {
		return false, err
	}
	roomPose := r.cameraPoseToRoom(report.Pose())
	meas := kalman.NewAbsolutePoseMeasurement(roomPose.Translation, roomPose.Rotation, r.cameraCovariance)
	if err := r.filter.Correct(meas); err != nil {
		return false, err
	}
	return true, nil
}

// cameraPoseToRoom re-expresses a camera-frame pose in room coordinates.
func (r *runningData) cameraPoseToRoom(p spatialmath.Pose) spatialmath.Pose {
	return r.cameraToRoom.Compose(p)
}

// currentPose returns the fused pose estimate.
func (r *runningData) currentPose() spatialmath.Pose {
	return r.filter.State().Pose()
}
