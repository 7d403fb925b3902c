// Package fusion fuses two asynchronously-reporting pose sensors, a
// high-rate orientation-only IMU and a low-rate absolute 6-DOF video
// tracker, into one continuous pose estimate in the room frame. Before
// fusing it estimates the unknown rigid transform between the video
// tracker's frame and the room frame from the first reports it sees.
package fusion

import (
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/roomscale/videoimu/spatialmath"
)

// TimeValue is a sensor report timestamp, split into whole seconds and
// microseconds the way tracking hosts deliver them.
type TimeValue struct {
	Seconds      int64
	Microseconds int32
}

// TimeValueFromTime converts a time.Time to a TimeValue.
func TimeValueFromTime(t time.Time) TimeValue {
	return TimeValue{
		Seconds:      t.Unix(),
		Microseconds: int32(t.Nanosecond() / 1000),
	}
}

// Sub returns the elapsed time in seconds from earlier to tv. Negative if
// tv precedes earlier.
func (tv TimeValue) Sub(earlier TimeValue) float64 {
	return float64(tv.Seconds-earlier.Seconds) +
		float64(tv.Microseconds-earlier.Microseconds)/1e6
}

// Add returns the TimeValue d later than tv.
func (tv TimeValue) Add(d time.Duration) TimeValue {
	us := int64(tv.Microseconds) + d.Microseconds()
	return TimeValue{
		Seconds:      tv.Seconds + us/1e6,
		Microseconds: int32(us % 1e6),
	}
}

// OrientationReport is a single orientation sample from the IMU: the
// device-to-room rotation at the capture time.
type OrientationReport struct {
	Time     TimeValue
	Rotation quat.Number
}

// PoseReport is a single 6-DOF sample from the video tracker: the device
// pose expressed in the tracker's own camera frame at the capture time.
type PoseReport struct {
	Time        TimeValue
	Translation r3.Vector
	Rotation    quat.Number
}

// Pose returns the report as a rigid transform.
func (r PoseReport) Pose() spatialmath.Pose {
	return spatialmath.NewPose(r.Translation, r.Rotation)
}

// Channel identifies which logical output stream a fused pose belongs to.
type Channel int

const (
	// ChannelFused carries the primary fused estimate.
	ChannelFused Channel = 0
	// ChannelTransformedVideo carries the raw tracker pose re-expressed in
	// room coordinates, for diagnostics.
	ChannelTransformedVideo Channel = 1
)

// FusedPose is one output sample, tagged with the timestamp of the report
// that triggered it.
type FusedPose struct {
	Time    TimeValue
	Channel Channel
	Pose    spatialmath.Pose
}

// PoseSink receives the fused pose stream. Implementations are called
// synchronously from the report callbacks and must not block.
type PoseSink interface {
	SendPose(p FusedPose) error
}

// PoseSinkFunc adapts a function to the PoseSink interface.
type PoseSinkFunc func(p FusedPose) error

// SendPose calls the wrapped function.
func (f PoseSinkFunc) SendPose(p FusedPose) error { return f(p) }
