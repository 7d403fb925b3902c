package fusion

import (
	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/roomscale/videoimu/spatialmath"
)

// State is the tracker lifecycle phase.
type State int

const (
	// StateAcquiringCameraPose is the initial phase, estimating the
	// camera-to-room transform.
	StateAcquiringCameraPose State = iota
	// StateRunning is the fusion phase. There is no transition back.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateAcquiringCameraPose:
		return "AcquiringCameraPose"
	case StateRunning:
		return "Running"
	default:
		return "Unknown"
	}
}

// Tracker is the calibration/fusion controller. It routes incoming sensor
// reports to either the calibration accumulator or the running filter, and
// emits fused poses to the sink.
//
// The tracker is callback-driven and single-threaded: the host delivering
// reports must serialize calls to HandleOrientation and HandlePose.
type Tracker struct {
	cfg    Config
	sink   PoseSink
	logger golog.Logger
	clock  clock.Clock

	state   State
	calib   *calibration
	running *runningData

	lastOrientation     OrientationReport
	haveLastOrientation bool
	lastPoseReport      PoseReport
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock substitutes the wall clock used to bound calibration
// acquisition.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// NewTracker validates the configuration and returns a tracker in the
// camera-pose acquisition phase. A nil sink or invalid configuration is a
// construction failure; the tracker cannot exist without them.
func NewTracker(cfg Config, sink PoseSink, logger golog.Logger, opts ...Option) (*Tracker, error) {
	if sink == nil {
		return nil, errors.New("fusion tracker requires a pose sink")
	}
	if err := cfg.Validate("fusion"); err != nil {
		return nil, err
	}
	t := &Tracker{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.calib = newCalibration(cfg, t.clock)
	t.state = StateAcquiringCameraPose
	return t, nil
}

// State returns the current lifecycle phase.
func (t *Tracker) State() State { return t.state }

// LastOrientation returns the most recent orientation report seen, if any.
func (t *Tracker) LastOrientation() (OrientationReport, bool) {
	return t.lastOrientation, t.haveLastOrientation
}

// CameraToRoom returns the calibrated camera-to-room transform once the
// tracker is running.
func (t *Tracker) CameraToRoom() (spatialmath.Pose, bool) {
	if t.state != StateRunning {
		return spatialmath.Pose{}, false
	}
	return t.running.cameraToRoom, true
}

// HandleOrientation is the IMU report callback.
func (t *Tracker) HandleOrientation(report OrientationReport) {
	report.Rotation = spatialmath.Normalize(report.Rotation)
	t.lastOrientation = report
	t.haveLastOrientation = true

	if t.state != StateRunning {
		return
	}

	corrected, err := t.running.handleIMUReport(report.Time, report.Rotation)
	if err != nil {
		t.logger.Warnw("imu correction rejected", "error", err)
		return
	}
	if !corrected {
		t.logger.Debugw("imu report skipped, non-positive elapsed time")
		return
	}
	t.emit(report.Time, ChannelFused, t.running.currentPose())
}

// HandlePose is the video tracker report callback.
func (t *Tracker) HandlePose(report PoseReport) {
	report.Rotation = spatialmath.Normalize(report.Rotation)
	t.lastPoseReport = report

	if t.state == StateAcquiringCameraPose {
		t.handlePoseDuringAcquisition(report)
		return
	}

	corrected, err := t.running.handlePoseReport(report.Time, report)
	if err != nil {
		t.logger.Warnw("video correction rejected", "error", err)
	} else if corrected {
		t.emit(report.Time, ChannelFused, t.running.currentPose())
	} else {
		t.logger.Debugw("video report skipped, non-positive elapsed time")
	}

	// Diagnostics: the raw tracker pose re-expressed in room coordinates.
	t.emit(report.Time, ChannelTransformedVideo, t.running.cameraPoseToRoom(report.Pose()))
}

func (t *Tracker) handlePoseDuringAcquisition(report PoseReport) {
	if !t.haveLastOrientation {
		// No orientation state yet, remarkably, so wait until next time.
		t.logger.Debugw("dropping video report, no orientation sample yet")
		return
	}

	if t.calib.expired(t.clock.Now()) {
		t.logger.Warnw("camera pose acquisition timed out, starting over",
			"accepted_samples", t.calib.reports)
		t.calib = newCalibration(t.cfg, t.clock)
	}

	if t.calib.movingTooFast(report.Time, t.lastOrientation.Rotation) {
		t.logger.Debugw("dropping calibration sample, device rotating too fast")
		return
	}

	t.calib.handleReport(report.Time, report, t.lastOrientation.Rotation)
	if t.calib.finished() {
		t.enterRunningState()
	}
}

// enterRunningState seeds the fusion filter from the smoothed camera-to-room
// estimate and the latest report from each sensor, then discards the
// accumulator. This is the single lifecycle transition.
func (t *Tracker) enterRunningState() {
	cameraToRoom := t.calib.cameraToRoom()
	t.logger.Infow("camera pose acquired",
		"translation", cameraToRoom.Translation,
		"samples", t.calib.reports)

	t.running = newRunningData(t.cfg, cameraToRoom, t.lastOrientation, t.lastPoseReport)
	t.calib = nil
	t.state = StateRunning
}

func (t *Tracker) emit(ts TimeValue, ch Channel, pose spatialmath.Pose) {
	if err := t.sink.SendPose(FusedPose{Time: ts, Channel: ch, Pose: pose}); err != nil {
		t.logger.Warnw("pose sink rejected output", "channel", ch, "error", err)
	}
}
