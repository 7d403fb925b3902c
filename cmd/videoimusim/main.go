// Package main runs the video-IMU fusion pipeline against a synthetic pair
// of sensors: a camera watching a device that sways on a circular path. It
// is a workbench for tuning, not a benchmark.
package main

import (
	"context"
	"flag"
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	goutils "go.viam.com/utils"

	"github.com/roomscale/videoimu/fusion"
	"github.com/roomscale/videoimu/spatialmath"
)

var logger = golog.NewDevelopmentLogger("videoimusim")

func main() {
	goutils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	duration := flags.Float64("duration", 5, "simulated seconds to run after calibration")
	imuHz := flags.Float64("imu-hz", 100, "orientation report rate")
	videoHz := flags.Float64("video-hz", 10, "pose report rate")
	radius := flags.Float64("radius", 0.2, "radius of the simulated sway, units")
	cameraX := flags.Float64("camera-x", 1.5, "camera position in the room, x")
	cameraY := flags.Float64("camera-y", 0, "camera position in the room, y")
	cameraZ := flags.Float64("camera-z", 0.5, "camera position in the room, z")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	cameraInRoom := spatialmath.NewPose(
		r3.Vector{X: *cameraX, Y: *cameraY, Z: *cameraZ},
		spatialmath.RotVecToQuat(r3.Vector{Z: math.Pi}),
	)

	var fusedCount, videoCount int
	var lastFused spatialmath.Pose
	sink := fusion.PoseSinkFunc(func(p fusion.FusedPose) error {
		switch p.Channel {
		case fusion.ChannelFused:
			fusedCount++
			lastFused = p.Pose
		case fusion.ChannelTransformedVideo:
			videoCount++
		}
		return nil
	})

	tracker, err := fusion.NewTracker(fusion.DefaultConfig(), sink, logger)
	if err != nil {
		return err
	}

	// devicePose returns the simulated ground truth in the room frame.
	devicePose := func(t float64) spatialmath.Pose {
		sway := r3.Vector{
			X: *radius * math.Cos(t),
			Y: *radius * math.Sin(t),
			Z: 1.7, // eye height
		}
		yaw := 0.2 * math.Sin(t/2)
		return spatialmath.NewPose(sway, spatialmath.RotVecToQuat(r3.Vector{Z: yaw}))
	}

	imuStep := 1 / *imuHz
	videoStep := 1 / *videoHz
	nextIMU, nextVideo := 0.0, 0.0
	start := 1000.0 // arbitrary synthetic epoch, seconds

	ts := func(t float64) fusion.TimeValue {
		whole := math.Floor(start + t)
		return fusion.TimeValue{
			Seconds:      int64(whole),
			Microseconds: int32(math.Round((start + t - whole) * 1e6)),
		}
	}

	// Hold still until calibrated, then run the sway for the requested time.
	var now float64
	for tracker.State() != fusion.StateRunning {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		still := devicePose(0)
		if nextIMU <= nextVideo {
			now = nextIMU
			tracker.HandleOrientation(fusion.OrientationReport{Time: ts(now), Rotation: still.Rotation})
			nextIMU += imuStep
		} else {
			now = nextVideo
			view := cameraInRoom.Invert().Compose(still)
			tracker.HandlePose(fusion.PoseReport{
				Time:        ts(now),
				Translation: view.Translation,
				Rotation:    view.Rotation,
			})
			nextVideo += videoStep
		}
	}
	logger.Infow("calibrated", "simulated_seconds", now)

	end := now + *duration
	var truth spatialmath.Pose
	for now < end {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if nextIMU <= nextVideo {
			now = nextIMU
			truth = devicePose(now)
			tracker.HandleOrientation(fusion.OrientationReport{Time: ts(now), Rotation: truth.Rotation})
			nextIMU += imuStep
		} else {
			now = nextVideo
			truth = devicePose(now)
			view := cameraInRoom.Invert().Compose(truth)
			tracker.HandlePose(fusion.PoseReport{
				Time:        ts(now),
				Translation: view.Translation,
				Rotation:    view.Rotation,
			})
			nextVideo += videoStep
		}
	}

	// Calibration pins the room origin to the device's pose at acquisition
	// time, so ground truth is measured relative to that.
	expected := devicePose(0).Invert().Compose(truth)
	posErr := lastFused.Translation.Sub(expected.Translation).Norm()
	oriErr := spatialmath.AngleBetween(lastFused.Rotation, expected.Rotation)
	logger.Infow("simulation complete",
		"fused_emissions", fusedCount,
		"video_emissions", videoCount,
		"final_position_error", posErr,
		"final_orientation_error_rad", oriErr,
	)
	return nil
}
