package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestQuatConversions(t *testing.T) {
	for _, tc := range []struct {
		TestName string
		RotVec   r3.Vector
	}{
		{"zero", r3.Vector{}},
		{"tiny roll", r3.Vector{X: 1e-10}},
		{"roll", r3.Vector{X: 0.5}},
		{"pitch", r3.Vector{Y: -1.2}},
		{"yaw", r3.Vector{Z: math.Pi / 2}},
		{"mixed", r3.Vector{X: 0.3, Y: -0.4, Z: 0.8}},
	} {
		t.Run(tc.TestName, func(t *testing.T) {
			q := RotVecToQuat(tc.RotVec)
			test.That(t, quat.Abs(q), test.ShouldAlmostEqual, 1, 1e-9)
			back := QuatToRotVec(q)
			test.That(t, back.X, test.ShouldAlmostEqual, tc.RotVec.X, 1e-8)
			test.That(t, back.Y, test.ShouldAlmostEqual, tc.RotVec.Y, 1e-8)
			test.That(t, back.Z, test.ShouldAlmostEqual, tc.RotVec.Z, 1e-8)
		})
	}
}

func TestQuatToRotVecFlippedCover(t *testing.T) {
	q := RotVecToQuat(r3.Vector{Z: 1})
	flipped := Flip(q)
	test.That(t, QuaternionAlmostEqual(q, flipped, 1e-9), test.ShouldBeTrue)
}

func TestRotate(t *testing.T) {
	quarterTurn := RotVecToQuat(r3.Vector{Z: math.Pi / 2})
	rotated := Rotate(quarterTurn, r3.Vector{X: 1})
	test.That(t, rotated.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, rotated.Y, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, rotated.Z, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestSlerp(t *testing.T) {
	q1 := quat.Number{Real: 1}
	q2 := RotVecToQuat(r3.Vector{Z: math.Pi / 2})

	test.That(t, QuaternionAlmostEqual(Slerp(q1, q2, 0), q1, 1e-9), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(Slerp(q1, q2, 1), q2, 1e-9), test.ShouldBeTrue)

	mid := Slerp(q1, q2, 0.5)
	test.That(t, AngleBetween(q1, mid), test.ShouldAlmostEqual, math.Pi/4, 1e-9)
	test.That(t, AngleBetween(mid, q2), test.ShouldAlmostEqual, math.Pi/4, 1e-9)

	// Interpolation takes the short way around the double cover.
	shortest := Slerp(q1, Flip(q2), 0.5)
	test.That(t, AngleBetween(q1, shortest), test.ShouldAlmostEqual, math.Pi/4, 1e-9)
}

func TestPoseComposeInvert(t *testing.T) {
	a := NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, RotVecToQuat(r3.Vector{Z: math.Pi / 2}))
	b := NewPose(r3.Vector{X: -2, Z: 0.5}, RotVecToQuat(r3.Vector{X: 0.3}))

	t.Run("identity", func(t *testing.T) {
		test.That(t, PoseAlmostEqual(a.Compose(NewZeroPose()), a, 1e-9), test.ShouldBeTrue)
		test.That(t, PoseAlmostEqual(NewZeroPose().Compose(a), a, 1e-9), test.ShouldBeTrue)
	})

	t.Run("inverse", func(t *testing.T) {
		test.That(t, PoseAlmostEqual(a.Compose(a.Invert()), NewZeroPose(), 1e-9), test.ShouldBeTrue)
		test.That(t, PoseAlmostEqual(a.Invert().Compose(a), NewZeroPose(), 1e-9), test.ShouldBeTrue)
	})

	t.Run("point transform matches composition", func(t *testing.T) {
		pt := r3.Vector{X: 0.1, Y: -0.2, Z: 0.3}
		viaCompose := a.Compose(b).TransformPoint(pt)
		viaSteps := a.TransformPoint(b.TransformPoint(pt))
		test.That(t, viaCompose.Sub(viaSteps).Norm(), test.ShouldAlmostEqual, 0, 1e-9)
	})
}

func TestAngularVelocity(t *testing.T) {
	diff := RotVecToQuat(r3.Vector{Z: 0.2})
	av := QuatToAngVel(diff, 0.1)
	test.That(t, av.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, av.Y, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, av.Z, test.ShouldAlmostEqual, 2, 1e-9)
	test.That(t, av.Norm(), test.ShouldAlmostEqual, 2, 1e-9)
}
