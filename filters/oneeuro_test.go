package filters

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/roomscale/videoimu/spatialmath"
)

func TestVectorFilterSeeding(t *testing.T) {
	f := NewVectorFilter(DefaultParams())
	first := r3.Vector{X: 3, Y: -1, Z: 0.5}
	test.That(t, f.Filter(1, first), test.ShouldResemble, first)
	test.That(t, f.Value(), test.ShouldResemble, first)
}

func TestVectorFilterConstantSignal(t *testing.T) {
	f := NewVectorFilter(DefaultParams())
	target := r3.Vector{X: 1}
	var out r3.Vector
	for i := 0; i < 20; i++ {
		out = f.Filter(0.01, target)
	}
	test.That(t, out.Sub(target).Norm(), test.ShouldAlmostEqual, 0, 1e-12)
}

func TestVectorFilterSmoothsNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	f := NewVectorFilter(DefaultParams())
	target := r3.Vector{X: 2, Y: 2, Z: 2}

	var rawErr, smoothErr float64
	n := 500
	for i := 0; i < n; i++ {
		noisy := target.Add(r3.Vector{
			X: rng.NormFloat64() * 0.1,
			Y: rng.NormFloat64() * 0.1,
			Z: rng.NormFloat64() * 0.1,
		})
		out := f.Filter(0.01, noisy)
		if i > n/2 {
			rawErr += noisy.Sub(target).Norm()
			smoothErr += out.Sub(target).Norm()
		}
	}
	test.That(t, smoothErr, test.ShouldBeLessThan, rawErr)
}

func TestVectorFilterTracksFastSignal(t *testing.T) {
	// A fast-moving ramp should be followed with little lag thanks to the
	// adaptive cutoff.
	f := NewVectorFilter(DefaultParams())
	dt := 0.01
	var out r3.Vector
	var x float64
	for i := 0; i < 200; i++ {
		x = 10 * float64(i) * dt // 10 units/s ramp
		out = f.Filter(dt, r3.Vector{X: x})
	}
	test.That(t, math.Abs(out.X-x), test.ShouldBeLessThan, 1.0)
}

func TestQuaternionFilterSeeding(t *testing.T) {
	f := NewQuaternionFilter(DefaultParams())
	first := spatialmath.RotVecToQuat(r3.Vector{Z: 0.4})
	out := f.Filter(1, first)
	test.That(t, spatialmath.QuaternionAlmostEqual(out, first, 1e-9), test.ShouldBeTrue)
}

func TestQuaternionFilterConvergesAndStaysUnit(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	f := NewQuaternionFilter(DefaultParams())
	target := spatialmath.RotVecToQuat(r3.Vector{X: 0.2, Y: -0.1, Z: 0.5})

	var out quat.Number
	for i := 0; i < 300; i++ {
		noise := spatialmath.RotVecToQuat(r3.Vector{
			X: rng.NormFloat64() * 0.02,
			Y: rng.NormFloat64() * 0.02,
			Z: rng.NormFloat64() * 0.02,
		})
		out = f.Filter(0.01, quat.Mul(noise, target))
		test.That(t, quat.Abs(out), test.ShouldAlmostEqual, 1, 1e-9)
	}
	test.That(t, spatialmath.AngleBetween(out, target), test.ShouldBeLessThan, 0.05)
}
