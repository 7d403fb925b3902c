package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform in 3D Euclidean space, a rotation about the
// origin followed by a translation. It doubles as the pose of a rigid body:
// the transform taking body coordinates to the parent frame.
type Pose struct {
	Translation r3.Vector
	Rotation    quat.Number
}

// NewPose returns a Pose with the given translation and rotation. The
// rotation is normalized.
func NewPose(t r3.Vector, r quat.Number) Pose {
	return Pose{Translation: t, Rotation: Normalize(r)}
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return Pose{Rotation: quat.Number{Real: 1}}
}

// NewPoseFromOrientation returns a pure rotation with no translation.
func NewPoseFromOrientation(r quat.Number) Pose {
	return Pose{Rotation: Normalize(r)}
}

// Compose returns the transform equivalent to applying o first and then p,
// matching the composition order of homogeneous transform matrices (p·o).
func (p Pose) Compose(o Pose) Pose {
	return Pose{
		Translation: p.Translation.Add(Rotate(p.Rotation, o.Translation)),
		Rotation:    Normalize(quat.Mul(p.Rotation, o.Rotation)),
	}
}

// Invert returns the inverse transform, such that p.Compose(p.Invert()) is
// the identity.
func (p Pose) Invert() Pose {
	inv := quat.Conj(p.Rotation)
	return Pose{
		Translation: Rotate(inv, p.Translation.Mul(-1)),
		Rotation:    inv,
	}
}

// TransformPoint applies the transform to a point.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	return Rotate(p.Rotation, pt).Add(p.Translation)
}

// PoseAlmostEqual tests near-equality of two transforms, with tol bounding
// both the translation distance and the rotation angle in radians.
func PoseAlmostEqual(a, b Pose, tol float64) bool {
	return a.Translation.Sub(b.Translation).Norm() < tol &&
		QuaternionAlmostEqual(a.Rotation, b.Rotation, tol)
}
