package geom

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Identity is the no-rotation quaternion.
var Identity = quat.Number{Real: 1}

// Pose is a position and orientation in the world frame. Orientation is a
// scalar-first quaternion (w, x, y, z).
type Pose struct {
	Position    r3.Vec
	Orientation quat.Number
}

// Twist is a linear/angular velocity pair in the world frame.
type Twist struct {
	Linear  r3.Vec
	Angular r3.Vec
}

// Dot returns the four-component inner product of two quaternions.
func Dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// Normalize scales q to unit norm. Fails with ErrDegenerateOrientation for
// a zero-norm quaternion.
func Normalize(q quat.Number) (quat.Number, error) {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{}, ErrDegenerateOrientation
	}
	return quat.Scale(1/n, q), nil
}

// Rotate applies the rotation q to the vector v. q must be unit norm.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}
