package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// EulerAngles is a ZYX (yaw-pitch-roll) decomposition in radians.
type EulerAngles struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// Euler decomposes q into ZYX Euler angles. The pitch sine term is clamped
// to [-1, 1] so rounding near the poles cannot produce NaN.
func Euler(q quat.Number) EulerAngles {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	sinp := 2 * (w*y - z*x)
	if sinp > 1 {
		sinp = 1
	} else if sinp < -1 {
		sinp = -1
	}

	return EulerAngles{
		Roll:  math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y)),
		Pitch: math.Asin(sinp),
		Yaw:   math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z)),
	}
}

// FromEuler builds the unit quaternion for the given ZYX angles.
func FromEuler(roll, pitch, yaw float64) quat.Number {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)

	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// FromYaw builds a pure yaw rotation.
func FromYaw(yaw float64) quat.Number {
	return FromEuler(0, 0, yaw)
}
