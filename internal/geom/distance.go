package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// ErrDegenerateOrientation indicates a zero-norm quaternion where a valid
// orientation was required.
var ErrDegenerateOrientation = errors.New("geom: degenerate orientation (zero-norm quaternion)")

// DistanceMode selects how orientation distance is measured.
type DistanceMode string

const (
	// DistanceAbsolute measures min(|a-b|, |a+b|) over raw components,
	// folding the double cover. Total for all finite inputs.
	DistanceAbsolute DistanceMode = "absolute"

	// DistanceGeodesic measures the rotation angle 2*acos(|<a,b>|) between
	// unit quaternions. Zero-norm inputs are rejected.
	DistanceGeodesic DistanceMode = "geodesic"
)

// ParseDistanceMode validates a configured mode name.
func ParseDistanceMode(s string) (DistanceMode, error) {
	switch DistanceMode(s) {
	case DistanceAbsolute, DistanceGeodesic:
		return DistanceMode(s), nil
	}
	return "", fmt.Errorf("geom: unknown orientation distance mode %q", s)
}

// OrientationDistance returns the distance between two orientations under
// the given mode. Antipodal quaternions encode the same rotation and are at
// distance zero in both modes. Geodesic distance fails with
// ErrDegenerateOrientation if either operand has zero norm; it is never
// NaN for finite inputs.
func OrientationDistance(a, b quat.Number, mode DistanceMode) (float64, error) {
	switch mode {
	case DistanceAbsolute:
		return math.Min(quat.Abs(quat.Sub(a, b)), quat.Abs(quat.Add(a, b))), nil
	case DistanceGeodesic:
		ua, err := Normalize(a)
		if err != nil {
			return 0, err
		}
		ub, err := Normalize(b)
		if err != nil {
			return 0, err
		}
		c := math.Abs(Dot(ua, ub))
		if c > 1 {
			c = 1
		}
		return 2 * math.Acos(c), nil
	}
	return 0, fmt.Errorf("geom: unknown orientation distance mode %q", mode)
}
