package eval

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/flightline/aerogym/internal/geom"
)

// AttitudeLimits bound roll and pitch before the airframe counts as
// flipped. Limits are radians and must be positive.
type AttitudeLimits struct {
	MaxRoll  float64
	MaxPitch float64
}

// Flipped decomposes q into ZYX Euler angles and tests roll and pitch
// against the bands (-max, max]. Yaw cannot flip an airframe and is
// ignored.
func (l AttitudeLimits) Flipped(q quat.Number) bool {
	e := geom.Euler(q)
	level := within(e.Roll, r1.Interval{Min: -l.MaxRoll, Max: l.MaxRoll}) &&
		within(e.Pitch, r1.Interval{Min: -l.MaxPitch, Max: l.MaxPitch})
	return !level
}
