package eval

import (
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"
)

// within reports v ∈ (iv.Min, iv.Max]: exclusive below, inclusive above.
// Every box test in this package shares the convention.
func within(v float64, iv r1.Interval) bool {
	return v > iv.Min && v <= iv.Max
}

// Workspace is the axis-aligned volume the robot must stay inside.
type Workspace struct {
	X r1.Interval
	Y r1.Interval
	Z r1.Interval
}

// Contains reports whether p passes the interval test on all three axes.
func (w Workspace) Contains(p r3.Vec) bool {
	return within(p.X, w.X) && within(p.Y, w.Y) && within(p.Z, w.Z)
}

// GroundLimit is the minimum clearance above the ground plane.
type GroundLimit struct {
	MinHeight float64
}

// TooClose reports whether an up-positive altitude is below the floor.
func (g GroundLimit) TooClose(altitude float64) bool {
	return altitude < g.MinHeight
}
