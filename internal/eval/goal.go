package eval

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/flightline/aerogym/internal/geom"
)

// Goal is the desired pose together with its termination epsilon and the
// orientation distance mode used against it.
type Goal struct {
	Pose    geom.Pose
	Epsilon float64
	Mode    geom.DistanceMode
}

// PositionDistance is the Euclidean distance from p to the goal position.
func (g Goal) PositionDistance(p r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, g.Pose.Position))
}

// OrientationDiff is the orientation distance from q to the goal
// orientation under the goal's mode.
func (g Goal) OrientationDiff(q quat.Number) (float64, error) {
	return geom.OrientationDistance(q, g.Pose.Orientation, g.Mode)
}

// Reached runs the seven-component box test: every position and quaternion
// component of pose must sit within (desired-eps, desired+eps]. Note this
// is a per-component box, not a scalar distance threshold.
func (g Goal) Reached(pose geom.Pose, eps float64) bool {
	cur := poseComponents(pose)
	want := poseComponents(g.Pose)
	for i := range cur {
		if !within(cur[i], r1.Interval{Min: want[i] - eps, Max: want[i] + eps}) {
			return false
		}
	}
	return true
}

func poseComponents(p geom.Pose) [7]float64 {
	return [7]float64{
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Orientation.Real, p.Orientation.Imag, p.Orientation.Jmag, p.Orientation.Kmag,
	}
}
