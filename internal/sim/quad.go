package sim

import (
	"context"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/flightline/aerogym/internal/env"
)

// Arm powers the motors. The first ArmTimeouts attempts time out so retry
// handling can be exercised; afterwards arming acknowledges instantly.
func (s *Simulator) Arm(context.Context) error {
	s.armAttempts++
	if s.armAttempts <= s.cfg.ArmTimeouts {
		return env.ErrActuationTimeout
	}
	s.armed = true
	s.logger.Debug("armed")
	return nil
}

// Disarm cuts the motors. A flying vehicle settles straight to the ground.
func (s *Simulator) Disarm(context.Context) error {
	s.armed = false
	if s.flying {
		s.flying = false
		s.position.Z = 0
		s.velocity = r3.Vec{}
		s.yawRate = 0
	}
	s.logger.Debug("disarmed")
	return nil
}

// Takeoff climbs to the requested altitude. Fails with ErrNotArmed when
// the vehicle is disarmed; the first TakeoffTimeouts attempts time out.
func (s *Simulator) Takeoff(_ context.Context, altitude float64) error {
	if !s.armed {
		return ErrNotArmed
	}
	s.takeoffAttempts++
	if s.takeoffAttempts <= s.cfg.TakeoffTimeouts {
		return env.ErrActuationTimeout
	}
	s.flying = true
	s.position.Z = altitude
	s.renderFrame()
	s.logger.Debug("takeoff", zap.Float64("altitude", altitude))
	return nil
}

// Land descends to the ground and stops, keeping the vehicle armed.
func (s *Simulator) Land(context.Context) error {
	s.flying = false
	s.position.Z = 0
	s.velocity = r3.Vec{}
	s.yawRate = 0
	s.logger.Debug("landed")
	return nil
}

// SendVelocity integrates one StepDt of motion under the commanded
// body-frame velocity. Commands are dropped while the world is paused or
// the vehicle is not flying.
func (s *Simulator) SendVelocity(_ context.Context, a env.Action) error {
	if s.paused {
		s.logger.Debug("velocity command while paused dropped")
		return nil
	}
	if !s.flying {
		s.logger.Debug("velocity command while grounded dropped")
		return nil
	}

	dt := s.cfg.StepDt
	s.yawRate = a.YawRate
	s.yaw = wrapAngle(s.yaw + a.YawRate*dt)

	sin, cos := math.Sin(s.yaw), math.Cos(s.yaw)
	world := r3.Vec{
		X: a.VX*cos - a.VY*sin,
		Y: a.VX*sin + a.VY*cos,
		Z: a.VZ,
	}

	next := r3.Add(s.position, r3.Scale(dt, world))
	if s.cfg.NoiseStd > 0 {
		next = r3.Add(next, r3.Vec{
			X: s.rng.NormFloat64() * s.cfg.NoiseStd,
			Y: s.rng.NormFloat64() * s.cfg.NoiseStd,
			Z: s.rng.NormFloat64() * s.cfg.NoiseStd,
		})
	}
	if next.Z < 0 {
		next.Z = 0
	}

	if hit, ok := s.contact(next); ok {
		// Blocked at the surface; severity records the impact speed.
		s.severity = r3.Norm(world)
		s.velocity = r3.Vec{}
		s.logger.Debug("contact",
			zap.Float64("severity", s.severity),
			zap.Float64("x", hit.X), zap.Float64("y", hit.Y), zap.Float64("z", hit.Z))
	} else {
		s.severity = 0
		s.velocity = world
		s.position = next
	}

	s.clock += dt
	s.renderFrame()
	return nil
}

// contact returns the first obstacle point the move would enter.
func (s *Simulator) contact(p r3.Vec) (r3.Vec, bool) {
	for _, b := range s.cfg.Obstacles {
		if b.Contains(p) {
			return p, true
		}
	}
	return r3.Vec{}, false
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
