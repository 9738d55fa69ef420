// Package physics is the deterministic kinematic kernel shared between
// the authoritative server loop and the in-browser prediction code.
//
// IMPORTANT: both endpoints integrate from identical inputs and must agree
// bit-for-bit. Every function here uses float64, performs its operations in
// the documented order, and touches no state outside its arguments. Do not
// reorder operations, introduce randomness, or read the clock.
package physics

import "math"

// Authoritative constants. The client bundles the same values; changing any
// of them is a protocol break.
const (
	PitchWidth  = 3520.0
	PitchHeight = 1600.0

	BallRadius   = 30.0
	PlayerRadius = 30.0

	BallDrag   = 1.0 // exponential decay per second
	PlayerDrag = 4.0

	PlayerAccel    = 1600.0 // px/s^2 before stat multipliers
	PlayerMaxSpeed = 600.0  // px/s before stat multipliers

	BallBounce = 0.7 // wall restitution

	Dt = 0.016 // fixed timestep, seconds

	BallStopSpeed = 10.0 // below this the ball is considered at rest
)

// Input is one sampled frame of directional intent.
type Input struct {
	Up       bool   `json:"up"`
	Down     bool   `json:"down"`
	Left     bool   `json:"left"`
	Right    bool   `json:"right"`
	Sequence uint32 `json:"sequence"`
}

// Body is a point mass with a radius, the common shape of ball and player
// kinematic state.
type Body struct {
	X, Y   float64
	VX, VY float64
}

// Speed returns the magnitude of the body's velocity.
func (b Body) Speed() float64 {
	return math.Sqrt(b.VX*b.VX + b.VY*b.VY)
}

// IntegrateBall advances ball state by dt seconds: exponential drag, then
// position, then the wall clamp. Clamping order is fixed (left, right, top,
// bottom) and the reflected component is forced to point inward so repeated
// clamps cannot re-energise the ball.
func IntegrateBall(b *Body, dt float64) {
	drag := math.Exp(-BallDrag * dt)
	b.VX *= drag
	b.VY *= drag

	b.X += b.VX * dt
	b.Y += b.VY * dt

	ClampBall(b)
}

// ClampBall confines the ball centre to the pitch interior, reflecting
// velocity with wall restitution on contact.
func ClampBall(b *Body) {
	if b.X < BallRadius {
		b.X = BallRadius
		b.VX = math.Abs(b.VX) * BallBounce
	}
	if b.X > PitchWidth-BallRadius {
		b.X = PitchWidth - BallRadius
		b.VX = -math.Abs(b.VX) * BallBounce
	}
	if b.Y < BallRadius {
		b.Y = BallRadius
		b.VY = math.Abs(b.VY) * BallBounce
	}
	if b.Y > PitchHeight-BallRadius {
		b.Y = PitchHeight - BallRadius
		b.VY = -math.Abs(b.VY) * BallBounce
	}
}

// IntegratePlayer advances player state by dt seconds under the given input.
// Order: acceleration from input, exponential drag, speed cap, position,
// bounds clamp (zeroing the clamped velocity component).
//
// speedMul scales both acceleration and the speed cap; dragMul scales the
// drag exponent (dribbling reduces drag, slow effects raise it).
func IntegratePlayer(p *Body, in Input, dragMul, speedMul, dt float64) {
	accel := PlayerAccel * speedMul
	maxSpeed := PlayerMaxSpeed * speedMul

	if in.Up {
		p.VY -= accel * dt
	}
	if in.Down {
		p.VY += accel * dt
	}
	if in.Left {
		p.VX -= accel * dt
	}
	if in.Right {
		p.VX += accel * dt
	}

	drag := math.Exp(-PlayerDrag * dragMul * dt)
	p.VX *= drag
	p.VY *= drag

	speed := math.Sqrt(p.VX*p.VX + p.VY*p.VY)
	if speed > maxSpeed {
		scale := maxSpeed / speed
		p.VX *= scale
		p.VY *= scale
	}

	p.X += p.VX * dt
	p.Y += p.VY * dt

	if p.X < PlayerRadius {
		p.X = PlayerRadius
		p.VX = 0
	}
	if p.X > PitchWidth-PlayerRadius {
		p.X = PitchWidth - PlayerRadius
		p.VX = 0
	}
	if p.Y < PlayerRadius {
		p.Y = PlayerRadius
		p.VY = 0
	}
	if p.Y > PitchHeight-PlayerRadius {
		p.Y = PitchHeight - PlayerRadius
		p.VY = 0
	}
}

// SpeedMultiplier converts the speed stat into a velocity multiplier.
func SpeedMultiplier(speed int) float64 {
	return 1.0 + 0.1*float64(speed)
}

// KickPowerMultiplier converts the kickPower stat into an impulse multiplier.
func KickPowerMultiplier(kickPower int) float64 {
	return 1.0 + 0.1*float64(kickPower)
}

// DragMultiplier converts the dribbling stat into a drag multiplier,
// floored at 0.5 so a maxed stat cannot eliminate drag entirely.
func DragMultiplier(dribbling int) float64 {
	m := 1.0 - 0.05*float64(dribbling)
	if m < 0.5 {
		return 0.5
	}
	return m
}

// KickVelocity computes the ball velocity produced by a kick at the given
// angle. Metavision boosts kick power by 20%.
func KickVelocity(angle, basePower, kickPowerMul float64, metavision bool) (vx, vy float64) {
	power := basePower * kickPowerMul
	if metavision {
		power *= 1.2
	}
	return math.Cos(angle) * power, math.Sin(angle) * power
}
