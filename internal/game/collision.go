package game

import (
	"math"

	"soccer-arena/internal/physics"
	"soccer-arena/internal/world"
)

// ballSolid reports whether the ball interacts with this player right now.
// Spectators never touch the ball. A phasing player is ghosted to the ball
// too unless close enough to be contesting it.
func (e *Engine) ballSolid(p *Player) bool {
	if p.Spectating() {
		return false
	}
	if p.Effects.Phasing {
		dx := e.ball.X - p.X
		dy := e.ball.Y - p.Y
		return dx*dx+dy*dy <= PhaseContactRange*PhaseContactRange
	}
	return true
}

// playerSolid reports whether a player takes part in player-player contact.
func (e *Engine) playerSolid(p *Player) bool {
	if p.Spectating() {
		return false
	}
	if p.Effects.Phasing {
		dx := e.ball.X - p.X
		dy := e.ball.Y - p.Y
		return dx*dx+dy*dy <= PhaseContactRange*PhaseContactRange
	}
	return true
}

// resolvePlayerPlayer separates every overlapping solid pair symmetrically
// and applies an elastic impulse along the contact normal. Iteration follows
// join order so the resolution is deterministic.
func (e *Engine) resolvePlayerPlayer() {
	const minDist = physics.PlayerRadius * 2

	for i := 0; i < len(e.order); i++ {
		a := e.players[e.order[i]]
		if !e.playerSolid(a) {
			continue
		}
		for j := i + 1; j < len(e.order); j++ {
			b := e.players[e.order[j]]
			if !e.playerSolid(b) {
				continue
			}

			dx := b.X - a.X
			dy := b.Y - a.Y
			distSq := dx*dx + dy*dy
			if distSq >= minDist*minDist {
				continue
			}

			dist := math.Sqrt(distSq)
			var nx, ny float64
			if dist > 0 {
				nx = dx / dist
				ny = dy / dist
			} else {
				nx, ny = 1, 0 // coincident centres, arbitrary fixed normal
			}

			half := (minDist - dist) / 2
			a.X -= nx * half
			a.Y -= ny * half
			b.X += nx * half
			b.Y += ny * half

			a.VX -= nx * PlayerPushImpulse
			a.VY -= ny * PlayerPushImpulse
			b.VX += nx * PlayerPushImpulse
			b.VY += ny * PlayerPushImpulse
		}
	}
}

// applyBallKnockback shoves every player the moving ball overlaps, before
// ball integration. A slow ball pushes nobody; a power-shot window overrides
// only the impulse magnitude, not the minimum-speed gate.
func (e *Engine) applyBallKnockback() {
	const contactDist = physics.BallRadius + physics.PlayerRadius

	speed := e.ball.Speed()
	if speed <= KnockbackMinSpeed {
		return
	}
	powerShot := e.now < e.ball.PowerShotUntil

	for _, id := range e.order {
		p := e.players[id]
		if !e.ballSolid(p) {
			continue
		}
		dx := p.X - e.ball.X
		dy := p.Y - e.ball.Y
		distSq := dx*dx + dy*dy
		if distSq >= contactDist*contactDist {
			continue
		}

		dist := math.Sqrt(distSq)
		var nx, ny float64
		if dist > 0 {
			nx = dx / dist
			ny = dy / dist
		} else {
			nx, ny = 1, 0
		}

		knock := e.ball.PowerShotKnockback
		if !powerShot {
			knock = speed * KnockbackScale
			if knock > KnockbackMax {
				knock = KnockbackMax
			}
		}
		p.VX += nx * knock
		p.VY += ny * knock
	}
}

// resolveBallPlayers handles ball-player contact for at most one player per
// tick, in join order. On contact the ball reflects off the player with the
// contact restitution, gets pushed fully out of overlap, and records the
// touch.
func (e *Engine) resolveBallPlayers() {
	const contactDist = physics.BallRadius + physics.PlayerRadius

	for _, id := range e.order {
		p := e.players[id]
		if !e.ballSolid(p) {
			continue
		}

		dx := e.ball.X - p.X
		dy := e.ball.Y - p.Y
		distSq := dx*dx + dy*dy
		if distSq >= contactDist*contactDist {
			continue
		}

		dist := math.Sqrt(distSq)
		var nx, ny float64
		if dist > 0 {
			nx = dx / dist
			ny = dy / dist
		} else {
			nx, ny = 1, 0
		}

		retention := BallPlayerRestitution
		if e.now < e.ball.PowerShotUntil {
			retention = e.ball.PowerShotRetention
		}

		// Reflect the velocity about the contact normal, keeping only the
		// configured fraction of the speed.
		dot := e.ball.VX*nx + e.ball.VY*ny
		if dot < 0 {
			e.ball.VX -= 2 * dot * nx
			e.ball.VY -= 2 * dot * ny
		}
		e.ball.VX *= retention
		e.ball.VY *= retention
		e.ball.Moving = e.ball.Speed() > physics.BallStopSpeed

		// Push the ball clear of the player with one pixel of slack.
		pushout := contactDist - dist + 1
		e.ball.X += nx * pushout
		e.ball.Y += ny * pushout
		physics.ClampBall(&e.ball.Body)

		e.recordTouch(p)
		return
	}
}

// recordTouch updates the touch chain and credits an interception when
// possession crosses teams.
func (e *Engine) recordTouch(p *Player) {
	prevID := e.ball.LastTouchID
	e.ball.Touch(p.ID, e.now)

	if prevID == "" || prevID == p.ID {
		return
	}
	prev, ok := e.players[prevID]
	if !ok || !prev.Team.OnPitch() || prev.Team == p.Team {
		return
	}

	p.MatchStats.Interceptions++
	e.emitter.ToRoom(RoomSoccer, EventBallIntercepted, InterceptedEvent{
		PlayerID:   p.ID,
		PreviousID: prevID,
	})
}

// resolveBallRects bounces the ball off static colliders. At most one
// rectangle is resolved per tick; with wall thickness well above the per-tick
// travel distance a second simultaneous contact cannot occur.
func (e *Engine) resolveBallRects() {
	for _, r := range e.world.Colliders {
		cx, cy := r.ClosestPoint(e.ball.X, e.ball.Y)
		dx := e.ball.X - cx
		dy := e.ball.Y - cy
		distSq := dx*dx + dy*dy
		if distSq >= physics.BallRadius*physics.BallRadius {
			continue
		}

		dist := math.Sqrt(distSq)
		var nx, ny float64
		if dist > 0 {
			nx = dx / dist
			ny = dy / dist
		} else {
			// Centre inside the rectangle: push out along the shortest axis.
			nx, ny = shortestAxisNormal(r, e.ball.X, e.ball.Y)
		}

		dot := e.ball.VX*nx + e.ball.VY*ny
		if dot < 0 {
			e.ball.VX -= 2 * dot * nx
			e.ball.VY -= 2 * dot * ny
		}
		e.ball.VX *= physics.BallBounce
		e.ball.VY *= physics.BallBounce
		e.ball.Moving = e.ball.Speed() > physics.BallStopSpeed

		pushout := physics.BallRadius - dist + 1
		e.ball.X += nx * pushout
		e.ball.Y += ny * pushout
		return
	}
}

// resolveSpectatorRects keeps off-pitch players out of the static geometry.
// On-pitch players are confined by the pitch bounds alone; spectators roam
// the full scene and need the collider pushout.
func (e *Engine) resolveSpectatorRects(p *Player) {
	for _, r := range e.world.Colliders {
		cx, cy := r.ClosestPoint(p.X, p.Y)
		dx := p.X - cx
		dy := p.Y - cy
		distSq := dx*dx + dy*dy
		if distSq >= physics.PlayerRadius*physics.PlayerRadius {
			continue
		}

		dist := math.Sqrt(distSq)
		if dist > 0 {
			nx := dx / dist
			ny := dy / dist
			pushout := physics.PlayerRadius - dist + 1
			p.X += nx * pushout
			p.Y += ny * pushout
		} else {
			nx, ny := shortestAxisNormal(r, p.X, p.Y)
			p.X += nx * physics.PlayerRadius
			p.Y += ny * physics.PlayerRadius
		}
		p.VX = 0
		p.VY = 0
	}
}

// shortestAxisNormal returns the outward normal of the rectangle face nearest
// to an interior point.
func shortestAxisNormal(r world.Rect, x, y float64) (nx, ny float64) {
	left := x - r.X
	right := r.X + r.Width - x
	top := y - r.Y
	bottom := r.Y + r.Height - y

	min := left
	nx, ny = -1, 0
	if right < min {
		min = right
		nx, ny = 1, 0
	}
	if top < min {
		min = top
		nx, ny = 0, -1
	}
	if bottom < min {
		nx, ny = 0, 1
	}
	return nx, ny
}

// checkGoal tests the ball against every goal zone. A ball inside a zone
// scores for the zone owner's opponent. While a reset is pending, further
// zone presence is ignored so one goal cannot double-count.
func (e *Engine) checkGoal() {
	if e.ball.resetPending {
		return
	}
	zone, ok := e.world.GoalAt(e.ball.X, e.ball.Y)
	if !ok {
		return
	}
	e.handleGoal(zone)
}
