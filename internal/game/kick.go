package game

import (
	"math"

	"soccer-arena/internal/physics"
)

// KickMaxBasePower bounds the client-supplied base power. Anything above is
// clamped rather than rejected so a slightly out-of-date client still plays.
const KickMaxBasePower = 1200.0

// KickCommand is a client kick request as it arrives off the wire.
type KickCommand struct {
	PlayerID    string
	Angle       float64
	BasePower   float64
	LocalKickID string
	ClientTick  int64 // client sim ms, 0 when absent
}

// DribbleCommand is a client dribble request.
type DribbleCommand struct {
	PlayerID string
}

// applyKick validates and applies one kick at the head of the step. Invalid
// kicks are dropped silently; the client's prediction snaps back on the next
// snapshot.
func (e *Engine) applyKick(cmd KickCommand) {
	p, ok := e.players[cmd.PlayerID]
	if !ok || p.Spectating() {
		return
	}

	cooldown := e.cfg.KickCooldown.Milliseconds()
	if e.now-p.LastKickAt < cooldown {
		return
	}

	maxRange := KickRange
	if p.Metavision(e.now) {
		maxRange = KickRangeMetavision
	}
	if !e.withinKickRange(p, cmd.ClientTick, maxRange) {
		return
	}

	power := cmd.BasePower
	if power < 0 {
		power = 0
	}
	if power > KickMaxBasePower {
		power = KickMaxBasePower
	}

	kp := physics.KickPowerMultiplier(p.EffectiveKickPower(e.now))
	vx, vy := physics.KickVelocity(cmd.Angle, power, kp, p.Metavision(e.now))
	e.ball.SetVelocity(vx, vy)
	e.ball.Touch(p.ID, e.now)
	e.ball.LastKickAt = e.now
	p.LastKickAt = e.now

	p.VX -= math.Cos(cmd.Angle) * KickRecoil
	p.VY -= math.Sin(cmd.Angle) * KickRecoil

	e.emitter.ToRoom(RoomSoccer, EventBallKicked, KickedEvent{
		KickerID:     p.ID,
		KickSequence: e.ball.KickSequence,
		LocalKickID:  cmd.LocalKickID,
	})
	e.emitBallState()
	e.log.Record(LogKick, e.serverTick, p.ID, kickLogPayload{
		Angle:     cmd.Angle,
		BasePower: power,
		Sequence:  e.ball.KickSequence,
	})
	e.metrics.KicksAccepted.Inc()
}

// withinKickRange checks the kicker-to-ball distance, rewinding both to the
// client's timestamp when it falls inside the lag compensation window. Out of
// window the present positions are used, which only tightens the check.
func (e *Engine) withinKickRange(p *Player, clientTick int64, maxRange float64) bool {
	px, py := p.X, p.Y
	bx, by := e.ball.X, e.ball.Y

	if clientTick > 0 {
		age := e.now - clientTick
		if age >= 0 && age <= e.cfg.LagCompWindow.Milliseconds() {
			maxAge := e.cfg.LagCompWindow.Milliseconds()
			if s, ok := p.History.At(clientTick, maxAge); ok {
				px, py = s.X, s.Y
			}
			if s, ok := e.ballHistory.At(clientTick, maxAge); ok {
				bx, by = s.X, s.Y
			}
		}
	}

	dx := bx - px
	dy := by - py
	return dx*dx+dy*dy <= maxRange*maxRange
}

// applyDribble validates and applies a dribble: a gentle possession touch
// that nudges the ball straight away from the player.
func (e *Engine) applyDribble(cmd DribbleCommand) {
	p, ok := e.players[cmd.PlayerID]
	if !ok || p.Spectating() {
		return
	}

	// Locked out briefly after any kick so a dribble cannot cancel one.
	if e.now-e.ball.LastKickAt < e.cfg.DribbleLockout.Milliseconds() {
		return
	}

	dx := e.ball.X - p.X
	dy := e.ball.Y - p.Y
	distSq := dx*dx + dy*dy
	if distSq > DribbleRange*DribbleRange || distSq == 0 {
		return
	}

	dist := math.Sqrt(distSq)
	e.ball.SetVelocity(dx/dist*DribbleSpeed, dy/dist*DribbleSpeed)
	e.ball.Touch(p.ID, e.now)
	e.log.Record(LogDribble, e.serverTick, p.ID, nil)
}

type kickLogPayload struct {
	Angle     float64 `json:"angle"`
	BasePower float64 `json:"basePower"`
	Sequence  uint32  `json:"sequence"`
}
