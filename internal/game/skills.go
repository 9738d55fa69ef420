package game

import (
	"math"

	"soccer-arena/internal/physics"
	"soccer-arena/internal/world"
)

// SkillID identifies one of the six pickable skills.
type SkillID string

const (
	SkillSlowdown   SkillID = "slowdown"
	SkillBlink      SkillID = "blink"
	SkillMetavision SkillID = "metavision"
	SkillNinjaStep  SkillID = "ninja_step"
	SkillLurking    SkillID = "lurking_radius"
	SkillPowerShot  SkillID = "power_shot"
)

// SkillDef is the static definition of a skill: activation key, cooldown
// and effect duration. Durations of 0 mean instantaneous (blink) or
// toggled (ninja step).
type SkillDef struct {
	ID         SkillID `json:"id"`
	Key        string  `json:"key"`
	CooldownMs int64   `json:"cooldownMs"`
	DurationMs int64   `json:"durationMs"`
}

// SkillTable is the authoritative skill configuration, served to clients
// via soccer:requestSkillConfig.
var SkillTable = []SkillDef{
	{ID: SkillSlowdown, Key: "Q", CooldownMs: 30000, DurationMs: 5000},
	{ID: SkillBlink, Key: "E", CooldownMs: 12000, DurationMs: 0},
	{ID: SkillMetavision, Key: "R", CooldownMs: 20000, DurationMs: 8000},
	{ID: SkillNinjaStep, Key: "F", CooldownMs: 0, DurationMs: 0},
	{ID: SkillLurking, Key: "C", CooldownMs: 20000, DurationMs: 5000},
	{ID: SkillPowerShot, Key: "X", CooldownMs: 20000, DurationMs: 3000},
}

// SkillByID returns the definition for id.
func SkillByID(id SkillID) (SkillDef, bool) {
	for _, d := range SkillTable {
		if d.ID == id {
			return d, true
		}
	}
	return SkillDef{}, false
}

// Skill effect constants.
const (
	SlowdownFactor = 0.35

	BlinkDistance = 400.0

	LurkingRadius = 500.0
	LurkingOffset = 40.0

	PowerShotRange     = 200.0
	PowerShotSpeed     = 2000.0
	PowerShotKnockback = 300.0
	PowerShotRetention = 0.8
	PowerShotStatBonus = 5
)

// skillEffect is the tagged variant describing what a skill does to the
// simulation. The activation handler pattern-matches on the concrete type
// instead of branching on skill IDs deep in the physics code.
type skillEffect interface{ isSkillEffect() }

type speedSlowEffect struct {
	Mul      float64
	Duration int64
}

type blinkEffect struct {
	Distance float64
}

type metavisionEffect struct {
	Duration int64
}

type ninjaStepEffect struct{}

type lurkingEffect struct {
	Radius   float64
	Window   int64
	Offset   float64
}

type powerShotEffect struct {
	Range     float64
	Speed     float64
	Knockback float64
	Retention float64
	StatBonus int
	Window    int64
}

func (speedSlowEffect) isSkillEffect()  {}
func (blinkEffect) isSkillEffect()      {}
func (metavisionEffect) isSkillEffect() {}
func (ninjaStepEffect) isSkillEffect()  {}
func (lurkingEffect) isSkillEffect()    {}
func (powerShotEffect) isSkillEffect()  {}

// effectFor maps a skill ID to its effect variant.
func effectFor(id SkillID) skillEffect {
	switch id {
	case SkillSlowdown:
		return speedSlowEffect{Mul: SlowdownFactor, Duration: 5000}
	case SkillBlink:
		return blinkEffect{Distance: BlinkDistance}
	case SkillMetavision:
		return metavisionEffect{Duration: 8000}
	case SkillNinjaStep:
		return ninjaStepEffect{}
	case SkillLurking:
		return lurkingEffect{Radius: LurkingRadius, Window: 5000, Offset: LurkingOffset}
	case SkillPowerShot:
		return powerShotEffect{
			Range:     PowerShotRange,
			Speed:     PowerShotSpeed,
			Knockback: PowerShotKnockback,
			Retention: PowerShotRetention,
			StatBonus: PowerShotStatBonus,
			Window:    3000,
		}
	default:
		return nil
	}
}

// activateSkill validates ownership and cooldown, then applies the effect
// synchronously inside the loop's input-drain phase. Invalid activations
// are silently dropped per the error policy.
func (e *Engine) activateSkill(p *Player, id SkillID, facing float64) {
	def, ok := SkillByID(id)
	if !ok {
		return
	}

	// Outside the lobby only the assigned skill may be used.
	if e.match.Status != StatusLobby && p.Skill != id {
		return
	}

	now := e.now
	eff := effectFor(id)
	if eff == nil {
		return
	}

	// Lurking re-activation inside the armed window triggers the intercept.
	// The cooldown started at arming, so it must not be checked again here or
	// the second press could never land.
	if l, isLurk := eff.(lurkingEffect); isLurk && now < p.Effects.LurkingArmedUntil {
		e.triggerLurking(p, l)
		return
	}

	if next, ok := p.Cooldowns[id]; ok && now < next {
		return
	}

	switch v := eff.(type) {
	case speedSlowEffect:
		e.applySlowdown(p, v, def)
	case blinkEffect:
		if !e.applyBlink(p, v, facing) {
			return
		}
	case metavisionEffect:
		p.Effects.MetavisionUntil = now + v.Duration
		e.scheduleSkillEnd(p, id, now+v.Duration)
	case ninjaStepEffect:
		p.Effects.Phasing = !p.Effects.Phasing
		if !p.Effects.Phasing {
			e.emitter.ToRoom(RoomSoccer, EventSkillEnded, SkillEndedEvent{PlayerID: p.ID, SkillID: id})
			return
		}
	case lurkingEffect:
		p.Effects.LurkingArmedUntil = now + v.Window
		e.scheduleSkillEnd(p, id, now+v.Window)
	case powerShotEffect:
		if !e.applyPowerShot(p, v) {
			return
		}
	}

	if def.CooldownMs > 0 {
		p.Cooldowns[id] = now + def.CooldownMs
	}

	e.emitter.ToRoom(RoomSoccer, EventSkillActivated, SkillActivatedEvent{
		PlayerID: p.ID,
		SkillID:  id,
		Duration: def.DurationMs,
	})
	e.log.Record(LogSkill, e.serverTick, p.ID, skillLogPayload{SkillID: id})
}

// applySlowdown hits every other active player: an immediate velocity cut
// plus a lingering speed-multiplier debuff.
func (e *Engine) applySlowdown(caster *Player, eff speedSlowEffect, def SkillDef) {
	until := e.now + eff.Duration
	for _, id := range e.order {
		p := e.players[id]
		if p.ID == caster.ID || p.Spectating() {
			continue
		}
		p.VX *= eff.Mul
		p.VY *= eff.Mul
		p.Effects.SlowedUntil = until
	}
	e.scheduleSkillEnd(caster, def.ID, until)
}

// applyBlink teleports the player along the facing vector. Spectators are
// not allowed to clip into colliders; on-pitch players always blink. Returns
// false when the blink is cancelled, in which case no cooldown is consumed.
func (e *Engine) applyBlink(p *Player, eff blinkEffect, facing float64) bool {
	fromX, fromY := p.X, p.Y
	toX := fromX + math.Cos(facing)*eff.Distance
	toY := fromY + math.Sin(facing)*eff.Distance

	// Clamp the endpoint to the pitch interior.
	toX = math.Max(physics.PlayerRadius, math.Min(physics.PitchWidth-physics.PlayerRadius, toX))
	toY = math.Max(physics.PlayerRadius, math.Min(physics.PitchHeight-physics.PlayerRadius, toY))

	if p.Spectating() {
		for _, r := range e.world.Colliders {
			if r.Contains(toX, toY) {
				return false // cancel, remain at start
			}
		}
	}

	p.Teleport(toX, toY)
	e.emitter.ToRoom(RoomSoccer, EventBlinkActivated, BlinkActivatedEvent{
		PlayerID: p.ID,
		FromX:    fromX, FromY: fromY,
		ToX: toX, ToY: toY,
	})
	return true
}

// triggerLurking is the second lurking activation: if the ball is inside
// the radius, teleport next to it (offset against the attack direction so
// the ball sits in front of the player) and take possession.
func (e *Engine) triggerLurking(p *Player, eff lurkingEffect) {
	p.Effects.LurkingArmedUntil = 0

	dx := e.ball.X - p.X
	dy := e.ball.Y - p.Y
	if dx*dx+dy*dy > eff.Radius*eff.Radius {
		return
	}

	offset := eff.Offset * world.AttackDirection(p.Team)
	p.Teleport(e.ball.X-offset, e.ball.Y)
	e.ball.SetVelocity(0, 0)
	e.ball.Touch(p.ID, e.now)

	e.emitter.ToRoom(RoomSoccer, EventSkillTriggered, SkillTriggeredEvent{
		PlayerID: p.ID,
		SkillID:  SkillLurking,
		X:        p.X,
		Y:        p.Y,
	})
	e.emitBallState()
}

// applyPowerShot fires the ball at the opponent goal if the player is close
// enough, opening the enlarged-contact window and granting the temporary
// kick power buff. Returns false when out of range (no cooldown consumed).
func (e *Engine) applyPowerShot(p *Player, eff powerShotEffect) bool {
	dx := e.ball.X - p.X
	dy := e.ball.Y - p.Y
	if dx*dx+dy*dy > eff.Range*eff.Range {
		return false
	}

	gx, gy := world.OpponentGoalCenter(p.Team)
	aimX := gx - e.ball.X
	aimY := gy - e.ball.Y
	dist := math.Sqrt(aimX*aimX + aimY*aimY)
	if dist == 0 {
		return false
	}
	aimX /= dist
	aimY /= dist

	kp := physics.KickPowerMultiplier(p.EffectiveKickPower(e.now))
	e.ball.SetVelocity(aimX*eff.Speed*kp, aimY*eff.Speed*kp)
	e.ball.Touch(p.ID, e.now)
	e.ball.LastKickAt = e.now
	p.LastKickAt = e.now

	// Recoil on the shooter, anti-parallel to the shot.
	p.VX -= aimX * KickRecoil
	p.VY -= aimY * KickRecoil

	until := e.now + eff.Window
	e.ball.PowerShotUntil = until
	e.ball.PowerShotKnockback = eff.Knockback
	e.ball.PowerShotRetention = eff.Retention

	p.Effects.KickPowerBuff = eff.StatBonus
	p.Effects.KickPowerBuffUntil = until
	e.scheduleSkillEnd(p, SkillPowerShot, until)

	e.emitter.ToRoom(RoomSoccer, EventBallKicked, KickedEvent{
		KickerID:     p.ID,
		KickSequence: e.ball.KickSequence,
	})
	e.emitBallState()
	return true
}

// scheduleSkillEnd registers an expiry timer that clears the effect and
// notifies the room. The handle is attached to the player so disconnect and
// reset cancel it.
func (e *Engine) scheduleSkillEnd(p *Player, id SkillID, at int64) {
	playerID := p.ID
	h := e.timers.Schedule(at, func() {
		owner, ok := e.players[playerID]
		if !ok {
			return
		}
		owner.expireEffect(id, at)
		e.emitter.ToRoom(RoomSoccer, EventSkillEnded, SkillEndedEvent{PlayerID: playerID, SkillID: id})
	})
	p.timers = append(p.timers, h)
}

// expireEffect clears effect state belonging to id, but only if the effect
// has not been refreshed past the timer's deadline.
func (p *Player) expireEffect(id SkillID, deadline int64) {
	switch id {
	case SkillSlowdown:
		// Slowdown is applied to victims; their SlowedUntil self-expires by
		// timestamp comparison, nothing to clear on the caster.
	case SkillMetavision:
		if p.Effects.MetavisionUntil <= deadline {
			p.Effects.MetavisionUntil = 0
		}
	case SkillLurking:
		if p.Effects.LurkingArmedUntil <= deadline {
			p.Effects.LurkingArmedUntil = 0
		}
	case SkillPowerShot:
		if p.Effects.KickPowerBuffUntil <= deadline {
			p.Effects.KickPowerBuff = 0
			p.Effects.KickPowerBuffUntil = 0
		}
	}
}

type skillLogPayload struct {
	SkillID SkillID `json:"skillId"`
}
