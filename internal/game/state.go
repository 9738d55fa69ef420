package game

import (
	"soccer-arena/internal/physics"
	"soccer-arena/internal/world"
)

// Gameplay constants. Like the kernel constants these are part of the
// client/server contract.
const (
	KickRange           = 250.0 // px, kicker-to-ball validation distance
	KickRangeMetavision = 300.0
	KickRecoil          = 400.0 // impulse on the kicker, anti-parallel
	DribbleRange        = 300.0
	DribbleSpeed        = 300.0

	BallPlayerRestitution = 0.6
	KnockbackScale        = 0.6   // knockback = min(ballSpeed*scale, KnockbackMax)
	KnockbackMax          = 200.0
	KnockbackMinSpeed     = 100.0 // ball slower than this pushes nobody
	PlayerPushImpulse     = 150.0 // elastic player-player separation impulse

	// A phasing player counts as "near the ball" (and therefore solid)
	// within this centre distance.
	PhaseContactRange = 90.0
)

// Stats is the player's point allocation. The three values are integers
// summing to StatTotal.
type Stats struct {
	Speed     int `json:"speed"`
	KickPower int `json:"kickPower"`
	Dribbling int `json:"dribbling"`
}

// StatTotal is the mandatory sum of the three stat values.
const StatTotal = 15

// Valid reports whether the allocation satisfies the stat invariant.
func (s Stats) Valid() bool {
	return s.Speed >= 0 && s.KickPower >= 0 && s.Dribbling >= 0 &&
		s.Speed+s.KickPower+s.Dribbling == StatTotal
}

// Ball is the authoritative ball state. There is exactly one per process.
type Ball struct {
	physics.Body
	Moving          bool
	LastTouchID     string
	PreviousTouchID string
	LastTouchAt     int64  // sim ms
	KickSequence    uint32 // bumped on every authoritative velocity replacement
	LastKickAt      int64  // sim ms, gates the dribble lockout

	// Power-shot window: while simNow < PowerShotUntil, ball-player contact
	// uses the stored knockback and restitution instead of the defaults.
	PowerShotUntil     int64
	PowerShotKnockback float64
	PowerShotRetention float64

	resetPending bool // a goal reset is scheduled; goal checks are suppressed
}

// SetVelocity replaces the ball velocity and bumps the kick sequence.
// Every authoritative impulse (kick, dribble, teleport, reset) goes
// through here so clients can distinguish impulses from integration.
func (b *Ball) SetVelocity(vx, vy float64) {
	b.VX = vx
	b.VY = vy
	b.Moving = vx != 0 || vy != 0
	b.KickSequence++
}

// Touch records a ball contact, maintaining the two-deep touch chain used
// for goal, assist and interception crediting.
func (b *Ball) Touch(playerID string, now int64) {
	if b.LastTouchID != playerID {
		b.PreviousTouchID = b.LastTouchID
		b.LastTouchID = playerID
	}
	b.LastTouchAt = now
}

// Effects tracks the transient skill state of one player. Zero value means
// no active effects.
type Effects struct {
	SlowedUntil        int64 // sim ms
	MetavisionUntil    int64
	Phasing            bool // ninja step toggle
	LurkingArmedUntil  int64
	KickPowerBuff      int // additive stat points
	KickPowerBuffUntil int64
}

// Player is the authoritative per-player physics record plus everything the
// simulation tracks about them: input queue, sequence ack, history, skill
// state and per-match stats. Created on scene join, destroyed on leave.
type Player struct {
	ID string
	physics.Body
	Team       world.Team
	SpawnIndex int

	Stats        Stats
	StatsMissing bool // joined without persisted stats; client prompts assignment

	Queue            InputQueue
	LastInput        physics.Input
	LastProcessedSeq uint32

	History    *History
	LastKickAt int64 // sim ms of the last accepted kick

	Skill     SkillID            // assigned skill ("" until picked)
	Cooldowns map[SkillID]int64  // skill -> sim ms when next usable
	Effects   Effects
	timers    []*TimerHandle // expiry timers, cancelled on leave/reset

	MatchStats MatchPlayerStats
}

// MatchPlayerStats accumulates per-match scoring contributions.
type MatchPlayerStats struct {
	Goals         int `json:"goals"`
	Assists       int `json:"assists"`
	Interceptions int `json:"interceptions"`
}

// MVPScore is the weighted contribution score used for MVP selection.
func (m MatchPlayerStats) MVPScore() int {
	return m.Goals*10 + m.Assists*5 + m.Interceptions*2
}

// Feats counts achievement thresholds reached, capped at 3. Each feat is
// worth bonus MMR at game end.
func (m MatchPlayerStats) Feats() int {
	n := 0
	if m.Goals >= 2 {
		n++
	}
	if m.Assists >= 2 {
		n++
	}
	if m.Interceptions >= 3 {
		n++
	}
	if n > 3 {
		n = 3
	}
	return n
}

// NewPlayer creates a player record placed at the given spawn.
func NewPlayer(id string, team world.Team, spawnIndex, historySamples int) *Player {
	sp := world.SpawnFor(team, spawnIndex)
	p := &Player{
		ID:         id,
		Team:       team,
		SpawnIndex: spawnIndex,
		History:    NewHistory(historySamples),
		Cooldowns:  make(map[SkillID]int64),
		LastKickAt: -1 << 40,
	}
	p.X = sp.X
	p.Y = sp.Y
	return p
}

// Spectating reports whether the player is off the pitch.
func (p *Player) Spectating() bool {
	return !p.Team.OnPitch()
}

// Slowed reports whether a slowdown effect is active at simNow.
func (p *Player) Slowed(now int64) bool {
	return now < p.Effects.SlowedUntil
}

// Metavision reports whether metavision is active at simNow.
func (p *Player) Metavision(now int64) bool {
	return now < p.Effects.MetavisionUntil
}

// EffectiveKickPower returns the kickPower stat including any active buff.
func (p *Player) EffectiveKickPower(now int64) int {
	kp := p.Stats.KickPower
	if now < p.Effects.KickPowerBuffUntil {
		kp += p.Effects.KickPowerBuff
	}
	return kp
}

// ClearEffects drops all transient skill state and cancels pending expiry
// timers. Used on game reset and disconnect.
func (p *Player) ClearEffects() {
	for _, t := range p.timers {
		t.Cancel()
	}
	p.timers = p.timers[:0]
	p.Effects = Effects{}
}

// Teleport moves the player and zeroes velocity.
func (p *Player) Teleport(x, y float64) {
	p.X = x
	p.Y = y
	p.VX = 0
	p.VY = 0
}
