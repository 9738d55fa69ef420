package game

import (
	"context"
	"log"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"soccer-arena/internal/config"
	"soccer-arena/internal/physics"
	"soccer-arena/internal/stats"
	"soccer-arena/internal/world"
)

const commandMailboxSize = 1024

// Engine is the authoritative simulation. All mutable state is owned by a
// single loop goroutine; everything else talks to it through the command
// mailbox. The loop starts when the first player joins and exits when the
// last one leaves.
type Engine struct {
	cfg     config.SimulationConfig
	world   *world.World
	repo    stats.Repository
	emitter Emitter
	log     *MatchLog
	metrics *Metrics

	// Owned by the loop goroutine.
	players     map[string]*Player
	order       []string // join order, the deterministic iteration order
	ball        *Ball
	ballHistory *History
	timers      *TimerQueue
	match       *MatchState
	now         int64  // sim ms, advances by the physics tick
	serverTick  uint64 // physics step counter

	commands chan func()
	running  atomic.Bool
	stopped  atomic.Bool

	snapshot atomic.Pointer[WorldSnapshot]
}

// NewEngine wires a simulation over the given static world and stats store.
func NewEngine(cfg config.SimulationConfig, w *world.World, repo stats.Repository, emitter Emitter, matchLog *MatchLog, metrics *Metrics) *Engine {
	e := &Engine{
		cfg:         cfg,
		world:       w,
		repo:        repo,
		emitter:     emitter,
		log:         matchLog,
		metrics:     metrics,
		players:     make(map[string]*Player),
		ball:        &Ball{},
		ballHistory: NewHistory(cfg.HistorySamples),
		timers:      NewTimerQueue(),
		match:       newMatchState(),
		commands:    make(chan func(), commandMailboxSize),
	}
	e.ball.X = world.BallSpawn.X
	e.ball.Y = world.BallSpawn.Y
	return e
}

// SetEmitter binds the event emitter. The transport and the engine reference
// each other, so one of them has to be wired late; call this before the
// first player joins.
func (e *Engine) SetEmitter(em Emitter) {
	e.emitter = em
}

// Stopped reports whether Stop was called.
func (e *Engine) Stopped() bool { return e.stopped.Load() }

// Stop permanently shuts the engine down; the loop exits at its next wake
// and later commands are discarded.
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

// dispatch enqueues a command for the loop and makes sure a loop is running
// to drain it. Full mailbox drops the command; the client sees the effect of
// a drop as nothing more than a missed input.
func (e *Engine) dispatch(cmd func()) {
	if e.stopped.Load() {
		return
	}
	select {
	case e.commands <- cmd:
	default:
		e.metrics.InputsDropped.Inc()
		return
	}
	e.ensureLoop()
}

// ensureLoop starts the loop goroutine unless one is already running.
func (e *Engine) ensureLoop() {
	if e.stopped.Load() {
		return
	}
	if e.running.CompareAndSwap(false, true) {
		go e.run()
	}
}

// Join registers a player, loading their persisted stat allocation through
// the repository. Placement depends on match status: lobby and active
// matches put the player on the smaller team, skill selection parks them as
// a spectator.
func (e *Engine) Join(ctx context.Context, playerID string) error {
	if playerID == "" {
		return errors.New("join: empty player id")
	}

	prof, err := e.repo.FindStatsByUserID(ctx, playerID)
	missing := false
	if err != nil {
		if !errors.Is(err, stats.ErrNotFound) {
			return errors.Wrap(err, "loading soccer stats")
		}
		missing = true
	}

	st := Stats{Speed: prof.Speed, KickPower: prof.KickPower, Dribbling: prof.Dribbling}
	if missing || !st.Valid() {
		st = Stats{Speed: 5, KickPower: 5, Dribbling: 5}
		missing = true
	}

	e.dispatch(func() { e.handleJoin(playerID, st, missing) })
	return nil
}

func (e *Engine) handleJoin(playerID string, st Stats, missing bool) {
	if _, ok := e.players[playerID]; ok {
		return
	}
	if len(e.players) >= e.cfg.MaxSoccerPlayers {
		log.Printf("🚫 join rejected, room full: %s", playerID)
		return
	}

	team := world.TeamSpectator
	if e.match.Status != StatusSelection {
		team = e.smallerTeam()
	}

	p := NewPlayer(playerID, team, e.nextSpawnIndex(team), e.cfg.HistorySamples)
	p.Queue = NewInputQueue(e.cfg.InputQueueCap)
	p.Stats = st
	p.StatsMissing = missing
	e.players[playerID] = p
	e.order = append(e.order, playerID)
	e.metrics.ActivePlayers.Set(float64(len(e.players)))

	e.emitter.ToRoom(RoomSoccer, EventTeamAssigned, TeamAssignedEvent{
		PlayerID: p.ID, Team: p.Team, X: p.X, Y: p.Y,
	})
	if missing {
		e.emitter.ToPlayer(playerID, EventStatsMissing, nil)
	}
	e.notifyMidGamePick(p)
	e.log.Record(LogJoin, e.serverTick, playerID, nil)
	log.Printf("👤 player joined: %s team=%s (%d total)", playerID, p.Team, len(e.players))
}

// smallerTeam returns the on-pitch team with fewer players, red on ties.
func (e *Engine) smallerTeam() world.Team {
	red, blue := 0, 0
	for _, id := range e.order {
		switch e.players[id].Team {
		case world.TeamRed:
			red++
		case world.TeamBlue:
			blue++
		}
	}
	if blue < red {
		return world.TeamBlue
	}
	return world.TeamRed
}

// Leave removes a player and cancels everything attached to them.
func (e *Engine) Leave(playerID string) {
	e.dispatch(func() { e.handleLeave(playerID) })
}

func (e *Engine) handleLeave(playerID string) {
	p, ok := e.players[playerID]
	if !ok {
		return
	}
	p.ClearEffects()
	delete(e.players, playerID)
	for i, id := range e.order {
		if id == playerID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.metrics.ActivePlayers.Set(float64(len(e.players)))

	// A picker leaving mid-selection forfeits the turn.
	m := e.match
	if m.Status == StatusSelection && m.selIndex < len(m.selOrder) && m.selOrder[m.selIndex] == playerID {
		if m.selTimer != nil {
			m.selTimer.Cancel()
			m.selTimer = nil
		}
		e.advanceSelection()
	}

	e.log.Record(LogLeave, e.serverTick, playerID, nil)
	log.Printf("👋 player left: %s (%d remain)", playerID, len(e.players))
}

// QueueInputs appends an ordered input batch to the player's queue.
func (e *Engine) QueueInputs(playerID string, inputs []physics.Input) {
	e.dispatch(func() {
		p, ok := e.players[playerID]
		if !ok {
			return
		}
		for _, in := range inputs {
			if !p.Queue.Push(in, p.LastProcessedSeq) {
				e.metrics.InputsDropped.Inc()
			}
		}
	})
}

// Kick submits a kick request.
func (e *Engine) Kick(cmd KickCommand) {
	e.dispatch(func() { e.applyKick(cmd) })
}

// Dribble submits a dribble request.
func (e *Engine) Dribble(playerID string) {
	e.dispatch(func() { e.applyDribble(DribbleCommand{PlayerID: playerID}) })
}

// ActivateSkill submits a skill activation.
func (e *Engine) ActivateSkill(playerID string, id SkillID, facing float64) {
	e.dispatch(func() {
		if p, ok := e.players[playerID]; ok {
			e.activateSkill(p, id, facing)
		}
	})
}

// AssignTeam cycles the player's lobby team.
func (e *Engine) AssignTeam(playerID string) {
	e.dispatch(func() { e.assignTeam(playerID) })
}

// ResetGame returns everything to a clean lobby.
func (e *Engine) ResetGame() {
	e.dispatch(func() { e.resetGame() })
}

// StartGame opens skill selection from the lobby.
func (e *Engine) StartGame() {
	e.dispatch(func() { e.startGame() })
}

// RandomizeTeams reshuffles the lobby teams.
func (e *Engine) RandomizeTeams() {
	e.dispatch(func() { e.randomizeTeams() })
}

// PickSkill submits a skill pick for the selection turn or a mid-game pick.
func (e *Engine) PickSkill(playerID string, id SkillID) {
	e.dispatch(func() { e.pickSkill(playerID, id) })
}

// GameStateReply answers soccer:requestGameState.
type GameStateReply struct {
	Status     MatchStatus        `json:"status"`
	ScoreRed   int                `json:"scoreRed"`
	ScoreBlue  int                `json:"scoreBlue"`
	Overtime   bool               `json:"overtime"`
	Remaining  int                `json:"secondsRemaining"`
	Skills     map[string]SkillID `json:"skills"`
	Picker     string             `json:"picker,omitempty"`
	Available  []SkillID          `json:"available,omitempty"`
}

// RequestGameState replies with the orchestrator view to one player.
func (e *Engine) RequestGameState(playerID string) {
	e.dispatch(func() {
		m := e.match
		reply := GameStateReply{
			Status:    m.Status,
			ScoreRed:  m.ScoreRed,
			ScoreBlue: m.ScoreBlue,
			Overtime:  m.Overtime,
			Skills:    make(map[string]SkillID),
		}
		if m.Status == StatusActive && m.EndsAt > e.now {
			reply.Remaining = int((m.EndsAt - e.now + 999) / 1000)
		}
		if m.Status == StatusSelection && m.selIndex < len(m.selOrder) {
			reply.Picker = m.selOrder[m.selIndex]
			reply.Available = m.selAvailable
		}
		for _, id := range e.order {
			if s := e.players[id].Skill; s != "" {
				reply.Skills[id] = s
			}
		}
		e.emitter.ToPlayer(playerID, EventGameState, reply)
	})
}

// RequestSkillConfig replies with the static skill table.
func (e *Engine) RequestSkillConfig(playerID string) {
	e.dispatch(func() {
		e.emitter.ToPlayer(playerID, EventSkillConfig, SkillTable)
	})
}

// RequestPlayers replies with the current player snapshots.
func (e *Engine) RequestPlayers(playerID string) {
	e.dispatch(func() {
		now := time.Now().UnixMilli()
		out := make([]PlayerSnapshot, 0, len(e.order))
		for _, id := range e.order {
			p := e.players[id]
			out = append(out, PlayerSnapshot{
				ID: p.ID, X: p.X, Y: p.Y, VX: p.VX, VY: p.VY,
				IsGhosted:             p.Effects.Phasing,
				IsSpectator:           p.Spectating(),
				LastProcessedSequence: p.LastProcessedSeq,
				Timestamp:             now,
			})
		}
		e.emitter.ToPlayer(playerID, EventPlayerList, out)
	})
}

// SceneChange moves a player between scenes. Leaving the soccer scene is a
// leave; anything else is ignored here.
func (e *Engine) SceneChange(playerID, newScene string) {
	if newScene != "SoccerMap" {
		e.Leave(playerID)
	}
}

// run is the simulation loop. Fixed timestep with drift correction: wall
// time drives how many physics steps execute, capped so a long stall cannot
// spiral.
func (e *Engine) run() {
	defer e.running.Store(false)

	tick := e.cfg.PhysicsTick
	next := time.Now()
	var netAccum time.Duration

	for {
		if e.stopped.Load() {
			return
		}

		e.drainCommands()

		steps := 0
		for !time.Now().Before(next) && steps < e.cfg.MaxFrameCatchup {
			start := time.Now()
			e.safeStep()
			e.metrics.TickDuration.Observe(time.Since(start).Seconds())
			if time.Since(start) > tick {
				e.metrics.TickOverruns.Inc()
			}

			next = next.Add(tick)
			netAccum += tick
			if netAccum >= e.cfg.NetworkTick {
				netAccum -= e.cfg.NetworkTick
				e.broadcastSnapshots()
			}
			steps++
		}
		if steps == e.cfg.MaxFrameCatchup && !time.Now().Before(next) {
			// Too far behind: drop the debt instead of fast-forwarding.
			next = time.Now().Add(tick)
		}

		// Loop-singleton handoff: exit when idle, but re-check the mailbox
		// after flipping the flag so a concurrent dispatch is never stranded.
		if len(e.players) == 0 {
			e.running.Store(false)
			if len(e.commands) > 0 && e.running.CompareAndSwap(false, true) {
				continue
			}
			return
		}

		time.Sleep(time.Until(next))
	}
}

// drainCommands runs every queued command. Commands arriving during the
// drain wait for the next wake.
func (e *Engine) drainCommands() {
	for i := len(e.commands); i > 0; i-- {
		select {
		case cmd := <-e.commands:
			cmd()
		default:
			return
		}
	}
}

// safeStep isolates a panicking step: the tick is lost, the loop survives.
func (e *Engine) safeStep() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("💥 simulation step panic at tick %d: %v\n%s", e.serverTick, r, debug.Stack())
		}
	}()
	e.step()
}

// step advances the simulation one physics tick. The phase order is part of
// the determinism contract with predicting clients.
func (e *Engine) step() {
	e.now += e.cfg.PhysicsTick.Milliseconds()
	e.serverTick++

	e.timers.RunDue(e.now)
	e.metrics.PendingTimers.Set(float64(e.timers.Len()))

	dt := e.cfg.PhysicsTick.Seconds()

	// Player input + integration.
	for _, id := range e.order {
		p := e.players[id]

		var in physics.Input
		var ok bool
		if e.cfg.UseLatestInput {
			in, ok = p.Queue.PopLatest()
		} else {
			in, ok = p.Queue.Pop()
		}
		if ok {
			p.LastInput = in
			p.LastProcessedSeq = in.Sequence
			e.metrics.InputsProcessed.Inc()
		} else {
			// Starved queue: keep the held keys, drop the sequence bump.
			in = p.LastInput
		}

		dragMul := physics.DragMultiplier(p.Stats.Dribbling)
		speedMul := physics.SpeedMultiplier(p.Stats.Speed)
		if p.Slowed(e.now) {
			speedMul *= SlowdownFactor
		}
		physics.IntegratePlayer(&p.Body, in, dragMul, speedMul, dt)
		p.History.Push(p.X, p.Y, e.now)
	}

	e.resolvePlayerPlayer()
	e.applyBallKnockback()

	physics.IntegrateBall(&e.ball.Body, dt)
	e.ballHistory.Push(e.ball.X, e.ball.Y, e.now)

	e.resolveBallPlayers()
	e.resolveBallRects()
	e.checkGoal()
	physics.ClampBall(&e.ball.Body)

	if e.ball.Speed() < physics.BallStopSpeed {
		e.ball.VX = 0
		e.ball.VY = 0
		e.ball.Moving = false
	} else {
		e.ball.Moving = true
	}

	for _, id := range e.order {
		p := e.players[id]
		if p.Spectating() {
			e.resolveSpectatorRects(p)
		}
	}

	e.tickClock()
}
