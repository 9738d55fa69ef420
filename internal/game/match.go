package game

import (
	"context"
	"log"
	"math/rand"
	"time"

	"soccer-arena/internal/stats"
	"soccer-arena/internal/world"
)

// MatchStatus is the orchestrator state.
type MatchStatus string

const (
	StatusLobby     MatchStatus = "lobby"
	StatusSelection MatchStatus = "skill_selection"
	StatusActive    MatchStatus = "active"
)

// MatchState tracks everything about the current match outside of physics.
type MatchState struct {
	Status    MatchStatus
	ScoreRed  int
	ScoreBlue int

	EndsAt   int64 // sim ms when the clock expires
	Overtime bool

	lastTimerSecond int // last whole second broadcast, -1 before the first

	// Skill selection phase.
	selOrder     []string
	selIndex     int
	selAvailable []SkillID
	selTimer     *TimerHandle
}

func newMatchState() *MatchState {
	return &MatchState{Status: StatusLobby, lastTimerSecond: -1}
}

// assignTeam cycles the player through red, blue and spectator, teleporting
// them to the next spawn of the new team. Only meaningful in the lobby.
func (e *Engine) assignTeam(playerID string) {
	p, ok := e.players[playerID]
	if !ok || e.match.Status != StatusLobby {
		return
	}

	var next world.Team
	switch p.Team {
	case world.TeamRed:
		next = world.TeamBlue
	case world.TeamBlue:
		next = world.TeamSpectator
	default:
		next = world.TeamRed
	}
	e.placeOnTeam(p, next)
}

// placeOnTeam moves a player to a team and its next free spawn slot.
func (e *Engine) placeOnTeam(p *Player, team world.Team) {
	p.Team = team
	p.SpawnIndex = e.nextSpawnIndex(team)
	sp := world.SpawnFor(team, p.SpawnIndex)
	p.Teleport(sp.X, sp.Y)
	p.Queue.Reset()

	e.emitter.ToRoom(RoomSoccer, EventTeamAssigned, TeamAssignedEvent{
		PlayerID: p.ID,
		Team:     team,
		X:        p.X,
		Y:        p.Y,
	})
}

// nextSpawnIndex returns the lowest spawn slot not used by another player of
// the team.
func (e *Engine) nextSpawnIndex(team world.Team) int {
	used := make(map[int]bool)
	for _, id := range e.order {
		p := e.players[id]
		if p.Team == team {
			used[p.SpawnIndex] = true
		}
	}
	for i := 0; ; i++ {
		if !used[i] {
			return i
		}
	}
}

// randomizeTeams shuffles every non-spectator player across red and blue,
// keeping the sides within one player of each other.
func (e *Engine) randomizeTeams() {
	if e.match.Status != StatusLobby {
		return
	}

	var pool []*Player
	for _, id := range e.order {
		p := e.players[id]
		if p.Team.OnPitch() {
			pool = append(pool, p)
		}
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	for i, p := range pool {
		team := world.TeamRed
		if i%2 == 1 {
			team = world.TeamBlue
		}
		p.Team = team
		p.SpawnIndex = i / 2
		sp := world.SpawnFor(team, p.SpawnIndex)
		p.Teleport(sp.X, sp.Y)
		p.Queue.Reset()
		e.emitter.ToRoom(RoomSoccer, EventTeamAssigned, TeamAssignedEvent{
			PlayerID: p.ID, Team: team, X: p.X, Y: p.Y,
		})
	}
}

// startGame moves the lobby into skill selection. Pick order interleaves the
// two teams in join order so neither side picks its whole hand first.
func (e *Engine) startGame() {
	if e.match.Status != StatusLobby {
		return
	}

	var red, blue []string
	for _, id := range e.order {
		switch e.players[id].Team {
		case world.TeamRed:
			red = append(red, id)
		case world.TeamBlue:
			blue = append(blue, id)
		}
	}
	if len(red)+len(blue) == 0 {
		return
	}

	order := make([]string, 0, len(red)+len(blue))
	for i := 0; i < len(red) || i < len(blue); i++ {
		if i < len(red) {
			order = append(order, red[i])
		}
		if i < len(blue) {
			order = append(order, blue[i])
		}
	}

	available := make([]SkillID, 0, len(SkillTable))
	for _, d := range SkillTable {
		available = append(available, d.ID)
	}

	m := e.match
	m.Status = StatusSelection
	m.selOrder = order
	m.selIndex = 0
	m.selAvailable = available

	deadline := e.now + e.cfg.SelectionTurn.Milliseconds()
	e.emitter.ToRoom(RoomSoccer, EventSelectionStarted, SelectionStartedEvent{
		Order:      order,
		Available:  available,
		Picker:     order[0],
		DeadlineMs: deadline,
	})
	e.armSelectionTimer(order[0], deadline)
	e.log.Record(LogMatch, e.serverTick, "", matchLogPayload{Phase: string(StatusSelection)})
}

// armSelectionTimer schedules the auto-pick for the current picker. The
// handle lives on MatchState so a manual pick or a reset can cancel it.
func (e *Engine) armSelectionTimer(pickerID string, deadline int64) {
	m := e.match
	if m.selTimer != nil {
		m.selTimer.Cancel()
	}
	m.selTimer = e.timers.Schedule(deadline, func() {
		if m.Status != StatusSelection || m.selIndex >= len(m.selOrder) || m.selOrder[m.selIndex] != pickerID {
			return
		}
		if len(m.selAvailable) == 0 {
			e.advanceSelection()
			return
		}
		e.completePick(pickerID, m.selAvailable[rand.Intn(len(m.selAvailable))], true)
	})
}

// pickSkill handles a soccer:pickSkill request, either the current selection
// turn or a mid-game pick from a late joiner.
func (e *Engine) pickSkill(playerID string, id SkillID) {
	m := e.match
	p, ok := e.players[playerID]
	if !ok {
		return
	}

	switch m.Status {
	case StatusSelection:
		if m.selIndex >= len(m.selOrder) || m.selOrder[m.selIndex] != playerID {
			return
		}
		if !e.skillAvailable(id) {
			return
		}
		e.completePick(playerID, id, false)

	case StatusActive:
		// Late joiner picking after soccer:startMidGamePick.
		if p.Skill != "" || !p.Team.OnPitch() || !e.skillAvailable(id) {
			return
		}
		p.Skill = id
		e.removeAvailable(id)
		e.emitter.ToRoom(RoomSoccer, EventSkillPicked, SkillPickedEvent{
			PlayerID: playerID, SkillID: id,
		})
	}
}

func (e *Engine) skillAvailable(id SkillID) bool {
	for _, a := range e.match.selAvailable {
		if a == id {
			return true
		}
	}
	return false
}

func (e *Engine) removeAvailable(id SkillID) {
	m := e.match
	for i, a := range m.selAvailable {
		if a == id {
			m.selAvailable = append(m.selAvailable[:i], m.selAvailable[i+1:]...)
			return
		}
	}
}

// completePick assigns the skill and advances the turn.
func (e *Engine) completePick(playerID string, id SkillID, auto bool) {
	m := e.match
	if m.selTimer != nil {
		m.selTimer.Cancel()
		m.selTimer = nil
	}

	if p, ok := e.players[playerID]; ok {
		p.Skill = id
	}
	e.removeAvailable(id)
	e.emitter.ToRoom(RoomSoccer, EventSkillPicked, SkillPickedEvent{
		PlayerID: playerID, SkillID: id, AutoPick: auto,
	})
	e.advanceSelection()
}

// advanceSelection moves to the next picker still connected, or starts the
// match when everyone has picked.
func (e *Engine) advanceSelection() {
	m := e.match
	m.selIndex++
	for m.selIndex < len(m.selOrder) {
		if _, ok := e.players[m.selOrder[m.selIndex]]; ok {
			break
		}
		m.selIndex++
	}
	if m.selIndex >= len(m.selOrder) || len(m.selAvailable) == 0 {
		e.beginActive()
		return
	}

	picker := m.selOrder[m.selIndex]
	deadline := e.now + e.cfg.SelectionTurn.Milliseconds()
	e.emitter.ToRoom(RoomSoccer, EventSelectionUpdate, SelectionUpdateEvent{
		Picker:     picker,
		Available:  m.selAvailable,
		DeadlineMs: deadline,
	})
	e.armSelectionTimer(picker, deadline)
}

// beginActive starts the match clock.
func (e *Engine) beginActive() {
	m := e.match
	m.Status = StatusActive
	m.ScoreRed = 0
	m.ScoreBlue = 0
	m.Overtime = false
	m.EndsAt = e.now + e.cfg.GameDuration.Milliseconds()
	m.lastTimerSecond = -1

	skills := make(map[string]SkillID)
	for _, id := range e.order {
		p := e.players[id]
		if p.Skill != "" {
			skills[id] = p.Skill
		}
		p.MatchStats = MatchPlayerStats{}
	}
	e.resetPositions()

	e.emitter.ToRoom(RoomSoccer, EventGameStarted, GameStartedEvent{
		DurationSec: int(e.cfg.GameDuration.Seconds()),
		Skills:      skills,
	})
	e.log.Record(LogMatch, e.serverTick, "", matchLogPayload{Phase: string(StatusActive)})
	log.Printf("⚽ match started: %d players, %ds regulation", len(skills), int(e.cfg.GameDuration.Seconds()))
}

// tickClock runs once per physics step while active: broadcasts the timer on
// whole-second changes and fires overtime or game end at zero.
func (e *Engine) tickClock() {
	m := e.match
	if m.Status != StatusActive {
		return
	}

	remainingMs := m.EndsAt - e.now
	if remainingMs > 0 {
		sec := int((remainingMs + 999) / 1000)
		if sec != m.lastTimerSecond {
			m.lastTimerSecond = sec
			e.emitter.ToRoom(RoomSoccer, EventTimerUpdate, TimerUpdateEvent{
				SecondsRemaining: sec,
				Overtime:         m.Overtime,
			})
		}
		return
	}

	if m.ScoreRed == m.ScoreBlue && !m.Overtime {
		m.Overtime = true
		m.EndsAt = e.now + e.cfg.Overtime.Milliseconds()
		m.lastTimerSecond = -1
		e.emitter.ToRoom(RoomSoccer, EventOvertime, OvertimeEvent{
			DurationSec: int(e.cfg.Overtime.Seconds()),
		})
		return
	}
	e.endGame()
}

// handleGoal awards a goal against the zone's owning team, credits scorer and
// assist from the touch chain, and schedules the deferred reset.
func (e *Engine) handleGoal(zone world.GoalZone) {
	scoring := zone.Team.Opponent()
	m := e.match

	switch scoring {
	case world.TeamRed:
		m.ScoreRed++
	case world.TeamBlue:
		m.ScoreBlue++
	}

	var scorerID, assistID string
	if scorer, ok := e.players[e.ball.LastTouchID]; ok && scorer.Team == scoring {
		scorerID = scorer.ID
		scorer.MatchStats.Goals++
		if assist, ok := e.players[e.ball.PreviousTouchID]; ok && assist.ID != scorer.ID && assist.Team == scoring {
			assistID = assist.ID
			assist.MatchStats.Assists++
		}
	}

	e.ball.SetVelocity(0, 0)
	e.ball.resetPending = true

	e.emitter.ToRoom(RoomSoccer, EventGoalScored, GoalScoredEvent{
		ScoringTeam: scoring,
		ScorerID:    scorerID,
		AssistID:    assistID,
		ScoreRed:    m.ScoreRed,
		ScoreBlue:   m.ScoreBlue,
		GoalName:    zone.Name,
	})
	e.log.Record(LogGoal, e.serverTick, scorerID, goalLogPayload{
		Team: scoring, Red: m.ScoreRed, Blue: m.ScoreBlue,
	})
	e.metrics.GoalsScored.WithLabelValues(string(scoring)).Inc()

	e.timers.Schedule(e.now+e.cfg.GoalResetDelay.Milliseconds(), func() {
		e.ball.resetPending = false
		e.resetPositions()
	})

	// Sudden death: the first overtime goal ends the match immediately.
	if m.Status == StatusActive && m.Overtime {
		e.endGame()
	}
}

// resetPositions teleports the ball to the centre spot and every on-pitch
// player to their indexed team spawn. Active skill effects and their expiry
// timers do not survive the teleport.
func (e *Engine) resetPositions() {
	e.ball.X = world.BallSpawn.X
	e.ball.Y = world.BallSpawn.Y
	e.ball.SetVelocity(0, 0)
	e.ball.PowerShotUntil = 0
	e.emitBallState()

	for _, id := range e.order {
		p := e.players[id]
		if !p.Team.OnPitch() {
			continue
		}
		p.ClearEffects()
		sp := world.SpawnFor(p.Team, p.SpawnIndex)
		p.Teleport(sp.X, sp.Y)
		p.Queue.Reset()
		e.emitter.ToRoom(RoomSoccer, EventPlayerReset, PlayerResetEvent{
			PlayerID: p.ID, X: p.X, Y: p.Y,
		})
	}
}

// endGame computes the winner, MVP and MMR updates, persists them, and
// returns to the lobby. Nobody is teleported; timers and effects are cleared.
func (e *Engine) endGame() {
	m := e.match

	winner := world.TeamNone
	if m.ScoreRed > m.ScoreBlue {
		winner = world.TeamRed
	} else if m.ScoreBlue > m.ScoreRed {
		winner = world.TeamBlue
	}

	var mvpID string
	bestScore := -1
	for _, id := range e.order {
		p := e.players[id]
		if !p.Team.OnPitch() {
			continue
		}
		if s := p.MatchStats.MVPScore(); s > bestScore {
			bestScore = s
			mvpID = id
		}
	}

	updates := e.settleMMR(winner, mvpID)

	e.emitter.ToRoom(RoomSoccer, EventGameEnd, GameEndEvent{
		Winner:     winner,
		ScoreRed:   m.ScoreRed,
		ScoreBlue:  m.ScoreBlue,
		MVP:        mvpID,
		MMRUpdates: updates,
	})
	e.log.Record(LogMatch, e.serverTick, mvpID, goalLogPayload{
		Team: winner, Red: m.ScoreRed, Blue: m.ScoreBlue,
	})
	log.Printf("🏁 match over: red %d - %d blue, winner=%s mvp=%s", m.ScoreRed, m.ScoreBlue, winner, mvpID)

	e.clearMatchState()
	m.Status = StatusLobby

	// A sudden-death winner ends the game with the ball still inside the
	// goal zone and the deferred reset just cancelled; back to the centre
	// spot so the next tick cannot score again.
	e.ball.X = world.BallSpawn.X
	e.ball.Y = world.BallSpawn.Y
	e.ball.SetVelocity(0, 0)
	e.emitBallState()
}

// settleMMR computes and persists rating changes for every on-pitch player.
// Persistence failures are logged and skipped; the match result still
// broadcasts.
func (e *Engine) settleMMR(winner world.Team, mvpID string) []MMRUpdate {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var updates []MMRUpdate
	for _, id := range e.order {
		p := e.players[id]
		if !p.Team.OnPitch() {
			continue
		}
		won := p.Team == winner
		mvp := id == mvpID
		feats := p.MatchStats.Feats()

		streak := 0
		if prof, err := e.repo.FindStatsByUserID(ctx, id); err == nil {
			streak = prof.WinStreak
		}
		delta := stats.MMRDelta(won, streak, mvp, feats)

		if err := e.repo.UpdateMMR(ctx, id, delta, won); err != nil {
			log.Printf("❌ mmr update failed for %s: %v", id, err)
		}
		if err := e.repo.AddMatchHistory(ctx, stats.MatchRecord{
			UserID:        id,
			Won:           won,
			Goals:         p.MatchStats.Goals,
			Assists:       p.MatchStats.Assists,
			Interceptions: p.MatchStats.Interceptions,
			MVP:           mvp,
			MMRDelta:      delta,
			PlayedAt:      time.Now(),
		}); err != nil {
			log.Printf("❌ match history write failed for %s: %v", id, err)
		}

		updates = append(updates, MMRUpdate{PlayerID: id, Delta: delta, MVP: mvp, Feats: feats})
	}
	return updates
}

// clearMatchState cancels every timer and drops all transient skill state,
// shared by game end and full reset.
func (e *Engine) clearMatchState() {
	m := e.match
	if m.selTimer != nil {
		m.selTimer.Cancel()
		m.selTimer = nil
	}
	e.timers.Reset()
	e.ball.resetPending = false

	for _, id := range e.order {
		p := e.players[id]
		p.ClearEffects()
		p.Skill = ""
		p.Cooldowns = make(map[SkillID]int64)
		p.MatchStats = MatchPlayerStats{}
	}
	m.selOrder = nil
	m.selAvailable = nil
	m.selIndex = 0
	m.lastTimerSecond = -1
}

// resetGame aborts whatever is running and returns to a clean lobby: zero
// score, zero velocities, ball on the centre spot, players at their spawns.
func (e *Engine) resetGame() {
	m := e.match
	e.clearMatchState()
	m.Status = StatusLobby
	m.ScoreRed = 0
	m.ScoreBlue = 0
	m.Overtime = false

	e.resetPositions()
	e.emitter.ToRoom(RoomSoccer, EventGameReset, GameResetEvent{
		ScoreRed: 0, ScoreBlue: 0,
	})
	e.log.Record(LogMatch, e.serverTick, "", matchLogPayload{Phase: string(StatusLobby)})
}

// notifyMidGamePick prompts a late on-pitch joiner to pick from the leftover
// skill pool while a match is running.
func (e *Engine) notifyMidGamePick(p *Player) {
	if e.match.Status != StatusActive || p.Skill != "" || !p.Team.OnPitch() {
		return
	}
	if len(e.match.selAvailable) == 0 {
		return
	}
	e.emitter.ToPlayer(p.ID, EventStartMidGamePick, MidGamePickEvent{
		Available: e.match.selAvailable,
	})
}

type matchLogPayload struct {
	Phase string `json:"phase"`
}

type goalLogPayload struct {
	Team world.Team `json:"team"`
	Red  int        `json:"red"`
	Blue int        `json:"blue"`
}
