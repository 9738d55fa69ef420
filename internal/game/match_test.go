package game

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"soccer-arena/internal/config"
	"soccer-arena/internal/stats"
	"soccer-arena/internal/world"
)

func TestMVPScore(t *testing.T) {
	cases := []struct {
		name string
		ms   MatchPlayerStats
		want int
	}{
		{"empty", MatchPlayerStats{}, 0},
		{"goals only", MatchPlayerStats{Goals: 2}, 20},
		{"mixed", MatchPlayerStats{Goals: 1, Assists: 2, Interceptions: 3}, 26},
		{"defender", MatchPlayerStats{Interceptions: 5}, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ms.MVPScore(); got != tc.want {
				t.Errorf("MVPScore() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestFeats(t *testing.T) {
	cases := []struct {
		name string
		ms   MatchPlayerStats
		want int
	}{
		{"none", MatchPlayerStats{Goals: 1, Assists: 1, Interceptions: 2}, 0},
		{"goals threshold", MatchPlayerStats{Goals: 2}, 1},
		{"assists threshold", MatchPlayerStats{Assists: 2}, 1},
		{"interceptions threshold", MatchPlayerStats{Interceptions: 3}, 1},
		{"all three", MatchPlayerStats{Goals: 4, Assists: 3, Interceptions: 9}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ms.Feats(); got != tc.want {
				t.Errorf("Feats() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAssignTeamCyclesInLobby(t *testing.T) {
	e, _ := newTestEngine(t)
	p := join(t, e, "alice") // red

	e.assignTeam("alice")
	if p.Team != world.TeamBlue {
		t.Fatalf("team = %s, want blue", p.Team)
	}
	e.assignTeam("alice")
	if p.Team != world.TeamSpectator {
		t.Fatalf("team = %s, want spectator", p.Team)
	}
	e.assignTeam("alice")
	if p.Team != world.TeamRed {
		t.Fatalf("team = %s, want red", p.Team)
	}

	// Only a lobby operation.
	e.match.Status = StatusActive
	e.assignTeam("alice")
	if p.Team != world.TeamRed {
		t.Error("team changed outside the lobby")
	}
}

func TestRandomizeTeamsBalances(t *testing.T) {
	e, _ := newTestEngine(t)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		join(t, e, id)
	}

	e.randomizeTeams()

	red, blue := 0, 0
	for _, id := range e.order {
		switch e.players[id].Team {
		case world.TeamRed:
			red++
		case world.TeamBlue:
			blue++
		}
	}
	if red+blue != 5 {
		t.Fatalf("players on pitch = %d, want 5", red+blue)
	}
	if diff := red - blue; diff < -1 || diff > 1 {
		t.Errorf("team sizes %d/%d differ by more than one", red, blue)
	}
}

func TestJoinDuringSelectionSpectates(t *testing.T) {
	e, _ := newTestEngine(t)
	join(t, e, "alice")
	join(t, e, "bob")
	e.startGame()

	late := join(t, e, "carol")
	if late.Team != world.TeamSpectator {
		t.Errorf("team = %s, want spectator during selection", late.Team)
	}
}

func TestMidGamePickForLateJoiner(t *testing.T) {
	e, em := newTestEngine(t)
	join(t, e, "alice")
	join(t, e, "bob")
	e.startGame()
	e.pickSkill("alice", SkillBlink)
	e.pickSkill("bob", SkillSlowdown)
	if e.match.Status != StatusActive {
		t.Fatalf("status = %s, want active", e.match.Status)
	}

	carol := join(t, e, "carol")
	if !carol.Team.OnPitch() {
		t.Fatalf("late joiner team = %s, want on pitch", carol.Team)
	}
	ev, ok := em.last(EventStartMidGamePick)
	if !ok || ev.Player != "carol" {
		t.Fatal("late joiner was not prompted for a mid-game pick")
	}
	pool := ev.Data.(MidGamePickEvent).Available
	if len(pool) != 4 {
		t.Fatalf("leftover pool = %d skills, want 4", len(pool))
	}

	e.pickSkill("carol", pool[0])
	if carol.Skill != pool[0] {
		t.Error("mid-game pick not assigned")
	}
	if e.skillAvailable(pool[0]) {
		t.Error("picked skill still in the pool")
	}
}

func TestOvertimeOnTiedRegulation(t *testing.T) {
	e, em := newTestEngine(t)
	join(t, e, "alice")
	join(t, e, "bob")
	e.startGame()
	e.pickSkill("alice", SkillBlink)
	e.pickSkill("bob", SkillSlowdown)

	// Expire regulation with the score tied.
	e.match.EndsAt = e.now
	e.step()

	if !e.match.Overtime {
		t.Fatal("tied regulation did not enter overtime")
	}
	if e.match.Status != StatusActive {
		t.Errorf("status = %s, want active through overtime", e.match.Status)
	}
	if e.match.EndsAt <= e.now {
		t.Error("overtime clock not armed")
	}
	if em.count(EventOvertime) != 1 {
		t.Errorf("overtime events = %d, want 1", em.count(EventOvertime))
	}

	// A second expiry with the score still tied ends the game anyway.
	e.match.EndsAt = e.now
	e.step()
	if e.match.Status != StatusLobby {
		t.Errorf("status = %s, want lobby after double tie", e.match.Status)
	}
	ev, _ := em.last(EventGameEnd)
	if ev.Data.(GameEndEvent).Winner != world.TeamNone {
		t.Error("double tie should have no winner")
	}
}

func TestSuddenDeathGoalEndsOvertime(t *testing.T) {
	e, em := newTestEngine(t)
	red := join(t, e, "alice")
	join(t, e, "bob")
	e.startGame()
	e.pickSkill("alice", SkillBlink)
	e.pickSkill("bob", SkillSlowdown)
	e.match.Overtime = true

	e.ball.Touch(red.ID, e.now)
	e.ball.X, e.ball.Y = 3480, 800 // blue goal zone
	e.step()

	if e.match.Status != StatusLobby {
		t.Fatalf("status = %s, want lobby after sudden-death goal", e.match.Status)
	}
	ev, ok := em.last(EventGameEnd)
	if !ok {
		t.Fatal("no gameEnd event")
	}
	if ev.Data.(GameEndEvent).Winner != world.TeamRed {
		t.Errorf("winner = %s, want red", ev.Data.(GameEndEvent).Winner)
	}

	// Game end cancels the deferred reset, so the ball must leave the goal
	// zone immediately or the next tick scores again in the lobby.
	if e.ball.X != world.BallSpawn.X || e.ball.Y != world.BallSpawn.Y {
		t.Fatalf("ball still at (%.0f, %.0f), want the centre spot", e.ball.X, e.ball.Y)
	}
	goals := em.count(EventGoalScored)
	scoreRed, scoreBlue := e.match.ScoreRed, e.match.ScoreBlue
	e.step()
	if got := em.count(EventGoalScored); got != goals {
		t.Errorf("goal fired again after game end: %d -> %d", goals, got)
	}
	if e.match.ScoreRed != scoreRed || e.match.ScoreBlue != scoreBlue {
		t.Errorf("lobby score moved to %d-%d", e.match.ScoreRed, e.match.ScoreBlue)
	}
}

func TestGoalResetClearsSkillEffects(t *testing.T) {
	e, _ := newTestEngine(t)
	a := join(t, e, "alice")
	join(t, e, "bob")
	e.startGame()
	e.pickSkill("alice", SkillMetavision)
	e.pickSkill("bob", SkillSlowdown)

	e.activateSkill(a, SkillMetavision, 0)
	if a.Effects.MetavisionUntil == 0 || len(a.timers) == 0 {
		t.Fatal("metavision did not arm")
	}
	h := a.timers[len(a.timers)-1]
	e.ball.PowerShotUntil = e.now + 3000

	e.resetPositions()

	if a.Effects.MetavisionUntil != 0 {
		t.Error("spawn teleport left metavision running")
	}
	if !h.Cancelled() {
		t.Error("spawn teleport left the expiry timer armed")
	}
	if e.ball.PowerShotUntil != 0 {
		t.Error("spawn teleport left the power-shot window open")
	}
}

func TestEndGameSettlesMMR(t *testing.T) {
	repo := stats.NewMemoryRepository()
	repo.Seed(stats.Profile{UserID: "alice", Speed: 5, KickPower: 5, Dribbling: 5, MMR: 100, WinStreak: 4})
	em := &recordingEmitter{}
	e := NewEngine(config.DefaultSimulation(), testWorld(), repo, em,
		NewMatchLog(), NewMetricsWith(prometheus.NewRegistry()))

	a := join(t, e, "alice") // red
	b := join(t, e, "bob")   // blue
	e.startGame()
	e.pickSkill("alice", SkillBlink)
	e.pickSkill("bob", SkillSlowdown)

	e.match.ScoreRed = 3
	e.match.ScoreBlue = 1
	a.MatchStats = MatchPlayerStats{Goals: 2, Assists: 1} // MVP, one feat
	b.MatchStats = MatchPlayerStats{Interceptions: 3}     // one feat

	e.endGame()

	ev, ok := em.last(EventGameEnd)
	if !ok {
		t.Fatal("no gameEnd event")
	}
	end := ev.Data.(GameEndEvent)
	if end.Winner != world.TeamRed {
		t.Errorf("winner = %s, want red", end.Winner)
	}
	if end.MVP != "alice" {
		t.Errorf("mvp = %q, want alice", end.MVP)
	}

	deltas := make(map[string]int)
	for _, u := range end.MMRUpdates {
		deltas[u.PlayerID] = u.Delta
	}
	// 25 base + 5 streak(4) + 5 mvp + 2 feat.
	if deltas["alice"] != 37 {
		t.Errorf("alice delta = %d, want 37", deltas["alice"])
	}
	// -25 base + 2 feat.
	if deltas["bob"] != -23 {
		t.Errorf("bob delta = %d, want -23", deltas["bob"])
	}

	ctx := context.Background()
	prof, err := repo.FindStatsByUserID(ctx, "alice")
	if err != nil {
		t.Fatalf("alice profile: %v", err)
	}
	if prof.MMR != 137 || prof.WinStreak != 5 {
		t.Errorf("alice persisted (mmr=%d, streak=%d), want (137, 5)", prof.MMR, prof.WinStreak)
	}
	if got := len(repo.History()); got != 2 {
		t.Errorf("match records = %d, want 2", got)
	}

	if e.match.Status != StatusLobby {
		t.Errorf("status = %s, want lobby after game end", e.match.Status)
	}
	if a.Skill != "" {
		t.Error("skill assignment survived game end")
	}
}

func TestStartGameNeedsPitchPlayers(t *testing.T) {
	e, _ := newTestEngine(t)
	watcher := join(t, e, "alice")
	watcher.Team = world.TeamSpectator

	e.startGame()
	if e.match.Status != StatusLobby {
		t.Errorf("status = %s, want lobby with no on-pitch players", e.match.Status)
	}
}
