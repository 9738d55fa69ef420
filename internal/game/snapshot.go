package game

import "time"

// BallSnapshot is the authoritative ball state as broadcast to clients.
type BallSnapshot struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	VX           float64 `json:"vx"`
	VY           float64 `json:"vy"`
	Moving       bool    `json:"moving"`
	LastTouchID  string  `json:"lastTouchId"`
	KickSequence uint32  `json:"kickSequence"`
	ServerTick   uint64  `json:"serverTick"`
	Timestamp    int64   `json:"timestamp"` // unix ms
}

// PlayerSnapshot is one player's entry in the periodic physics update. The
// ghosted flag covers phasing players so clients skip collision prediction
// against them.
type PlayerSnapshot struct {
	ID                    string  `json:"id"`
	X                     float64 `json:"x"`
	Y                     float64 `json:"y"`
	VX                    float64 `json:"vx"`
	VY                    float64 `json:"vy"`
	IsGhosted             bool    `json:"isGhosted"`
	IsSpectator           bool    `json:"isSpectator"`
	LastProcessedSequence uint32  `json:"lastProcessedSequence"`
	Timestamp             int64   `json:"timestamp"`
}

// WorldSnapshot is a consistent view of the whole simulation, published
// atomically at every network tick for HTTP handlers and the debug renderer.
type WorldSnapshot struct {
	Ball       BallSnapshot     `json:"ball"`
	Players    []PlayerSnapshot `json:"players"`
	Status     MatchStatus      `json:"status"`
	ScoreRed   int              `json:"scoreRed"`
	ScoreBlue  int              `json:"scoreBlue"`
	Overtime   bool             `json:"overtime"`
	ServerTick uint64           `json:"serverTick"`
}

// ballSnapshot builds the current ball snapshot.
func (e *Engine) ballSnapshot() BallSnapshot {
	return BallSnapshot{
		X:            e.ball.X,
		Y:            e.ball.Y,
		VX:           e.ball.VX,
		VY:           e.ball.VY,
		Moving:       e.ball.Moving,
		LastTouchID:  e.ball.LastTouchID,
		KickSequence: e.ball.KickSequence,
		ServerTick:   e.serverTick,
		Timestamp:    time.Now().UnixMilli(),
	}
}

// emitBallState pushes an immediate ball snapshot, outside the network
// cadence. Called after every authoritative impulse so clients see the new
// kickSequence as soon as possible.
func (e *Engine) emitBallState() {
	e.emitter.ToRoom(RoomSoccer, EventBallState, e.ballSnapshot())
}

// broadcastSnapshots runs at the network tick: the ball snapshot, the player
// array with per-player input acks, and the atomically published world view.
func (e *Engine) broadcastSnapshots() {
	now := time.Now().UnixMilli()
	ball := e.ballSnapshot()

	players := make([]PlayerSnapshot, 0, len(e.order))
	for _, id := range e.order {
		p := e.players[id]
		players = append(players, PlayerSnapshot{
			ID:                    p.ID,
			X:                     p.X,
			Y:                     p.Y,
			VX:                    p.VX,
			VY:                    p.VY,
			IsGhosted:             p.Effects.Phasing,
			IsSpectator:           p.Spectating(),
			LastProcessedSequence: p.LastProcessedSeq,
			Timestamp:             now,
		})
	}

	e.emitter.ToRoom(RoomSoccer, EventBallState, ball)
	e.emitter.ToRoom(RoomSoccer, EventPlayersUpdate, players)
	e.metrics.SnapshotsSent.Inc()

	e.snapshot.Store(&WorldSnapshot{
		Ball:       ball,
		Players:    players,
		Status:     e.match.Status,
		ScoreRed:   e.match.ScoreRed,
		ScoreBlue:  e.match.ScoreBlue,
		Overtime:   e.match.Overtime,
		ServerTick: e.serverTick,
	})
}

// Snapshot returns the most recently published world view, or nil before the
// first broadcast. Safe from any goroutine.
func (e *Engine) Snapshot() *WorldSnapshot {
	return e.snapshot.Load()
}
