package game

import "soccer-arena/internal/world"

// RoomSoccer is the fan-out room every player in the soccer scene joins.
const RoomSoccer = "scene:SoccerMap"

// Outbound event names. The transport wraps each payload in an
// {event, data} envelope.
const (
	EventBallState         = "ball:state"
	EventPlayersUpdate     = "players:physicsUpdate"
	EventBallKicked        = "ball:kicked"
	EventBallIntercepted   = "ball:intercepted"
	EventGoalScored        = "goal:scored"
	EventPlayerReset       = "soccer:playerReset"
	EventTeamAssigned      = "soccer:teamAssigned"
	EventGameReset         = "soccer:gameReset"
	EventSelectionStarted  = "soccer:selectionPhaseStarted"
	EventSelectionUpdate   = "soccer:selectionUpdate"
	EventSkillPicked       = "soccer:skillPicked"
	EventStartMidGamePick  = "soccer:startMidGamePick"
	EventSkillActivated    = "soccer:skillActivated"
	EventSkillEnded        = "soccer:skillEnded"
	EventSkillTriggered    = "soccer:skillTriggered"
	EventBlinkActivated    = "soccer:blinkActivated"
	EventGameStarted       = "soccer:gameStarted"
	EventOvertime          = "soccer:overtime"
	EventTimerUpdate       = "soccer:timerUpdate"
	EventGameEnd           = "soccer:gameEnd"
	EventGameState         = "soccer:gameState"
	EventSkillConfig       = "soccer:skillConfig"
	EventPlayerList        = "soccer:playerList"
	EventStatsMissing      = "soccer:statsMissing"
)

// Emitter delivers events to connected clients, either to a named room or
// to one player. The websocket hub implements it; tests substitute a
// recorder. Implementations must be safe to call from the simulation loop.
type Emitter interface {
	ToRoom(room, event string, data interface{})
	ToPlayer(playerID, event string, data interface{})
}

// NopEmitter discards all events. Useful for tests exercising pure
// simulation behavior.
type NopEmitter struct{}

func (NopEmitter) ToRoom(string, string, interface{})   {}
func (NopEmitter) ToPlayer(string, string, interface{}) {}

// Edge-triggered event payloads.

// KickedEvent acknowledges an accepted kick, echoing the client's local
// kick id so the predicting client can match it up.
type KickedEvent struct {
	KickerID     string `json:"kickerId"`
	KickSequence uint32 `json:"kickSequence"`
	LocalKickID  string `json:"localKickId,omitempty"`
}

// InterceptedEvent fires when the touch chain crosses teams.
type InterceptedEvent struct {
	PlayerID   string `json:"playerId"`
	PreviousID string `json:"previousId"`
}

// GoalScoredEvent announces a goal before the deferred reset.
type GoalScoredEvent struct {
	ScoringTeam world.Team `json:"scoringTeam"`
	ScorerID    string     `json:"scorerId,omitempty"`
	AssistID    string     `json:"assistId,omitempty"`
	ScoreRed    int        `json:"scoreRed"`
	ScoreBlue   int        `json:"scoreBlue"`
	GoalName    string     `json:"goalName"`
}

// PlayerResetEvent reports a spawn teleport after a goal or reset.
type PlayerResetEvent struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// TeamAssignedEvent reports a lobby team change.
type TeamAssignedEvent struct {
	PlayerID string     `json:"playerId"`
	Team     world.Team `json:"team"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
}

// SelectionStartedEvent opens the skill selection phase.
type SelectionStartedEvent struct {
	Order      []string  `json:"order"`
	Available  []SkillID `json:"available"`
	Picker     string    `json:"picker"`
	DeadlineMs int64     `json:"deadlineMs"`
}

// SelectionUpdateEvent advances the pick turn.
type SelectionUpdateEvent struct {
	Picker     string    `json:"picker"`
	Available  []SkillID `json:"available"`
	DeadlineMs int64     `json:"deadlineMs"`
}

// SkillPickedEvent reports one completed pick.
type SkillPickedEvent struct {
	PlayerID string  `json:"playerId"`
	SkillID  SkillID `json:"skillId"`
	AutoPick bool    `json:"autoPick"`
}

// MidGamePickEvent prompts a late joiner to pick a skill.
type MidGamePickEvent struct {
	Available []SkillID `json:"available"`
}

// SkillActivatedEvent reports a successful skill activation.
type SkillActivatedEvent struct {
	PlayerID string  `json:"playerId"`
	SkillID  SkillID `json:"skillId"`
	Duration int64   `json:"durationMs"`
}

// SkillEndedEvent reports an effect expiry.
type SkillEndedEvent struct {
	PlayerID string  `json:"playerId"`
	SkillID  SkillID `json:"skillId"`
}

// SkillTriggeredEvent reports a two-stage skill firing (lurking intercept).
type SkillTriggeredEvent struct {
	PlayerID string  `json:"playerId"`
	SkillID  SkillID `json:"skillId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// BlinkActivatedEvent reports a blink teleport with both endpoints.
type BlinkActivatedEvent struct {
	PlayerID string  `json:"playerId"`
	FromX    float64 `json:"fromX"`
	FromY    float64 `json:"fromY"`
	ToX      float64 `json:"toX"`
	ToY      float64 `json:"toY"`
}

// GameStartedEvent opens the active phase.
type GameStartedEvent struct {
	DurationSec int                `json:"durationSec"`
	Skills      map[string]SkillID `json:"skills"`
}

// OvertimeEvent announces sudden overtime on a tie.
type OvertimeEvent struct {
	DurationSec int `json:"durationSec"`
}

// TimerUpdateEvent carries the whole-second match clock, emitted at 1 Hz.
type TimerUpdateEvent struct {
	SecondsRemaining int  `json:"secondsRemaining"`
	Overtime         bool `json:"overtime"`
}

// MMRUpdate is one player's rating change at game end.
type MMRUpdate struct {
	PlayerID string `json:"playerId"`
	Delta    int    `json:"delta"`
	MVP      bool   `json:"mvp"`
	Feats    int    `json:"feats"`
}

// GameEndEvent closes the match.
type GameEndEvent struct {
	Winner     world.Team  `json:"winner"`
	ScoreRed   int         `json:"scoreRed"`
	ScoreBlue  int         `json:"scoreBlue"`
	MVP        string      `json:"mvp"`
	MMRUpdates []MMRUpdate `json:"mmrUpdates"`
}

// GameResetEvent reports a full return to lobby.
type GameResetEvent struct {
	ScoreRed  int `json:"scoreRed"`
	ScoreBlue int `json:"scoreBlue"`
}
