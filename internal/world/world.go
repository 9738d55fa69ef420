// Package world holds the immutable static geometry of the soccer pitch:
// collision rectangles, goal zones and team spawn points. Everything here is
// loaded once at startup and read concurrently without synchronisation.
package world

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Team identifies which side of the pitch a player or goal belongs to.
type Team string

const (
	TeamRed       Team = "red"
	TeamBlue      Team = "blue"
	TeamSpectator Team = "spectator"
	TeamNone      Team = "none"
)

// Opponent returns the opposing on-pitch team, or TeamNone for non-playing
// teams.
func (t Team) Opponent() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	default:
		return TeamNone
	}
}

// OnPitch reports whether the team participates in the match.
func (t Team) OnPitch() bool {
	return t == TeamRed || t == TeamBlue
}

// Rect is an axis-aligned collision rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// ClosestPoint returns the point on the rectangle nearest to (x, y).
func (r Rect) ClosestPoint(x, y float64) (float64, float64) {
	cx := x
	if cx < r.X {
		cx = r.X
	} else if cx > r.X+r.Width {
		cx = r.X + r.Width
	}
	cy := y
	if cy < r.Y {
		cy = r.Y
	} else if cy > r.Y+r.Height {
		cy = r.Y + r.Height
	}
	return cx, cy
}

// GoalZone is a scoring region. A ball entering the zone scores for the
// opposing team.
type GoalZone struct {
	Name   string  `json:"name"`
	Team   Team    `json:"team"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the point lies inside the goal zone.
func (g GoalZone) Contains(x, y float64) bool {
	return x >= g.X && x <= g.X+g.Width && y >= g.Y && y <= g.Y+g.Height
}

// Spawn is a fixed spawn position.
type Spawn struct {
	X, Y float64
}

// Team spawn arrays are compile-time constants: index i is the spawn of the
// i-th player assigned to that team.
var (
	RedSpawns = []Spawn{
		{X: 880, Y: 800}, {X: 620, Y: 500}, {X: 620, Y: 1100},
		{X: 380, Y: 650}, {X: 380, Y: 950}, {X: 1200, Y: 800},
	}
	BlueSpawns = []Spawn{
		{X: 2640, Y: 800}, {X: 2900, Y: 500}, {X: 2900, Y: 1100},
		{X: 3140, Y: 650}, {X: 3140, Y: 950}, {X: 2320, Y: 800},
	}
	SpectatorSpawn = Spawn{X: 1760, Y: 120}
	BallSpawn      = Spawn{X: 1760, Y: 800}
)

// World is the immutable static world.
type World struct {
	Colliders []Rect
	Goals     []GoalZone
}

type collisionFile struct {
	Collisions []Rect `json:"collisions"`
}

type goalFile struct {
	Goals []GoalZone `json:"goals"`
}

// Load reads collisions.json and goals.json from dir.
func Load(dir string) (*World, error) {
	w := &World{}

	data, err := os.ReadFile(filepath.Join(dir, "collisions.json"))
	if err != nil {
		return nil, errors.Wrap(err, "reading collision file")
	}
	var cf collisionFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, errors.Wrap(err, "parsing collision file")
	}
	w.Colliders = cf.Collisions

	data, err = os.ReadFile(filepath.Join(dir, "goals.json"))
	if err != nil {
		return nil, errors.Wrap(err, "reading goal file")
	}
	var gf goalFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return nil, errors.Wrap(err, "parsing goal file")
	}
	for _, g := range gf.Goals {
		if !g.Team.OnPitch() {
			return nil, errors.Errorf("goal zone %q has invalid team %q", g.Name, g.Team)
		}
	}
	w.Goals = gf.Goals

	return w, nil
}

// GoalAt returns the goal zone containing the point, if any.
func (w *World) GoalAt(x, y float64) (GoalZone, bool) {
	for _, g := range w.Goals {
		if g.Contains(x, y) {
			return g, true
		}
	}
	return GoalZone{}, false
}

// SpawnFor returns the indexed spawn for a team. Index wraps so late joiners
// always get a position.
func SpawnFor(team Team, index int) Spawn {
	switch team {
	case TeamRed:
		return RedSpawns[index%len(RedSpawns)]
	case TeamBlue:
		return BlueSpawns[index%len(BlueSpawns)]
	default:
		return SpectatorSpawn
	}
}

// AttackDirection returns the x direction of the team's attack: red attacks
// toward +x (blue's goal at the far end), blue toward -x.
func AttackDirection(team Team) float64 {
	if team == TeamBlue {
		return -1
	}
	return 1
}

// OpponentGoalCenter returns the auto-aim target used by power shots.
func OpponentGoalCenter(team Team) (x, y float64) {
	if team == TeamBlue {
		return 120, 800
	}
	return 3400, 800
}
