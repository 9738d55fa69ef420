// Package stats is the persistence boundary for player soccer profiles:
// stat allocations, MMR and match history. The simulation talks to it only
// through Repository; a database-backed implementation can be swapped in
// without touching the game loop.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when a player has no persisted profile. The caller
// treats this as "stats missing" and prompts the client to allocate.
var ErrNotFound = errors.New("stats: profile not found")

// Profile is a player's persisted soccer record.
type Profile struct {
	UserID    string `json:"userId"`
	Speed     int    `json:"speed"`
	KickPower int    `json:"kickPower"`
	Dribbling int    `json:"dribbling"`
	MMR       int    `json:"mmr"`
	WinStreak int    `json:"winStreak"`
}

// MatchRecord is one finished match from a player's perspective.
type MatchRecord struct {
	UserID        string    `json:"userId"`
	Won           bool      `json:"won"`
	Goals         int       `json:"goals"`
	Assists       int       `json:"assists"`
	Interceptions int       `json:"interceptions"`
	MVP           bool      `json:"mvp"`
	MMRDelta      int       `json:"mmrDelta"`
	PlayedAt      time.Time `json:"playedAt"`
}

// Repository is the persistence interface invoked at join and game end.
type Repository interface {
	FindStatsByUserID(ctx context.Context, userID string) (Profile, error)
	UpdateMMR(ctx context.Context, userID string, delta int, won bool) error
	AddMatchHistory(ctx context.Context, rec MatchRecord) error
}

// MMR arithmetic constants.
const (
	mmrBaseDelta     = 25
	mmrStreakBonus3  = 5
	mmrStreakBonus5  = 10
	mmrMVPBonus      = 5
	mmrFeatBonus     = 2
	mmrMaxFeats      = 3
)

// MMRDelta computes a player's rating change for one match. Winners gain the
// base delta plus streak, MVP and feat bonuses; losers lose the base delta
// softened by feat bonuses, never gaining from a loss.
func MMRDelta(won bool, winStreak int, mvp bool, feats int) int {
	if feats > mmrMaxFeats {
		feats = mmrMaxFeats
	}
	if feats < 0 {
		feats = 0
	}

	if !won {
		d := -mmrBaseDelta + feats*mmrFeatBonus
		if d > 0 {
			d = 0
		}
		return d
	}

	d := mmrBaseDelta
	if winStreak >= 5 {
		d += mmrStreakBonus5
	} else if winStreak >= 3 {
		d += mmrStreakBonus3
	}
	if mvp {
		d += mmrMVPBonus
	}
	d += feats * mmrFeatBonus
	return d
}

// MemoryRepository is an in-process Repository. It backs development and
// tests; production deployments replace it with the shared profile store.
type MemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	history  []MatchRecord
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]Profile)}
}

// Seed inserts or replaces a profile. Test helper.
func (m *MemoryRepository) Seed(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
}

// FindStatsByUserID looks up a persisted profile.
func (m *MemoryRepository) FindStatsByUserID(_ context.Context, userID string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return Profile{}, errors.Wrapf(ErrNotFound, "user %s", userID)
	}
	return p, nil
}

// UpdateMMR applies a rating delta and maintains the win streak.
func (m *MemoryRepository) UpdateMMR(_ context.Context, userID string, delta int, won bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		p = Profile{UserID: userID}
	}
	p.MMR += delta
	if p.MMR < 0 {
		p.MMR = 0
	}
	if won {
		p.WinStreak++
	} else {
		p.WinStreak = 0
	}
	m.profiles[userID] = p
	return nil
}

// AddMatchHistory appends a match record.
func (m *MemoryRepository) AddMatchHistory(_ context.Context, rec MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, rec)
	return nil
}

// History returns a copy of all recorded matches. Test helper.
func (m *MemoryRepository) History() []MatchRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MatchRecord, len(m.history))
	copy(out, m.history)
	return out
}
