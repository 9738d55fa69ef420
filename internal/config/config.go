// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all simulation and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimulationConfig holds the timing knobs of the authoritative loop.
// The physics tick is shared with clients; changing it breaks prediction.
type SimulationConfig struct {
	PhysicsTick      time.Duration // Fixed physics timestep
	NetworkTick      time.Duration // Snapshot broadcast period
	GameDuration     time.Duration // Regulation time
	Overtime         time.Duration // Added once on a tie
	KickCooldown     time.Duration // Minimum gap between kicks per player
	DribbleLockout   time.Duration // Dribble rejected this long after any kick
	LagCompWindow    time.Duration // Maximum history rewind for kick validation
	GoalResetDelay   time.Duration // Pause between a goal and the spawn reset
	SelectionTurn    time.Duration // Per-player skill pick deadline
	UseLatestInput   bool          // Comparison mode: apply only the newest queued input
	MaxFrameCatchup  int           // Physics steps allowed per wake (spiral guard)
	InputQueueCap    int           // Per-player pending input cap (~2s at 8ms cadence)
	HistorySamples   int           // Position history ring size (~1s at 16ms)
	MaxSoccerPlayers int           // Hard cap of simultaneous on-pitch players
}

// DefaultSimulation returns the default simulation configuration.
func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		PhysicsTick:      16 * time.Millisecond,
		NetworkTick:      25 * time.Millisecond, // 40 Hz
		GameDuration:     300 * time.Second,
		Overtime:         60 * time.Second,
		KickCooldown:     300 * time.Millisecond,
		DribbleLockout:   100 * time.Millisecond,
		LagCompWindow:    500 * time.Millisecond,
		GoalResetDelay:   3 * time.Second,
		SelectionTurn:    30 * time.Second,
		UseLatestInput:   false,
		MaxFrameCatchup:  10,
		InputQueueCap:    120,
		HistorySamples:   60,
		MaxSoccerPlayers: 12,
	}
}

// SimulationFromEnv returns simulation configuration with environment overrides.
// Environment variables take precedence over defaults.
func SimulationFromEnv() SimulationConfig {
	cfg := DefaultSimulation()

	if ms := getEnvInt("PHYSICS_TICK_MS", 0); ms > 0 {
		cfg.PhysicsTick = time.Duration(ms) * time.Millisecond
	}
	if ms := getEnvInt("NETWORK_TICK_MS", 0); ms > 0 {
		cfg.NetworkTick = time.Duration(ms) * time.Millisecond
	}
	if s := getEnvInt("GAME_DURATION_SEC", 0); s > 0 {
		cfg.GameDuration = time.Duration(s) * time.Second
	}
	if s := getEnvInt("OVERTIME_SEC", 0); s > 0 {
		cfg.Overtime = time.Duration(s) * time.Second
	}
	if ms := getEnvInt("KICK_COOLDOWN_MS", 0); ms > 0 {
		cfg.KickCooldown = time.Duration(ms) * time.Millisecond
	}
	if ms := getEnvInt("LAG_COMP_WINDOW_MS", 0); ms > 0 {
		cfg.LagCompWindow = time.Duration(ms) * time.Millisecond
	}
	if os.Getenv("USE_LATEST_INPUT_ONLY") == "true" {
		cfg.UseLatestInput = true
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP/WebSocket server settings.
type ServerConfig struct {
	Port      int
	JWTSecret string // HS256 key for bearer token verification
	DataDir   string // Directory with collisions.json and goals.json
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:    3000,
		DataDir: "./data",
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if s := os.Getenv("JWT_SECRET"); s != "" {
		cfg.JWTSecret = s
	}
	if d := os.Getenv("DATA_DIR"); d != "" {
		cfg.DataDir = d
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Simulation SimulationConfig
	Server     ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Simulation: SimulationFromEnv(),
		Server:     ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
