package api

import (
	"encoding/json"
	"net/http"

	"soccer-arena/internal/game"
)

// SnapshotSource provides the latest published world view. The engine
// implements it; tests hand in a fixture.
type SnapshotSource interface {
	Snapshot() *game.WorldSnapshot
}

// FrameRenderer renders a world snapshot to a PNG. Optional; when absent the
// debug frame endpoint returns 404.
type FrameRenderer interface {
	RenderPNG(snap *game.WorldSnapshot) ([]byte, error)
}

type routerHandlers struct {
	snapshots SnapshotSource
	renderer  FrameRenderer
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleGetState returns the full latest world snapshot.
func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleGetPlayers returns only the player array.
func (h *routerHandlers) handleGetPlayers(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusOK, []game.PlayerSnapshot{})
		return
	}
	writeJSON(w, http.StatusOK, snap.Players)
}

// handleGetSkills returns the static skill configuration.
func (h *routerHandlers) handleGetSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, game.SkillTable)
}

// handleGetMatch returns the orchestrator summary: phase, score, overtime.
func (h *routerHandlers) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": game.StatusLobby, "scoreRed": 0, "scoreBlue": 0,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    snap.Status,
		"scoreRed":  snap.ScoreRed,
		"scoreBlue": snap.ScoreBlue,
		"overtime":  snap.Overtime,
		"tick":      snap.ServerTick,
	})
}

// handleDebugFrame renders the current pitch to a PNG for eyeballing the
// simulation without a game client.
func (h *routerHandlers) handleDebugFrame(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		http.NotFound(w, r)
		return
	}
	snap := h.snapshots.Snapshot()
	if snap == nil {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	png, err := h.renderer.RenderPNG(snap)
	if err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// handleHealth is the liveness probe.
func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
