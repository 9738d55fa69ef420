package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"soccer-arena/internal/game"
	"soccer-arena/internal/physics"
)

const (
	// MaxWSConnectionsTotal caps the process-wide WebSocket connections.
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP caps connections per client IP.
	MaxWSConnectionsPerIP = 10

	authTimeout    = 10 * time.Second
	writeTimeout   = 5 * time.Second
	pongTimeout    = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 8192
	clientSendBuf  = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("⚠️ WebSocket rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// EngineInterface is the slice of the simulation the transport drives.
// Mock it in tests instead of running the loop.
type EngineInterface interface {
	Join(ctx context.Context, playerID string) error
	Leave(playerID string)
	QueueInputs(playerID string, inputs []physics.Input)
	Kick(cmd game.KickCommand)
	Dribble(playerID string)
	ActivateSkill(playerID string, id game.SkillID, facing float64)
	AssignTeam(playerID string)
	ResetGame()
	StartGame()
	RandomizeTeams()
	PickSkill(playerID string, id game.SkillID)
	RequestGameState(playerID string)
	RequestSkillConfig(playerID string)
	RequestPlayers(playerID string)
	SceneChange(playerID, newScene string)
}

// envelope is the wire format in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// wsClient is one authenticated connection with its write pump.
type wsClient struct {
	conn     *websocket.Conn
	ip       string
	playerID string
	send     chan []byte
	closed   sync.Once
}

func (c *wsClient) close() {
	c.closed.Do(func() {
		close(c.send)
	})
}

// enqueue drops the message when the client's buffer is full; a slow client
// loses snapshots rather than stalling the hub.
func (c *wsClient) enqueue(msg []byte) {
	defer func() { recover() }() // racing a close loses one message, nothing more
	select {
	case c.send <- msg:
		wsMessagesSent.Inc()
	default:
		wsSendDropped.Inc()
	}
}

// Hub owns every WebSocket connection and implements the simulation's
// Emitter: room fan-out and per-player delivery.
type Hub struct {
	engine   EngineInterface
	verifier *TokenVerifier

	mu       sync.RWMutex
	clients  map[*wsClient]bool
	byPlayer map[string]*wsClient
	rooms    map[string]map[*wsClient]bool

	wsLimiter *WebSocketConnLimiter
}

// NewHub creates a hub. It is ready immediately; there is no Run goroutine,
// delivery happens on the caller's goroutine through buffered per-client
// channels.
func NewHub(engine EngineInterface, verifier *TokenVerifier) *Hub {
	return &Hub{
		engine:    engine,
		verifier:  verifier,
		clients:   make(map[*wsClient]bool),
		byPlayer:  make(map[string]*wsClient),
		rooms:     make(map[string]map[*wsClient]bool),
		wsLimiter: NewWebSocketConnLimiter(MaxWSConnectionsPerIP),
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ToRoom sends an event to every client joined to the room.
func (h *Hub) ToRoom(room, event string, data interface{}) {
	msg, err := json.Marshal(outEnvelope{Event: event, Data: data})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		c.enqueue(msg)
	}
}

// ToPlayer sends an event to one player's connection, if present.
func (h *Hub) ToPlayer(playerID, event string, data interface{}) {
	msg, err := json.Marshal(outEnvelope{Event: event, Data: data})
	if err != nil {
		return
	}
	h.mu.RLock()
	c := h.byPlayer[playerID]
	h.mu.RUnlock()
	if c != nil {
		c.enqueue(msg)
	}
}

// joinRoom adds a client to a named room.
func (h *Hub) joinRoom(room string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*wsClient]bool)
	}
	h.rooms[room][c] = true
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	// One connection per player: a reconnect displaces the old socket.
	if old, ok := h.byPlayer[c.playerID]; ok {
		h.dropLocked(old)
		old.conn.Close()
	}
	h.clients[c] = true
	h.byPlayer[c.playerID] = c
	wsConnectionsActive.Set(float64(len(h.clients)))
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	h.dropLocked(c)
	wsConnectionsActive.Set(float64(len(h.clients)))
	h.mu.Unlock()

	h.wsLimiter.Release(c.ip)
	c.close()
	c.conn.Close()
}

func (h *Hub) dropLocked(c *wsClient) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	if h.byPlayer[c.playerID] == c {
		delete(h.byPlayer, c.playerID)
	}
	for _, members := range h.rooms {
		delete(members, c)
	}
}

// HandleWebSocket upgrades the connection, authenticates the first message
// and runs the read loop until disconnect.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket rejected from %s: per-IP limit", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	playerID, err := h.authenticate(conn)
	if err != nil {
		log.Printf("⚠️ WebSocket auth failed from %s: %v", ip, err)
		RecordConnectionRejected("auth")
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth required"),
			time.Now().Add(writeTimeout))
		conn.Close()
		h.wsLimiter.Release(ip)
		return
	}

	c := &wsClient{conn: conn, ip: ip, playerID: playerID, send: make(chan []byte, clientSendBuf)}
	h.register(c)
	log.Printf("📱 client connected: %s from %s (%d total)", playerID, ip, h.ClientCount())

	go h.writeLoop(c)
	go h.readLoop(c)
}

// authenticate waits for the first message, which must be an auth envelope
// carrying a valid bearer token.
func (h *Hub) authenticate(conn *websocket.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event != "auth" {
		return "", errAuthRequired
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return "", errAuthRequired
	}
	return h.verifier.Verify(payload.Token)
}

var errAuthRequired = errors.New("first message must be auth {token}")

// writeLoop drains the send buffer to the socket and keeps the connection
// alive with pings.
func (h *Hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// readLoop parses inbound envelopes and forwards them into the simulation
// mailbox. Malformed messages are dropped; the loop ends on any read error.
func (h *Hub) readLoop(c *wsClient) {
	defer func() {
		h.unregister(c)
		h.engine.Leave(c.playerID)
		log.Printf("📱 client disconnected: %s (%d remain)", c.playerID, h.ClientCount())
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		h.dispatch(c, env)
	}
}

// dispatch routes one inbound envelope. The player id always comes from the
// authenticated connection, never from the payload.
func (h *Hub) dispatch(c *wsClient, env envelope) {
	wsMessagesReceived.WithLabelValues(env.Event).Inc()
	id := c.playerID

	switch env.Event {
	case "playerJoin":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.engine.Join(ctx, id); err != nil {
			log.Printf("❌ join failed for %s: %v", id, err)
			return
		}
		h.joinRoom(game.RoomSoccer, c)

	case "playerInputBatch":
		var payload struct {
			Inputs []physics.Input `json:"inputs"`
		}
		if json.Unmarshal(env.Data, &payload) == nil && len(payload.Inputs) > 0 {
			h.engine.QueueInputs(id, payload.Inputs)
		}

	case "ball:kick":
		var payload struct {
			Angle       float64 `json:"angle"`
			KickPower   float64 `json:"kickPower"`
			Timestamp   int64   `json:"timestamp"`
			LocalKickID string  `json:"localKickId"`
		}
		if json.Unmarshal(env.Data, &payload) == nil {
			h.engine.Kick(game.KickCommand{
				PlayerID:    id,
				Angle:       payload.Angle,
				BasePower:   payload.KickPower,
				LocalKickID: payload.LocalKickID,
				ClientTick:  payload.Timestamp,
			})
		}

	case "ball:dribble":
		h.engine.Dribble(id)

	case "soccer:activateSkill":
		var payload struct {
			SkillID         game.SkillID `json:"skillId"`
			FacingDirection float64      `json:"facingDirection"`
		}
		if json.Unmarshal(env.Data, &payload) == nil {
			h.engine.ActivateSkill(id, payload.SkillID, payload.FacingDirection)
		}

	case "soccer:pickSkill":
		var payload struct {
			SkillID game.SkillID `json:"skillId"`
		}
		if json.Unmarshal(env.Data, &payload) == nil {
			h.engine.PickSkill(id, payload.SkillID)
		}

	case "soccer:assignTeam":
		h.engine.AssignTeam(id)
	case "soccer:resetGame":
		h.engine.ResetGame()
	case "soccer:startGame":
		h.engine.StartGame()
	case "soccer:randomizeTeams":
		h.engine.RandomizeTeams()
	case "soccer:requestGameState":
		h.engine.RequestGameState(id)
	case "soccer:requestSkillConfig":
		h.engine.RequestSkillConfig(id)
	case "soccer:getPlayers":
		h.engine.RequestPlayers(id)

	case "player:sceneChange":
		var payload struct {
			NewScene string `json:"newScene"`
		}
		if json.Unmarshal(env.Data, &payload) == nil {
			h.engine.SceneChange(id, payload.NewScene)
		}
	}
}
