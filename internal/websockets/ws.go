package websockets

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/scythe504/race24-backend/internal"
	"github.com/scythe504/race24-backend/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub owns the websocket connections and routes inbound events to the game.
// It implements game.Broadcaster: connection bookkeeping lives entirely
// here, so the game layer never touches a socket.
type Hub struct {
	game *game.Game

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	rooms   map[string]map[uuid.UUID]*client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*client),
		rooms:   make(map[string]map[uuid.UUID]*client),
	}
}

// Bind wires the game in after construction; the hub and the game reference
// each other.
func (h *Hub) Bind(g *game.Game) {
	h.game = g
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.Mutex
	playerID uuid.UUID
	roomCode string
	username string
}

func (c *client) identity() (uuid.UUID, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID, c.roomCode
}

func (c *client) setIdentity(playerID uuid.UUID, roomCode, username string) {
	c.mu.Lock()
	c.playerID = playerID
	c.roomCode = roomCode
	c.username = username
	c.mu.Unlock()
}

func (c *client) clearIdentity() {
	c.mu.Lock()
	c.playerID = uuid.Nil
	c.roomCode = ""
	c.username = ""
	c.mu.Unlock()
}

// HandleWebSocket upgrades the connection and starts the read/write pumps.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Hub.HandleWebSocket] upgrade failed: %v", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.dropClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Hub.readPump] unexpected close: %v", err)
			}
			return
		}
		c.hub.dispatch(c, raw)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch decodes the envelope and routes by event type.
func (h *Hub) dispatch(c *client, raw []byte) {
	var envelope internal.Message[json.RawMessage]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		h.sendError(c, game.CodeValidation, "malformed message", err.Error())
		return
	}

	switch envelope.Type {
	case internal.EventRoomCreate:
		h.handleRoomCreate(c, envelope.Data)
	case internal.EventRoomJoin:
		h.handleRoomJoin(c, envelope.Data)
	case internal.EventRoomLeave:
		h.handleRoomLeave(c, envelope.Data)
	case internal.EventGameStart:
		h.handleGameStart(c, envelope.Data)
	case internal.EventAnswerSubmit:
		h.handleAnswerSubmit(c, envelope.Data)
	case internal.EventPing:
		h.enqueue(c, internal.Message[struct{}]{Type: internal.EventPong})
	default:
		log.Printf("[Hub.dispatch] unknown message type: %s", envelope.Type)
		h.sendError(c, game.CodeValidation, "unknown message type", envelope.Type)
	}
}

func (h *Hub) handleRoomCreate(c *client, data json.RawMessage) {
	var payload internal.RoomCreatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(c, game.CodeValidation, "invalid room.create payload", err.Error())
		return
	}

	result, err := h.game.CreateRoom(payload.Username)
	if err != nil {
		h.sendGameError(c, err)
		return
	}

	c.setIdentity(result.HostPlayerID, result.RoomCode, payload.Username)
	h.register(c, result.HostPlayerID, result.RoomCode)

	h.enqueue(c, internal.Message[internal.RoomCreatedData]{
		Type: internal.EventRoomCreated,
		Data: internal.RoomCreatedData{
			RoomCode:     result.RoomCode,
			HostPlayerID: result.HostPlayerID,
			SessionToken: result.SessionToken,
			Settings:     result.Settings,
		},
	})
}

func (h *Hub) handleRoomJoin(c *client, data json.RawMessage) {
	var payload internal.RoomJoinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(c, game.CodeValidation, "invalid room.join payload", err.Error())
		return
	}

	result, err := h.game.JoinRoom(payload.RoomCode, payload.Username, payload.SessionToken)
	if err != nil {
		h.sendGameError(c, err)
		return
	}

	c.setIdentity(result.PlayerID, result.RoomCode, payload.Username)
	h.register(c, result.PlayerID, result.RoomCode)

	h.enqueue(c, internal.Message[internal.RoomJoinedData]{
		Type: internal.EventRoomJoined,
		Data: internal.RoomJoinedData{
			RoomCode:     result.RoomCode,
			PlayerID:     result.PlayerID,
			SessionToken: result.SessionToken,
			Players:      result.Players,
			State:        result.State,
		},
	})
}

func (h *Hub) handleRoomLeave(c *client, data json.RawMessage) {
	var payload internal.RoomLeavePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(c, game.CodeValidation, "invalid room.leave payload", err.Error())
		return
	}

	playerID, _ := c.identity()
	if playerID == uuid.Nil {
		h.sendError(c, game.CodeStateConflict, "not in a room", "")
		return
	}

	if err := h.game.LeaveRoom(payload.RoomCode, playerID, payload.SessionToken); err != nil {
		h.sendGameError(c, err)
		return
	}

	h.unregister(c)
	c.clearIdentity()
}

func (h *Hub) handleGameStart(c *client, data json.RawMessage) {
	var payload internal.GameStartPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(c, game.CodeValidation, "invalid game.start payload", err.Error())
		return
	}

	playerID, _ := c.identity()
	if err := h.game.StartGame(payload.RoomCode, playerID, payload.SessionToken); err != nil {
		h.sendGameError(c, err)
	}
}

func (h *Hub) handleAnswerSubmit(c *client, data json.RawMessage) {
	var payload internal.AnswerSubmitPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(c, game.CodeValidation, "invalid answer.submit payload", err.Error())
		return
	}

	playerID, _ := c.identity()
	ack := h.game.Submit(playerID, payload)
	h.enqueue(c, internal.Message[internal.AnswerAckData]{
		Type: internal.EventAnswerAck,
		Data: ack,
	})
}

// register attaches the client to the hub's routing tables under its player
// identity. A second connection for the same player replaces the first.
func (h *Hub) register(c *client, playerID uuid.UUID, roomCode string) {
	h.mu.Lock()
	if old, ok := h.clients[playerID]; ok && old != c {
		close(old.send)
	}
	h.clients[playerID] = c
	members, ok := h.rooms[roomCode]
	if !ok {
		members = make(map[uuid.UUID]*client)
		h.rooms[roomCode] = members
	}
	members[playerID] = c
	h.mu.Unlock()
}

// unregister detaches the client from the routing tables. It reports
// whether the client was still the registered connection for its player; a
// connection superseded by a reconnect is not.
func (h *Hub) unregister(c *client) bool {
	playerID, roomCode := c.identity()
	if playerID == uuid.Nil {
		return false
	}

	removed := false
	h.mu.Lock()
	if current, ok := h.clients[playerID]; ok && current == c {
		delete(h.clients, playerID)
		removed = true
	}
	if members, ok := h.rooms[roomCode]; ok {
		if current, ok := members[playerID]; ok && current == c {
			delete(members, playerID)
		}
		if len(members) == 0 {
			delete(h.rooms, roomCode)
		}
	}
	h.mu.Unlock()
	return removed
}

// dropClient handles a closed connection: the player stays in the room so a
// reconnect with the same session token resumes the identity.
func (h *Hub) dropClient(c *client) {
	playerID, roomCode := c.identity()
	if h.unregister(c) && roomCode != "" {
		h.game.HandleDisconnect(roomCode, playerID)
	}
}

// =============================================================================
// game.Broadcaster implementation
// =============================================================================

func (h *Hub) SendToRoom(roomCode string, event any) {
	h.sendToRoomFiltered(roomCode, uuid.Nil, event)
}

func (h *Hub) SendToRoomExcept(roomCode string, excludeID uuid.UUID, event any) {
	h.sendToRoomFiltered(roomCode, excludeID, event)
}

func (h *Hub) sendToRoomFiltered(roomCode string, excludeID uuid.UUID, event any) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Hub.SendToRoom] room=%s: marshal failed: %v", roomCode, err)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[roomCode]))
	for playerID, member := range h.rooms[roomCode] {
		if playerID != excludeID {
			targets = append(targets, member)
		}
	}
	h.mu.RUnlock()

	for _, member := range targets {
		member.trySend(msg)
	}
}

func (h *Hub) SendToPlayer(playerID uuid.UUID, event any) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Hub.SendToPlayer] player=%s: marshal failed: %v", playerID, err)
		return
	}

	h.mu.RLock()
	c, ok := h.clients[playerID]
	h.mu.RUnlock()
	if ok {
		c.trySend(msg)
	}
}

// trySend enqueues without blocking; a client that cannot drain its buffer
// loses the message rather than stalling a broadcast.
func (c *client) trySend(msg []byte) {
	defer func() {
		// Send on a channel closed by a replacing connection.
		recover()
	}()
	select {
	case c.send <- msg:
	default:
		playerID, _ := c.identity()
		log.Printf("[Hub.trySend] dropping message for slow client %s", playerID)
	}
}

func (h *Hub) enqueue(c *client, event any) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Hub.enqueue] marshal failed: %v", err)
		return
	}
	c.trySend(msg)
}

func (h *Hub) sendError(c *client, code, message, details string) {
	h.enqueue(c, internal.Message[internal.ErrorData]{
		Type: internal.EventError,
		Data: internal.ErrorData{Code: code, Message: message, Details: details},
	})
}

func (h *Hub) sendGameError(c *client, err error) {
	if gameErr, ok := err.(*game.GameError); ok {
		h.sendError(c, gameErr.Code, gameErr.Message, "")
		return
	}
	h.sendError(c, game.CodeValidation, err.Error(), "")
}
