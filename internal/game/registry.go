package game

import (
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scythe504/race24-backend/internal"
)

// =============================================================================
// ROOM REGISTRY
// =============================================================================

// Registry owns the room-code -> Room mapping and the lifetime of rooms and
// players. The registry lock only guards the map itself; all room-scoped
// state is guarded by each room's own mutex, so unrelated rooms never
// contend. The registry never broadcasts; callers do that after a call
// succeeds.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*internal.Room

	oracle   Oracle
	defaults internal.RoomSettings
}

func NewRegistry(oracle Oracle, defaults internal.RoomSettings) *Registry {
	return &Registry{
		rooms:    make(map[string]*internal.Room),
		oracle:   oracle,
		defaults: defaults,
	}
}

type CreateRoomResult struct {
	RoomCode     string
	HostPlayerID uuid.UUID
	SessionToken string
	Settings     internal.RoomSettings
	CreatedAt    time.Time
}

type JoinRoomResult struct {
	RoomCode     string
	PlayerID     uuid.UUID
	SessionToken string
	Players      []internal.PlayerPublic
	State        internal.RoomState
	Reconnected  bool
}

type RemovePlayerResult struct {
	Removed      internal.PlayerPublic
	RoomDeleted  bool
	NewHostID    *uuid.UUID
	TotalPlayers int
	Generation   int64
}

// CreateRoom allocates a fresh room with the given host. The full problem
// sequence is generated up front, before the room is published, so no
// submission ever waits on the oracle.
func (r *Registry) CreateRoom(hostUsername string) (*CreateRoomResult, error) {
	hostUsername = strings.TrimSpace(hostUsername)
	if hostUsername == "" {
		return nil, ErrEmptyUsername
	}

	rng := rand.New(rand.NewSource(rand.Int63()))
	problems, err := GenerateProblems(r.oracle, rng, r.defaults.Rounds, internal.DefaultTarget, internal.MaxProblemAttempts)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	hostID := uuid.New()
	token := uuid.NewString()
	host := &internal.Player{
		ID:           hostID,
		Username:     hostUsername,
		SessionToken: token,
		JoinedAt:     now,
		LastSeenAt:   now,
	}

	r.mu.Lock()
	code, err := r.allocateCodeLocked(rng)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	room := &internal.Room{
		Code:           code,
		HostPlayerID:   hostID,
		Settings:       r.defaults,
		Players:        map[uuid.UUID]*internal.Player{hostID: host},
		Problems:       problems,
		State:          internal.StateLobby,
		CreatedAt:      now,
		LastActivityAt: now,
		Generation:     now.UnixNano(),
	}
	r.rooms[code] = room
	r.mu.Unlock()

	log.Printf("[Registry.CreateRoom] room=%s: created with host %s (%s), %d problems", code, hostUsername, hostID, len(problems))
	return &CreateRoomResult{
		RoomCode:     code,
		HostPlayerID: hostID,
		SessionToken: token,
		Settings:     room.Settings,
		CreatedAt:    now,
	}, nil
}

// allocateCodeLocked draws random codes until one is unused. Caller holds
// the registry write lock.
func (r *Registry) allocateCodeLocked(rng *rand.Rand) (string, error) {
	for attempt := 0; attempt < internal.MaxRoomCodeAttempts; attempt++ {
		buf := make([]byte, internal.RoomCodeLength)
		for i := range buf {
			buf[i] = internal.RoomCodeAlphabet[rng.Intn(len(internal.RoomCodeAlphabet))]
		}
		code := string(buf)
		if _, exists := r.rooms[code]; !exists {
			return code, nil
		}
	}
	return "", ErrCodesExhausted
}

// JoinRoom adds a new player to a lobby room, or re-attaches an existing
// identity when a valid session token is presented.
func (r *Registry) JoinRoom(roomCode, username, sessionToken string) (*JoinRoomResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}

	room := r.GetRoom(roomCode)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	now := time.Now()

	// Reconnection path: a valid token re-attaches the existing player
	// regardless of room capacity or game state.
	if sessionToken != "" {
		for _, p := range room.Players {
			if p.SessionToken == sessionToken {
				p.LastSeenAt = now
				p.DisconnectedAt = nil
				room.Touch(now)
				log.Printf("[Registry.JoinRoom] room=%s: player %s (%s) reconnected", room.Code, p.Username, p.ID)
				return &JoinRoomResult{
					RoomCode:     room.Code,
					PlayerID:     p.ID,
					SessionToken: sessionToken,
					Players:      room.PublicPlayers(),
					State:        room.State,
					Reconnected:  true,
				}, nil
			}
		}
	}

	if room.IsFull() {
		return nil, ErrRoomFull
	}
	if room.State != internal.StateLobby {
		return nil, ErrGameInProgress
	}
	if room.FindByName(username) != nil {
		return nil, ErrNameTaken
	}

	playerID := uuid.New()
	token := uuid.NewString()
	room.Players[playerID] = &internal.Player{
		ID:           playerID,
		Username:     username,
		SessionToken: token,
		JoinedAt:     now,
		LastSeenAt:   now,
	}
	room.Touch(now)

	log.Printf("[Registry.JoinRoom] room=%s: player %s (%s) joined, %d players total", room.Code, username, playerID, len(room.Players))
	return &JoinRoomResult{
		RoomCode:     room.Code,
		PlayerID:     playerID,
		SessionToken: token,
		Players:      room.PublicPlayers(),
		State:        room.State,
	}, nil
}

// RemovePlayer deletes the player and their session token. An emptied room
// is deleted; a departing host hands the role to an arbitrary remaining
// player.
func (r *Registry) RemovePlayer(roomCode string, playerID uuid.UUID) (*RemovePlayerResult, error) {
	room := r.GetRoom(roomCode)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.Mu.Lock()
	player, ok := room.Players[playerID]
	if !ok {
		room.Mu.Unlock()
		return nil, ErrPlayerNotFound
	}

	result := &RemovePlayerResult{
		Removed:    player.ToPublic(),
		Generation: room.Generation,
	}
	delete(room.Players, playerID)
	result.TotalPlayers = len(room.Players)

	if len(room.Players) == 0 {
		result.RoomDeleted = true
	} else if room.HostPlayerID == playerID {
		for id := range room.Players {
			room.HostPlayerID = id
			newHost := id
			result.NewHostID = &newHost
			break
		}
		log.Printf("[Registry.RemovePlayer] room=%s: transferred host to %s", room.Code, room.HostPlayerID)
	}
	room.Touch(time.Now())
	room.Mu.Unlock()

	if result.RoomDeleted {
		r.mu.Lock()
		delete(r.rooms, room.Code)
		r.mu.Unlock()
		log.Printf("[Registry.RemovePlayer] room=%s: removed empty room", room.Code)
	}

	log.Printf("[Registry.RemovePlayer] room=%s: removed player %s (%s)", room.Code, result.Removed.Username, playerID)
	return result, nil
}

// MarkDisconnected flags a player as disconnected without removing them, so
// the session token keeps working for reconnection until the room is
// reaped.
func (r *Registry) MarkDisconnected(roomCode string, playerID uuid.UUID) (*internal.PlayerPublic, int, error) {
	room := r.GetRoom(roomCode)
	if room == nil {
		return nil, 0, ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	player, ok := room.Players[playerID]
	if !ok {
		return nil, 0, ErrPlayerNotFound
	}

	now := time.Now()
	player.DisconnectedAt = &now
	room.Touch(now)

	public := player.ToPublic()
	return &public, len(room.Players), nil
}

// GetRoom returns the room for a code, case-insensitively, or nil.
func (r *Registry) GetRoom(roomCode string) *internal.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[strings.ToUpper(roomCode)]
}

// ValidateSession reports whether the token belongs to the given player in
// the given room. Every privileged operation gates on this.
func (r *Registry) ValidateSession(roomCode string, playerID uuid.UUID, sessionToken string) bool {
	room := r.GetRoom(roomCode)
	if room == nil {
		return false
	}

	room.Mu.RLock()
	defer room.Mu.RUnlock()

	player, ok := room.Players[playerID]
	return ok && sessionToken != "" && player.SessionToken == sessionToken
}

func (r *Registry) IsHost(roomCode string, playerID uuid.UUID) bool {
	room := r.GetRoom(roomCode)
	if room == nil {
		return false
	}

	room.Mu.RLock()
	defer room.Mu.RUnlock()
	return room.HostPlayerID == playerID
}

type ReapedRoom struct {
	Code       string
	Generation int64
}

// ReapIdleRooms removes rooms whose last activity is older than maxAge,
// regardless of state. It returns the reaped room identities so the caller
// can cancel their timers.
func (r *Registry) ReapIdleRooms(maxAge time.Duration) []ReapedRoom {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	var reaped []ReapedRoom
	for code, room := range r.rooms {
		room.Mu.RLock()
		idle := room.LastActivityAt.Before(cutoff)
		generation := room.Generation
		room.Mu.RUnlock()

		if idle {
			delete(r.rooms, code)
			reaped = append(reaped, ReapedRoom{Code: code, Generation: generation})
		}
	}
	r.mu.Unlock()

	if len(reaped) > 0 {
		log.Printf("[Registry.ReapIdleRooms] cleaned up %d inactive rooms", len(reaped))
	}
	return reaped
}

// RegistryStats summarises the live rooms for the stats endpoint.
type RegistryStats struct {
	TotalRooms   int                        `json:"total_rooms"`
	TotalPlayers int                        `json:"total_players"`
	RoomsByState map[internal.RoomState]int `json:"rooms_by_state"`
}

func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{RoomsByState: make(map[internal.RoomState]int)}
	for _, room := range r.rooms {
		room.Mu.RLock()
		stats.TotalRooms++
		stats.TotalPlayers += len(room.Players)
		stats.RoomsByState[room.State]++
		room.Mu.RUnlock()
	}
	return stats
}
