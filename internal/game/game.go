package game

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scythe504/race24-backend/internal"
)

// maxHistoryPerRoom bounds the in-memory submission history so a chatty
// room cannot grow without limit.
const maxHistoryPerRoom = 500

// Broadcaster delivers outbound events. Implementations must not block; the
// game layer calls them outside every lock.
type Broadcaster interface {
	SendToRoom(roomCode string, event any)
	SendToRoomExcept(roomCode string, excludeID uuid.UUID, event any)
	SendToPlayer(playerID uuid.UUID, event any)
}

// SubmissionStore persists submission records for later analysis. Saves are
// fire-and-forget from the game's point of view.
type SubmissionStore interface {
	Save(ctx context.Context, rec internal.SubmissionRecord) error
}

// Game ties the registry, timer service and broadcaster together and owns
// the full room lifecycle. All public methods are safe for concurrent use.
type Game struct {
	registry    *Registry
	timers      *TimerService
	broadcaster Broadcaster

	// store is optional; nil disables persistence.
	store SubmissionStore

	historyMu sync.Mutex
	history   map[string][]internal.SubmissionRecord
}

func NewGame(oracle Oracle, defaults internal.RoomSettings, broadcaster Broadcaster, store SubmissionStore) *Game {
	return &Game{
		registry:    NewRegistry(oracle, defaults),
		timers:      NewTimerService(),
		broadcaster: broadcaster,
		store:       store,
		history:     make(map[string][]internal.SubmissionRecord),
	}
}

func (g *Game) Registry() *Registry {
	return g.registry
}

// CreateRoom makes a new room with the caller as host. The room.created
// reply goes only to the creator, so nothing is broadcast here.
func (g *Game) CreateRoom(username string) (*CreateRoomResult, error) {
	return g.registry.CreateRoom(username)
}

// JoinRoom adds the player and tells the rest of the room.
func (g *Game) JoinRoom(roomCode, username, sessionToken string) (*JoinRoomResult, error) {
	result, err := g.registry.JoinRoom(roomCode, username, sessionToken)
	if err != nil {
		return nil, err
	}

	if !result.Reconnected {
		var joined internal.PlayerPublic
		for _, p := range result.Players {
			if p.ID == result.PlayerID {
				joined = p
				break
			}
		}
		g.broadcaster.SendToRoomExcept(result.RoomCode, result.PlayerID, internal.Message[internal.PlayerJoinedData]{
			Type: internal.EventPlayerJoined,
			Data: internal.PlayerJoinedData{
				Player:       joined,
				TotalPlayers: len(result.Players),
			},
		})
	}
	return result, nil
}

// LeaveRoom removes the player after checking their session token, then
// tells the rest of the room.
func (g *Game) LeaveRoom(roomCode string, playerID uuid.UUID, sessionToken string) error {
	if !g.registry.ValidateSession(roomCode, playerID, sessionToken) {
		return ErrInvalidSession
	}

	result, err := g.registry.RemovePlayer(roomCode, playerID)
	if err != nil {
		return err
	}

	code := strings.ToUpper(roomCode)
	if result.RoomDeleted {
		g.timers.CancelRoomTimers(code, result.Generation)
		g.clearHistory(code)
		return nil
	}

	g.broadcaster.SendToRoom(code, internal.Message[internal.PlayerLeftData]{
		Type: internal.EventPlayerLeft,
		Data: internal.PlayerLeftData{
			PlayerID:     result.Removed.ID,
			Username:     result.Removed.Username,
			TotalPlayers: result.TotalPlayers,
		},
	})
	return nil
}

// HandleDisconnect marks the player disconnected but keeps them in the room
// so a later room.join with the same session token picks the identity back
// up.
func (g *Game) HandleDisconnect(roomCode string, playerID uuid.UUID) {
	public, total, err := g.registry.MarkDisconnected(roomCode, playerID)
	if err != nil {
		return
	}

	code := strings.ToUpper(roomCode)
	log.Printf("[Game.HandleDisconnect] room=%s: player %s (%s) disconnected", code, public.Username, playerID)
	g.broadcaster.SendToRoom(code, internal.Message[internal.PlayerLeftData]{
		Type: internal.EventPlayerLeft,
		Data: internal.PlayerLeftData{
			PlayerID:     public.ID,
			Username:     public.Username,
			TotalPlayers: total,
		},
	})
}

// ReapIdleRooms drops rooms with no recent activity and cancels whatever
// timers they still had armed.
func (g *Game) ReapIdleRooms(maxAge time.Duration) int {
	reaped := g.registry.ReapIdleRooms(maxAge)
	for _, r := range reaped {
		g.timers.CancelRoomTimers(r.Code, r.Generation)
		g.clearHistory(r.Code)
	}
	return len(reaped)
}

func (g *Game) Stats() RegistryStats {
	return g.registry.Stats()
}

// Shutdown stops all outstanding timers. In-flight store saves are left to
// their own context deadlines.
func (g *Game) Shutdown() {
	g.timers.Shutdown()
}

// recordSubmission appends to the bounded per-room history and, when a
// store is configured, persists asynchronously. Never called under a room
// lock.
func (g *Game) recordSubmission(rec internal.SubmissionRecord) {
	g.historyMu.Lock()
	records := append(g.history[rec.RoomCode], rec)
	if len(records) > maxHistoryPerRoom {
		records = records[len(records)-maxHistoryPerRoom:]
	}
	g.history[rec.RoomCode] = records
	g.historyMu.Unlock()

	if g.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.store.Save(ctx, rec); err != nil {
			log.Printf("[Game.recordSubmission] room=%s: failed to persist submission %s: %v", rec.RoomCode, rec.SubmissionID, err)
		}
	}()
}

func (g *Game) clearHistory(roomCode string) {
	g.historyMu.Lock()
	delete(g.history, roomCode)
	g.historyMu.Unlock()
}

// RoomSubmissionStats summarises a room's recent submissions.
type RoomSubmissionStats struct {
	RoomCode         string                      `json:"room_code"`
	TotalSubmissions int                         `json:"total_submissions"`
	Accepted         int                         `json:"accepted"`
	Rejected         int                         `json:"rejected"`
	RejectionReasons map[string]int              `json:"rejection_reasons,omitempty"`
	AvgTimeLeft      float64                     `json:"avg_time_left_accepted"`
	Recent           []internal.SubmissionRecord `json:"recent"`
}

// RoomSubmissions returns the room's retained submission history, newest
// last.
func (g *Game) RoomSubmissions(roomCode string) RoomSubmissionStats {
	code := strings.ToUpper(roomCode)

	g.historyMu.Lock()
	records := make([]internal.SubmissionRecord, len(g.history[code]))
	copy(records, g.history[code])
	g.historyMu.Unlock()

	stats := RoomSubmissionStats{
		RoomCode:         code,
		TotalSubmissions: len(records),
		RejectionReasons: make(map[string]int),
		Recent:           records,
	}
	var timeLeftSum float64
	for _, rec := range records {
		if rec.Accepted {
			stats.Accepted++
			timeLeftSum += rec.TimeLeft
		} else {
			stats.Rejected++
			stats.RejectionReasons[rec.Reason]++
		}
	}
	if stats.Accepted > 0 {
		stats.AvgTimeLeft = timeLeftSum / float64(stats.Accepted)
	}
	return stats
}
