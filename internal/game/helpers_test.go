package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scythe504/race24-backend/internal"
	"github.com/scythe504/race24-backend/internal/solver"
)

// recordingBroadcaster captures every outbound event for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []any
}

func (b *recordingBroadcaster) SendToRoom(roomCode string, event any) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) SendToRoomExcept(roomCode string, excludeID uuid.UUID, event any) {
	b.SendToRoom(roomCode, event)
}

func (b *recordingBroadcaster) SendToPlayer(playerID uuid.UUID, event any) {
	b.SendToRoom("", event)
}

func (b *recordingBroadcaster) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	types := make([]string, 0, len(b.events))
	for _, e := range b.events {
		types = append(types, eventType(e))
	}
	return types
}

func (b *recordingBroadcaster) countType(want string) int {
	count := 0
	for _, typ := range b.eventTypes() {
		if typ == want {
			count++
		}
	}
	return count
}

func eventType(e any) string {
	switch msg := e.(type) {
	case internal.Message[internal.PlayerJoinedData]:
		return msg.Type
	case internal.Message[internal.PlayerLeftData]:
		return msg.Type
	case internal.Message[internal.CountdownStartData]:
		return msg.Type
	case internal.Message[internal.RoundStartData]:
		return msg.Type
	case internal.Message[internal.PlayerScoreUpdate]:
		return msg.Type
	case internal.Message[internal.RoundEndData]:
		return msg.Type
	case internal.Message[internal.GameEndData]:
		return msg.Type
	default:
		return "unknown"
	}
}

// fastSettings keeps timed tests short.
func fastSettings() internal.RoomSettings {
	s := internal.RoomSettings{
		Rounds:         2,
		TimePerRound:   80 * time.Millisecond,
		Countdown:      20 * time.Millisecond,
		ResultsDisplay: 20 * time.Millisecond,
		MaxPlayers:     4,
	}
	s.SyncSeconds()
	return s
}

func newTestGame(settings internal.RoomSettings) (*Game, *recordingBroadcaster) {
	b := &recordingBroadcaster{}
	return NewGame(solver.New(), settings, b, nil), b
}

// setupRunningRound puts a room into an ACTIVE round without waiting for
// real timers, so submission tests stay deterministic.
func setupRunningRound(room *internal.Room, roundIndex int, timeLeft time.Duration) {
	now := time.Now()
	room.Mu.Lock()
	room.State = internal.StateRunning
	room.RoundIndex = roundIndex
	room.ResetRoundScoring()
	room.Round = &internal.Round{
		State: internal.RoundState{
			Phase:          internal.PhaseActive,
			PhaseStartTime: now,
			PhaseEndTime:   now.Add(timeLeft),
			RoundStartTime: now,
			RoundEndTime:   now.Add(timeLeft),
		},
	}
	room.Mu.Unlock()
}
