package game

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

type TimerKind string

const (
	TimerCountdown TimerKind = "countdown"
	TimerRound     TimerKind = "round"
	TimerResults   TimerKind = "results"
)

type timerHandle struct {
	id         string
	roomCode   string
	generation int64
	kind       TimerKind
	timer      *time.Timer
}

// TimerService schedules the delayed phase transitions for every room. Each
// timer fires exactly once unless cancelled first. Timers are tagged with the
// room's generation so CancelRoomTimers cannot be fooled by a recreated room
// reusing the same code.
type TimerService struct {
	mu     sync.Mutex
	timers map[string]*timerHandle
}

func NewTimerService() *TimerService {
	return &TimerService{
		timers: make(map[string]*timerHandle),
	}
}

// Schedule arms a timer that invokes fn after delay. The returned id can be
// passed to Cancel.
func (s *TimerService) Schedule(kind TimerKind, roomCode string, generation int64, delay time.Duration, fn func()) string {
	id := fmt.Sprintf("%s_%s_%s", kind, roomCode, uuid.NewString())

	s.mu.Lock()
	h := &timerHandle{
		id:         id,
		roomCode:   roomCode,
		generation: generation,
		kind:       kind,
	}
	h.timer = time.AfterFunc(delay, func() {
		// The handle must be removed before fn runs so the service mutex is
		// never held while fn acquires a room lock.
		s.mu.Lock()
		if _, ok := s.timers[id]; !ok {
			// Cancelled between firing and acquiring the mutex.
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()

		fn()
	})
	s.timers[id] = h
	s.mu.Unlock()

	log.Printf("[TimerService.Schedule] room=%s: armed %s timer for %v (id=%s)", roomCode, kind, delay, id)
	return id
}

// Cancel stops the timer with the given id. Calling it on an already-fired or
// unknown timer is a no-op and returns false.
func (s *TimerService) Cancel(id string) bool {
	s.mu.Lock()
	h, ok := s.timers[id]
	if ok {
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	h.timer.Stop()
	log.Printf("[TimerService.Cancel] room=%s: cancelled %s timer (id=%s)", h.roomCode, h.kind, id)
	return true
}

// CancelRoomTimers cancels every outstanding timer belonging to the given
// room instance. Both the code and the generation must match, so timers from
// a reaped room never affect a later room with a reused code.
func (s *TimerService) CancelRoomTimers(roomCode string, generation int64) int {
	s.mu.Lock()
	var cancelled []*timerHandle
	for id, h := range s.timers {
		if h.roomCode == roomCode && h.generation == generation {
			cancelled = append(cancelled, h)
			delete(s.timers, id)
		}
	}
	s.mu.Unlock()

	for _, h := range cancelled {
		h.timer.Stop()
	}
	if len(cancelled) > 0 {
		log.Printf("[TimerService.CancelRoomTimers] room=%s: cancelled %d timers", roomCode, len(cancelled))
	}
	return len(cancelled)
}

// ActiveForRoom returns the ids of the room's outstanding timers.
func (s *TimerService) ActiveForRoom(roomCode string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, h := range s.timers {
		if h.roomCode == roomCode {
			ids = append(ids, id)
		}
	}
	return ids
}

// Shutdown cancels every outstanding timer.
func (s *TimerService) Shutdown() {
	s.mu.Lock()
	handles := make([]*timerHandle, 0, len(s.timers))
	for id, h := range s.timers {
		handles = append(handles, h)
		delete(s.timers, id)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.timer.Stop()
	}
	log.Printf("[TimerService.Shutdown] cancelled %d active timers", len(handles))
}
