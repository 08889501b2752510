package internal

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Methods (Room struct). Callers are expected to hold r.Mu.

func (r *Room) PlayerCount() int {
	return len(r.Players)
}

func (r *Room) IsFull() bool {
	return len(r.Players) >= r.Settings.MaxPlayers
}

func (r *Room) CanStartGame() bool {
	return r.State == StateLobby && len(r.Players) >= MinPlayersToStart
}

// CurrentProblem returns the problem for the running round, or nil when the
// round index is out of bounds.
func (r *Room) CurrentProblem() *Problem {
	if r.RoundIndex < 0 || r.RoundIndex >= len(r.Problems) {
		return nil
	}
	return &r.Problems[r.RoundIndex]
}

// FindByName returns the player whose name matches case-insensitively.
func (r *Room) FindByName(username string) *Player {
	for _, p := range r.Players {
		if strings.EqualFold(p.Username, username) {
			return p
		}
	}
	return nil
}

// ResetRoundScoring clears the per-round scored flags ahead of a new round.
func (r *Room) ResetRoundScoring() {
	for _, p := range r.Players {
		p.HasScoredThisRound = false
	}
}

func (r *Room) PublicPlayers() []PlayerPublic {
	players := make([]PlayerPublic, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, p.ToPublic())
	}
	return players
}

func (r *Room) Touch(now time.Time) {
	r.LastActivityAt = now
}

// HasScored reports whether the player already scored in the current round.
func (r *Room) HasScored(playerID uuid.UUID) bool {
	p, ok := r.Players[playerID]
	return ok && p.HasScoredThisRound
}
