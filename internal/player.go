package internal

import (
	"time"

	"github.com/google/uuid"
)

type Player struct {
	ID       uuid.UUID `json:"player_id"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
	Streak   int       `json:"streak"`

	// SessionToken is the opaque secret proving control of this identity.
	// Never included in broadcasts.
	SessionToken string `json:"-"`

	JoinedAt       time.Time  `json:"joined_at"`
	LastSeenAt     time.Time  `json:"last_seen_at"`
	DisconnectedAt *time.Time `json:"-"`

	// HasScoredThisRound is reset at every round start.
	HasScoredThisRound bool `json:"-"`
}

// PlayerPublic is the representation used in broadcasts.
type PlayerPublic struct {
	ID       uuid.UUID `json:"player_id"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
	Streak   int       `json:"streak"`
}

func (p *Player) ToPublic() PlayerPublic {
	return PlayerPublic{
		ID:       p.ID,
		Username: p.Username,
		Score:    p.Score,
		Streak:   p.Streak,
	}
}

func (p *Player) ResetScore() {
	p.Score = 0
	p.Streak = 0
}

func (p *Player) IsConnected() bool {
	return p.DisconnectedAt == nil
}
