package internal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultRounds         = 10
	DefaultTimePerRound   = 30 * time.Second
	DefaultCountdown      = 3 * time.Second
	DefaultResultsDisplay = 6 * time.Second
	DefaultMaxPlayers     = 4
	MinPlayersToStart     = 2
	DefaultTarget         = 24
	ProblemNumberMin      = 1
	ProblemNumberMax      = 13
	MaxProblemAttempts    = 10000
	MaxRoomCodeAttempts   = 1000
	RoomCodeLength        = 4
)

// RoomCodeAlphabet excludes visually ambiguous characters (I, L, O, 0, 1).
const RoomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

type RoomState string

const (
	StateLobby    RoomState = "LOBBY"
	StateRunning  RoomState = "RUNNING"
	StateFinished RoomState = "FINISHED"
)

type RoundPhase string

const (
	PhaseCountdown RoundPhase = "COUNTDOWN"
	PhaseActive    RoundPhase = "ACTIVE"
	PhaseResults   RoundPhase = "RESULTS"
)

// RoomSettings is the per-room configuration fixed at creation time.
// PointsToWin == 0 disables the early-finish condition and the game runs
// all rounds.
type RoomSettings struct {
	Rounds         int           `json:"rounds"`
	TimePerRound   time.Duration `json:"-"`
	Countdown      time.Duration `json:"-"`
	ResultsDisplay time.Duration `json:"-"`
	MaxPlayers     int           `json:"max_players"`
	PointsToWin    int           `json:"points_to_win,omitempty"`

	TimePerRoundSeconds   int `json:"time_per_round_seconds"`
	CountdownSeconds      int `json:"countdown_seconds"`
	ResultsDisplaySeconds int `json:"results_display_seconds"`
}

func DefaultSettings() RoomSettings {
	s := RoomSettings{
		Rounds:         DefaultRounds,
		TimePerRound:   DefaultTimePerRound,
		Countdown:      DefaultCountdown,
		ResultsDisplay: DefaultResultsDisplay,
		MaxPlayers:     DefaultMaxPlayers,
	}
	s.SyncSeconds()
	return s
}

// SyncSeconds refreshes the wire-facing integer fields from the durations.
func (s *RoomSettings) SyncSeconds() {
	s.TimePerRoundSeconds = int(s.TimePerRound / time.Second)
	s.CountdownSeconds = int(s.Countdown / time.Second)
	s.ResultsDisplaySeconds = int(s.ResultsDisplay / time.Second)
}

type Problem struct {
	ID                uuid.UUID `json:"problem_id"`
	Numbers           [4]int    `json:"numbers"`
	CanonicalSolution string    `json:"canonical_solution"`
	CorrectCount      int       `json:"correct_count"`
}

// RoundState tracks the current round's phase timing. The phase end time is
// authoritative for time-remaining computation; client-reported timers are
// never trusted.
type RoundState struct {
	Phase          RoundPhase `json:"phase"`
	PhaseStartTime time.Time  `json:"phase_start_time"`
	PhaseEndTime   time.Time  `json:"phase_end_time"`
	RoundStartTime time.Time  `json:"round_start_time"`
	RoundEndTime   time.Time  `json:"round_end_time"`
}

// TimeRemaining returns seconds left in the current phase, never negative.
func (rs *RoundState) TimeRemaining(now time.Time) float64 {
	remaining := rs.PhaseEndTime.Sub(now).Seconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RoundScore records one accepted submission within the current round.
// Entries are appended in arrival order, which defines submission rank.
type RoundScore struct {
	PlayerID       uuid.UUID `json:"player_id"`
	Username       string    `json:"username"`
	PointsGained   int       `json:"points_gained"`
	BasePoints     int       `json:"base_points"`
	SpeedBonus     int       `json:"speed_bonus"`
	TimeLeft       float64   `json:"time_left"`
	TimeSubmitted  time.Time `json:"time_submitted"`
	SubmissionRank int       `json:"submission_rank"`
}

// Round bundles the phase state with the per-round scoring bookkeeping that
// is reset at every round start.
type Round struct {
	State  RoundState
	Scores []RoundScore
}

type Room struct {
	Code         string
	HostPlayerID uuid.UUID
	Settings     RoomSettings
	Players      map[uuid.UUID]*Player
	Problems     []Problem
	RoundIndex   int
	State        RoomState

	// Round is the current round's state, nil outside a round.
	Round *Round

	CreatedAt      time.Time
	LastActivityAt time.Time

	// Generation tags this room instance's timers so a stale timer from a
	// reaped room cannot fire into a recreated room with the same code.
	Generation int64

	Mu sync.RWMutex
}

// SubmissionRecord is an immutable audit entry for one answer attempt,
// retained for statistics and debugging.
type SubmissionRecord struct {
	SubmissionID      uuid.UUID  `json:"submission_id"`
	RoomCode          string     `json:"room_code"`
	RoundIndex        int        `json:"round_index"`
	PlayerID          uuid.UUID  `json:"player_id"`
	Expression        string     `json:"expression"`
	UsedNumbers       [4]int     `json:"used_numbers"`
	ClientEvalValue   *float64   `json:"client_eval_value,omitempty"`
	ClientEvalIsValid bool       `json:"client_eval_is_valid"`
	ClientTimestamp   *time.Time `json:"client_timestamp,omitempty"`
	ServerReceiveTime time.Time  `json:"server_receive_time"`
	Accepted          bool       `json:"accepted"`
	Reason            string     `json:"reason,omitempty"`
	TimeLeft          float64    `json:"time_left_at_submission"`
	SpeedBonus        int        `json:"speed_bonus_awarded"`
	PointsAwarded     int        `json:"points_awarded"`
}
