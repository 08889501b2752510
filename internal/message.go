package internal

import (
	"time"

	"github.com/google/uuid"
)

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Inbound event types.
const (
	EventRoomCreate   = "room.create"
	EventRoomJoin     = "room.join"
	EventRoomLeave    = "room.leave"
	EventGameStart    = "game.start"
	EventAnswerSubmit = "answer.submit"
	EventPing         = "ping"
)

// Outbound event types.
const (
	EventRoomCreated    = "room.created"
	EventRoomJoined     = "room.joined"
	EventPlayerJoined   = "player.joined"
	EventPlayerLeft     = "player.left"
	EventCountdownStart = "countdown.start"
	EventRoundStart     = "round.start"
	EventAnswerAck      = "answer.ack"
	EventScoreUpdate    = "score.update"
	EventRoundEnd       = "round.end"
	EventGameEnd        = "game.end"
	EventError          = "error"
	EventPong           = "pong"
)

// Inbound payloads.

type RoomCreatePayload struct {
	Username string `json:"username"`
}

type RoomJoinPayload struct {
	RoomCode     string `json:"room_code"`
	Username     string `json:"username"`
	SessionToken string `json:"session_token,omitempty"`
}

type RoomLeavePayload struct {
	RoomCode     string `json:"room_code"`
	SessionToken string `json:"session_token"`
}

type GameStartPayload struct {
	RoomCode     string `json:"room_code"`
	SessionToken string `json:"session_token"`
}

type AnswerSubmitPayload struct {
	RoomCode          string     `json:"room_code"`
	SessionToken      string     `json:"session_token"`
	RoundIndex        int        `json:"round_index"`
	Expression        string     `json:"expression"`
	UsedNumbers       [4]int     `json:"used_numbers"`
	ClientEvalValue   *float64   `json:"client_eval_value,omitempty"`
	ClientEvalIsValid bool       `json:"client_eval_is_valid"`
	ClientTimestamp   *time.Time `json:"client_timestamp,omitempty"`
}

// Outbound payloads.

type RoomCreatedData struct {
	RoomCode     string       `json:"room_code"`
	HostPlayerID uuid.UUID    `json:"host_player_id"`
	SessionToken string       `json:"session_token"`
	Settings     RoomSettings `json:"settings"`
}

type RoomJoinedData struct {
	RoomCode     string         `json:"room_code"`
	PlayerID     uuid.UUID      `json:"player_id"`
	SessionToken string         `json:"session_token"`
	Players      []PlayerPublic `json:"players"`
	State        RoomState      `json:"state"`
}

type PlayerJoinedData struct {
	Player       PlayerPublic `json:"player"`
	TotalPlayers int          `json:"total_players"`
}

type PlayerLeftData struct {
	PlayerID     uuid.UUID `json:"player_id"`
	Username     string    `json:"username"`
	TotalPlayers int       `json:"total_players"`
}

type CountdownStartData struct {
	RoundIndex       int       `json:"round_index"`
	CountdownSeconds int       `json:"countdown_seconds"`
	ServerTime       time.Time `json:"server_time"`
}

type RoundStartData struct {
	RoundIndex       int       `json:"round_index"`
	ProblemID        uuid.UUID `json:"problem_id"`
	Numbers          [4]int    `json:"numbers"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
	ServerTime       time.Time `json:"server_time"`
	RoundEnd         time.Time `json:"round_end"`
}

type AnswerAckData struct {
	SubmissionID      uuid.UUID `json:"submission_id"`
	Accepted          bool      `json:"accepted"`
	ServerReceiveTime time.Time `json:"server_receive_time"`
	TimeLeftSeconds   float64   `json:"time_left_seconds"`
	PointsAwarded     int       `json:"points_awarded"`
	Reason            string    `json:"reason,omitempty"`
}

type PlayerScoreUpdate struct {
	PlayerID uuid.UUID `json:"player_id"`
	Score    int       `json:"score"`
	Streak   int       `json:"streak"`
}

type RoundEndData struct {
	RoundIndex        int                 `json:"round_index"`
	ProblemID         uuid.UUID           `json:"problem_id"`
	CanonicalSolution string              `json:"canonical_solution"`
	PlayersCorrect    []RoundScore        `json:"players_correct"`
	UpdatedScores     []PlayerScoreUpdate `json:"updated_scores"`
}

type LeaderboardEntry struct {
	PlayerID uuid.UUID `json:"player_id"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
}

type GameEndData struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
