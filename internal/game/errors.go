package game

import "fmt"

// Error code taxonomy. Every rejected operation maps to one of these and is
// returned to the caller as a structured error event, never a panic.
const (
	CodeValidation        = "validation_error"
	CodeAuthorization     = "authorization_error"
	CodeStateConflict     = "state_conflict"
	CodeResourceExhausted = "resource_exhausted"
)

type GameError struct {
	Code    string
	Message string
}

func (e *GameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var (
	ErrRoomNotFound      = &GameError{Code: CodeStateConflict, Message: "room not found"}
	ErrRoomFull          = &GameError{Code: CodeStateConflict, Message: "room is full"}
	ErrGameInProgress    = &GameError{Code: CodeStateConflict, Message: "cannot join room - game in progress"}
	ErrNameTaken         = &GameError{Code: CodeStateConflict, Message: "username is already taken in this room"}
	ErrNotInLobby        = &GameError{Code: CodeStateConflict, Message: "game cannot be started - room not in lobby state"}
	ErrNotEnoughPlayers  = &GameError{Code: CodeStateConflict, Message: "need at least 2 players to start the game"}
	ErrPlayerNotFound    = &GameError{Code: CodeStateConflict, Message: "player not found in room"}
	ErrInvalidSession    = &GameError{Code: CodeAuthorization, Message: "invalid session token"}
	ErrNotHost           = &GameError{Code: CodeAuthorization, Message: "only the host can start the game"}
	ErrEmptyUsername     = &GameError{Code: CodeValidation, Message: "username must not be empty"}
	ErrCodesExhausted    = &GameError{Code: CodeResourceExhausted, Message: "unable to allocate a unique room code"}
	ErrProblemGeneration = &GameError{Code: CodeResourceExhausted, Message: "failed to generate any valid problems for the game"}
)
