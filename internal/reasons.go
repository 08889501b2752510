package internal

// Submission rejection reasons recorded on SubmissionRecords.
const (
	ReasonAccepted       = "Accepted"
	ReasonInvalidSession = "Invalid session token"
	ReasonRoomNotFound   = "Room not found"
	ReasonNotActive      = "Round not in active phase"
	ReasonWrongRound     = "Wrong round index"
	ReasonAlreadyScored  = "Player already scored this round"
	ReasonTimeExpired    = "Round time expired"
	ReasonBadRoundIndex  = "Invalid round index"
	ReasonClientInvalid  = "Client reported invalid solution"
	ReasonNumberMismatch = "Numbers don't match problem"
)
