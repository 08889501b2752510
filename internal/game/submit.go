package game

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scythe504/race24-backend/internal"
)

// =============================================================================
// SUBMISSION ARBITER
// =============================================================================

// Submit validates one answer attempt and, if it passes every check,
// credits the player atomically under the room's write lock. The whole
// check-then-credit sequence holds the lock once, so concurrent submissions
// from the same player can never double-score: the first to acquire the
// lock wins and the rest fail the already-scored check.
//
// Rejections are not errors; the returned ack carries the reason either
// way. Every attempt is recorded for the stats endpoint.
func (g *Game) Submit(playerID uuid.UUID, payload internal.AnswerSubmitPayload) internal.AnswerAckData {
	now := time.Now()
	rec := internal.SubmissionRecord{
		SubmissionID:      uuid.New(),
		RoomCode:          strings.ToUpper(payload.RoomCode),
		RoundIndex:        payload.RoundIndex,
		PlayerID:          playerID,
		Expression:        payload.Expression,
		UsedNumbers:       payload.UsedNumbers,
		ClientEvalValue:   payload.ClientEvalValue,
		ClientEvalIsValid: payload.ClientEvalIsValid,
		ClientTimestamp:   payload.ClientTimestamp,
		ServerReceiveTime: now,
	}

	room := g.registry.GetRoom(payload.RoomCode)
	if room == nil {
		rec.Reason = internal.ReasonRoomNotFound
		return g.finishSubmission(rec, nil)
	}

	room.Mu.Lock()
	var scoreUpdate *internal.PlayerScoreUpdate

	player, ok := room.Players[playerID]
	switch {
	case !ok || payload.SessionToken == "" || player.SessionToken != payload.SessionToken:
		rec.Reason = internal.ReasonInvalidSession

	case room.State != internal.StateRunning || room.Round == nil ||
		room.Round.State.Phase != internal.PhaseActive:
		rec.Reason = internal.ReasonNotActive

	case payload.RoundIndex != room.RoundIndex:
		rec.Reason = internal.ReasonWrongRound

	case player.HasScoredThisRound:
		rec.Reason = internal.ReasonAlreadyScored

	default:
		timeLeft := room.Round.State.TimeRemaining(now)
		problem := room.CurrentProblem()

		switch {
		case timeLeft <= 0:
			rec.Reason = internal.ReasonTimeExpired
			rec.TimeLeft = timeLeft

		case problem == nil:
			rec.Reason = internal.ReasonBadRoundIndex

		case !payload.ClientEvalIsValid:
			rec.Reason = internal.ReasonClientInvalid
			rec.TimeLeft = timeLeft

		case multisetKey(payload.UsedNumbers) != multisetKey(problem.Numbers):
			rec.Reason = internal.ReasonNumberMismatch
			rec.TimeLeft = timeLeft

		default:
			base, bonus := CalculateScore(timeLeft, room.Settings.TimePerRound.Seconds())
			total := applyScore(player, base, bonus)
			player.HasScoredThisRound = true
			player.LastSeenAt = now

			room.Round.Scores = append(room.Round.Scores, internal.RoundScore{
				PlayerID:       player.ID,
				Username:       player.Username,
				PointsGained:   total,
				BasePoints:     base,
				SpeedBonus:     bonus,
				TimeLeft:       timeLeft,
				TimeSubmitted:  now,
				SubmissionRank: len(room.Round.Scores) + 1,
			})
			room.Touch(now)

			rec.Accepted = true
			rec.Reason = internal.ReasonAccepted
			rec.TimeLeft = timeLeft
			rec.SpeedBonus = bonus
			rec.PointsAwarded = total
			scoreUpdate = &internal.PlayerScoreUpdate{
				PlayerID: player.ID,
				Score:    player.Score,
				Streak:   player.Streak,
			}
		}
	}
	room.Mu.Unlock()

	return g.finishSubmission(rec, scoreUpdate)
}

// finishSubmission records the attempt, broadcasts the score update for an
// accepted answer and builds the ack. Runs with no locks held.
func (g *Game) finishSubmission(rec internal.SubmissionRecord, scoreUpdate *internal.PlayerScoreUpdate) internal.AnswerAckData {
	g.recordSubmission(rec)

	if rec.Accepted {
		log.Printf("[Game.Submit] room=%s: player %s scored %d points (bonus=%d, time_left=%.2fs)",
			rec.RoomCode, rec.PlayerID, rec.PointsAwarded, rec.SpeedBonus, rec.TimeLeft)
		g.broadcaster.SendToRoom(rec.RoomCode, internal.Message[internal.PlayerScoreUpdate]{
			Type: internal.EventScoreUpdate,
			Data: *scoreUpdate,
		})
	} else {
		log.Printf("[Game.Submit] room=%s: rejected submission from %s: %s", rec.RoomCode, rec.PlayerID, rec.Reason)
	}

	return internal.AnswerAckData{
		SubmissionID:      rec.SubmissionID,
		Accepted:          rec.Accepted,
		ServerReceiveTime: rec.ServerReceiveTime,
		TimeLeftSeconds:   rec.TimeLeft,
		PointsAwarded:     rec.PointsAwarded,
		Reason:            rec.Reason,
	}
}
