package game

import (
	"log"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/scythe504/race24-backend/internal"
)

// =============================================================================
// GAME FLOW
// =============================================================================
//
// A running game cycles COUNTDOWN -> ACTIVE -> RESULTS per round. Every
// transition happens under the room's write lock; broadcasts and timer
// scheduling happen after the lock is released. Timer callbacks re-validate
// room generation, state, phase and round index before acting, so a stale
// callback from a cancelled or superseded timer is always a no-op.

// StartGame moves a lobby room into RUNNING and kicks off round 0. Only the
// host may start, and only with at least two players present.
func (g *Game) StartGame(roomCode string, playerID uuid.UUID, sessionToken string) error {
	room := g.registry.GetRoom(roomCode)
	if room == nil {
		return ErrRoomNotFound
	}

	room.Mu.Lock()
	player, ok := room.Players[playerID]
	if !ok || sessionToken == "" || player.SessionToken != sessionToken {
		room.Mu.Unlock()
		return ErrInvalidSession
	}
	if room.HostPlayerID != playerID {
		room.Mu.Unlock()
		return ErrNotHost
	}
	if room.State != internal.StateLobby {
		room.Mu.Unlock()
		return ErrNotInLobby
	}
	if len(room.Players) < internal.MinPlayersToStart {
		room.Mu.Unlock()
		return ErrNotEnoughPlayers
	}

	for _, p := range room.Players {
		p.ResetScore()
	}
	room.State = internal.StateRunning
	room.RoundIndex = 0
	room.Touch(time.Now())
	playerCount := len(room.Players)
	room.Mu.Unlock()

	log.Printf("[Game.StartGame] room=%s: game started by host %s with %d players", room.Code, playerID, playerCount)
	g.startRound(room)
	return nil
}

// startRound enters the countdown phase for the room's current round index,
// or ends the game when the problems are exhausted.
func (g *Game) startRound(room *internal.Room) {
	room.Mu.Lock()
	if room.State != internal.StateRunning {
		room.Mu.Unlock()
		return
	}
	if room.RoundIndex >= len(room.Problems) {
		room.Mu.Unlock()
		g.endGame(room)
		return
	}

	now := time.Now()
	room.ResetRoundScoring()
	room.Round = &internal.Round{
		State: internal.RoundState{
			Phase:          internal.PhaseCountdown,
			PhaseStartTime: now,
			PhaseEndTime:   now.Add(room.Settings.Countdown),
		},
	}
	room.Touch(now)

	roundIndex := room.RoundIndex
	generation := room.Generation
	countdown := room.Settings.Countdown
	event := internal.Message[internal.CountdownStartData]{
		Type: internal.EventCountdownStart,
		Data: internal.CountdownStartData{
			RoundIndex:       roundIndex,
			CountdownSeconds: room.Settings.CountdownSeconds,
			ServerTime:       now,
		},
	}
	room.Mu.Unlock()

	log.Printf("[Game.startRound] room=%s: round %d countdown started", room.Code, roundIndex)
	g.broadcaster.SendToRoom(room.Code, event)
	g.timers.Schedule(TimerCountdown, room.Code, generation, countdown, func() {
		g.handleCountdownComplete(room.Code, generation, roundIndex)
	})
}

// handleCountdownComplete flips the round into ACTIVE and reveals the
// problem.
func (g *Game) handleCountdownComplete(roomCode string, generation int64, roundIndex int) {
	room := g.registry.GetRoom(roomCode)
	if room == nil {
		return
	}

	room.Mu.Lock()
	if room.Generation != generation || room.State != internal.StateRunning ||
		room.Round == nil || room.Round.State.Phase != internal.PhaseCountdown ||
		room.RoundIndex != roundIndex {
		room.Mu.Unlock()
		log.Printf("[Game.handleCountdownComplete] room=%s: stale countdown timer for round %d, ignoring", roomCode, roundIndex)
		return
	}

	problem := room.CurrentProblem()
	if problem == nil {
		room.Mu.Unlock()
		g.endGame(room)
		return
	}

	now := time.Now()
	roundEnd := now.Add(room.Settings.TimePerRound)
	room.Round.State = internal.RoundState{
		Phase:          internal.PhaseActive,
		PhaseStartTime: now,
		PhaseEndTime:   roundEnd,
		RoundStartTime: now,
		RoundEndTime:   roundEnd,
	}
	room.Touch(now)

	duration := room.Settings.TimePerRound
	event := internal.Message[internal.RoundStartData]{
		Type: internal.EventRoundStart,
		Data: internal.RoundStartData{
			RoundIndex:       roundIndex,
			ProblemID:        problem.ID,
			Numbers:          problem.Numbers,
			TimeLimitSeconds: room.Settings.TimePerRoundSeconds,
			ServerTime:       now,
			RoundEnd:         roundEnd,
		},
	}
	room.Mu.Unlock()

	log.Printf("[Game.handleCountdownComplete] room=%s: round %d active, numbers=%v", room.Code, roundIndex, event.Data.Numbers)
	g.broadcaster.SendToRoom(room.Code, event)
	g.timers.Schedule(TimerRound, room.Code, generation, duration, func() {
		g.handleRoundTimeout(room.Code, generation, roundIndex)
	})
}

// handleRoundTimeout closes the active round and shows results. Streaks of
// players who did not score are reset before the score snapshot is taken.
func (g *Game) handleRoundTimeout(roomCode string, generation int64, roundIndex int) {
	room := g.registry.GetRoom(roomCode)
	if room == nil {
		return
	}

	room.Mu.Lock()
	if room.Generation != generation || room.State != internal.StateRunning ||
		room.Round == nil || room.Round.State.Phase != internal.PhaseActive ||
		room.RoundIndex != roundIndex {
		room.Mu.Unlock()
		log.Printf("[Game.handleRoundTimeout] room=%s: stale round timer for round %d, ignoring", roomCode, roundIndex)
		return
	}

	problem := room.CurrentProblem()
	if problem == nil {
		room.Mu.Unlock()
		g.endGame(room)
		return
	}

	resetMissedStreaks(room)
	problem.CorrectCount = len(room.Round.Scores)

	now := time.Now()
	room.Round.State.Phase = internal.PhaseResults
	room.Round.State.PhaseStartTime = now
	room.Round.State.PhaseEndTime = now.Add(room.Settings.ResultsDisplay)
	room.Touch(now)

	resultsDisplay := room.Settings.ResultsDisplay
	event := internal.Message[internal.RoundEndData]{
		Type: internal.EventRoundEnd,
		Data: internal.RoundEndData{
			RoundIndex:        roundIndex,
			ProblemID:         problem.ID,
			CanonicalSolution: problem.CanonicalSolution,
			PlayersCorrect:    slices.Clone(room.Round.Scores),
			UpdatedScores:     buildScoreUpdates(room),
		},
	}
	room.Mu.Unlock()

	log.Printf("[Game.handleRoundTimeout] room=%s: round %d ended, %d players scored", room.Code, roundIndex, len(event.Data.PlayersCorrect))
	g.broadcaster.SendToRoom(room.Code, event)
	g.timers.Schedule(TimerResults, room.Code, generation, resultsDisplay, func() {
		g.handleResultsComplete(room.Code, generation, roundIndex)
	})
}

// handleResultsComplete advances to the next round, or finishes the game
// when rounds are exhausted or a player has reached the points target.
func (g *Game) handleResultsComplete(roomCode string, generation int64, roundIndex int) {
	room := g.registry.GetRoom(roomCode)
	if room == nil {
		return
	}

	room.Mu.Lock()
	if room.Generation != generation || room.State != internal.StateRunning ||
		room.Round == nil || room.Round.State.Phase != internal.PhaseResults ||
		room.RoundIndex != roundIndex {
		room.Mu.Unlock()
		log.Printf("[Game.handleResultsComplete] room=%s: stale results timer for round %d, ignoring", roomCode, roundIndex)
		return
	}

	room.RoundIndex++
	finished := room.RoundIndex >= room.Settings.Rounds || room.RoundIndex >= len(room.Problems)
	if !finished && room.Settings.PointsToWin > 0 {
		for _, p := range room.Players {
			if p.Score >= room.Settings.PointsToWin {
				finished = true
				break
			}
		}
	}
	room.Mu.Unlock()

	if finished {
		g.endGame(room)
		return
	}
	g.startRound(room)
}

// endGame finishes the room, cancels its timers and broadcasts the final
// leaderboard. Safe to call more than once.
func (g *Game) endGame(room *internal.Room) {
	room.Mu.Lock()
	if room.State == internal.StateFinished {
		room.Mu.Unlock()
		return
	}
	room.State = internal.StateFinished
	room.Round = nil
	room.Touch(time.Now())

	generation := room.Generation
	leaderboard := buildLeaderboard(room)
	room.Mu.Unlock()

	g.timers.CancelRoomTimers(room.Code, generation)

	winner := "nobody"
	if len(leaderboard) > 0 {
		winner = leaderboard[0].Username
	}
	log.Printf("[Game.endGame] room=%s: game over, winner=%s", room.Code, winner)

	g.broadcaster.SendToRoom(room.Code, internal.Message[internal.GameEndData]{
		Type: internal.EventGameEnd,
		Data: internal.GameEndData{Leaderboard: leaderboard},
	})
}

// ForceEndGame aborts a running game without the usual game.end ceremony,
// used when a room is torn down administratively.
func (g *Game) ForceEndGame(roomCode, reason string) {
	room := g.registry.GetRoom(roomCode)
	if room == nil {
		return
	}

	room.Mu.Lock()
	generation := room.Generation
	room.State = internal.StateFinished
	room.Round = nil
	room.Mu.Unlock()

	cancelled := g.timers.CancelRoomTimers(room.Code, generation)
	log.Printf("[Game.ForceEndGame] room=%s: force-ended (%s), cancelled %d timers", room.Code, reason, cancelled)
}
