package game

import (
	"math"
	"slices"
	"strings"

	"github.com/scythe504/race24-backend/internal"
)

// =============================================================================
// SCORE LEDGER
// =============================================================================

const basePoints = 10

// CalculateScore returns the base points and speed bonus for a correct
// answer. The bonus is ceil(5 * time_left / round_duration) clamped to
// [0, 5]; zero or negative time left yields no bonus.
func CalculateScore(timeLeft, roundDuration float64) (int, int) {
	if timeLeft <= 0 || roundDuration <= 0 {
		return basePoints, 0
	}

	bonus := int(math.Ceil(5 * timeLeft / roundDuration))
	if bonus < 0 {
		bonus = 0
	}
	if bonus > 5 {
		bonus = 5
	}
	return basePoints, bonus
}

// applyScore credits the player and updates their streak. Caller holds the
// room lock.
func applyScore(player *internal.Player, base, bonus int) int {
	total := base + bonus
	player.Score += total

	if total > 0 {
		player.Streak++
	} else {
		player.Streak = 0
	}
	return total
}

// resetMissedStreaks zeroes the streak of every player who did not score in
// the round that just ended. Caller holds the room lock.
func resetMissedStreaks(room *internal.Room) {
	for _, p := range room.Players {
		if !p.HasScoredThisRound {
			p.Streak = 0
		}
	}
}

// buildLeaderboard projects the final standings: score descending, ties
// broken by username ascending. Caller holds the room lock.
func buildLeaderboard(room *internal.Room) []internal.LeaderboardEntry {
	leaderboard := make([]internal.LeaderboardEntry, 0, len(room.Players))
	for _, p := range room.Players {
		leaderboard = append(leaderboard, internal.LeaderboardEntry{
			PlayerID: p.ID,
			Username: p.Username,
			Score:    p.Score,
		})
	}

	slices.SortFunc(leaderboard, func(a, b internal.LeaderboardEntry) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return strings.Compare(a.Username, b.Username)
	})
	return leaderboard
}

// buildScoreUpdates snapshots every player's score and streak for the
// round.end broadcast. Caller holds the room lock.
func buildScoreUpdates(room *internal.Room) []internal.PlayerScoreUpdate {
	updates := make([]internal.PlayerScoreUpdate, 0, len(room.Players))
	for _, p := range room.Players {
		updates = append(updates, internal.PlayerScoreUpdate{
			PlayerID: p.ID,
			Score:    p.Score,
			Streak:   p.Streak,
		})
	}
	return updates
}
