package game

import (
	"testing"
	"time"

	"github.com/scythe504/race24-backend/internal"
)

func waitForState(t *testing.T, g *Game, roomCode string, want internal.RoomState, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		room := g.Registry().GetRoom(roomCode)
		if room == nil {
			t.Fatalf("room %s disappeared while waiting for %s", roomCode, want)
		}
		room.Mu.RLock()
		state := room.State
		room.Mu.RUnlock()
		if state == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %s never reached state %s", roomCode, want)
}

func TestStartGameGuards(t *testing.T) {
	g, _ := newTestGame(fastSettings())
	created, _ := g.CreateRoom("ada")

	if err := g.StartGame(created.RoomCode, created.HostPlayerID, "forged"); err != ErrInvalidSession {
		t.Errorf("forged token: err = %v, want ErrInvalidSession", err)
	}
	if err := g.StartGame(created.RoomCode, created.HostPlayerID, created.SessionToken); err != ErrNotEnoughPlayers {
		t.Errorf("solo start: err = %v, want ErrNotEnoughPlayers", err)
	}

	joined, _ := g.JoinRoom(created.RoomCode, "bob", "")
	if err := g.StartGame(created.RoomCode, joined.PlayerID, joined.SessionToken); err != ErrNotHost {
		t.Errorf("non-host start: err = %v, want ErrNotHost", err)
	}

	if err := g.StartGame(created.RoomCode, created.HostPlayerID, created.SessionToken); err != nil {
		t.Fatalf("valid start: %v", err)
	}
	if err := g.StartGame(created.RoomCode, created.HostPlayerID, created.SessionToken); err != ErrNotInLobby {
		t.Errorf("double start: err = %v, want ErrNotInLobby", err)
	}

	g.Shutdown()
}

func TestGameRunsToCompletion(t *testing.T) {
	g, b := newTestGame(fastSettings())
	defer g.Shutdown()

	created, _ := g.CreateRoom("ada")
	g.JoinRoom(created.RoomCode, "bob", "")
	if err := g.StartGame(created.RoomCode, created.HostPlayerID, created.SessionToken); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	waitForState(t, g, created.RoomCode, internal.StateFinished, 2*time.Second)

	room := g.Registry().GetRoom(created.RoomCode)
	room.Mu.RLock()
	if room.Round != nil {
		t.Error("Round not nil after game end")
	}
	room.Mu.RUnlock()

	// Two full rounds plus the final leaderboard.
	if got := b.countType(internal.EventCountdownStart); got != 2 {
		t.Errorf("countdown.start broadcasts = %d, want 2", got)
	}
	if got := b.countType(internal.EventRoundStart); got != 2 {
		t.Errorf("round.start broadcasts = %d, want 2", got)
	}
	if got := b.countType(internal.EventRoundEnd); got != 2 {
		t.Errorf("round.end broadcasts = %d, want 2", got)
	}
	if got := b.countType(internal.EventGameEnd); got != 1 {
		t.Errorf("game.end broadcasts = %d, want 1", got)
	}

	if ids := g.timers.ActiveForRoom(created.RoomCode); len(ids) != 0 {
		t.Errorf("%d timers outstanding after game end", len(ids))
	}
}

func TestScoresResetOnStart(t *testing.T) {
	g, _ := newTestGame(fastSettings())
	defer g.Shutdown()

	created, _ := g.CreateRoom("ada")
	g.JoinRoom(created.RoomCode, "bob", "")

	room := g.Registry().GetRoom(created.RoomCode)
	room.Mu.Lock()
	room.Players[created.HostPlayerID].Score = 99
	room.Players[created.HostPlayerID].Streak = 7
	room.Mu.Unlock()

	if err := g.StartGame(created.RoomCode, created.HostPlayerID, created.SessionToken); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	room.Mu.RLock()
	defer room.Mu.RUnlock()
	if p := room.Players[created.HostPlayerID]; p.Score != 0 || p.Streak != 0 {
		t.Errorf("score/streak = %d/%d after start, want 0/0", p.Score, p.Streak)
	}
}

func TestPointsToWinEndsEarly(t *testing.T) {
	settings := fastSettings()
	settings.Rounds = 10
	settings.PointsToWin = 1
	g, b := newTestGame(settings)
	defer g.Shutdown()

	created, _ := g.CreateRoom("ada")
	joined, _ := g.JoinRoom(created.RoomCode, "bob", "")
	if err := g.StartGame(created.RoomCode, created.HostPlayerID, created.SessionToken); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	// Score during round 0's active phase; the game should finish at the
	// end of that round instead of playing all ten.
	room := g.Registry().GetRoom(created.RoomCode)
	deadline := time.Now().Add(time.Second)
	submitted := false
	for time.Now().Before(deadline) && !submitted {
		room.Mu.RLock()
		active := room.Round != nil && room.Round.State.Phase == internal.PhaseActive
		var numbers [4]int
		if active {
			numbers = room.Problems[0].Numbers
		}
		room.Mu.RUnlock()

		if active {
			ack := g.Submit(joined.PlayerID, internal.AnswerSubmitPayload{
				RoomCode:          created.RoomCode,
				SessionToken:      joined.SessionToken,
				RoundIndex:        0,
				Expression:        "x",
				UsedNumbers:       numbers,
				ClientEvalIsValid: true,
			})
			if !ack.Accepted {
				t.Fatalf("submission rejected: %s", ack.Reason)
			}
			submitted = true
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !submitted {
		t.Fatal("round never became active")
	}

	waitForState(t, g, created.RoomCode, internal.StateFinished, 2*time.Second)
	if got := b.countType(internal.EventRoundEnd); got != 1 {
		t.Errorf("round.end broadcasts = %d, want 1 (early finish)", got)
	}

	// Winner leads the leaderboard.
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if msg, ok := e.(internal.Message[internal.GameEndData]); ok {
			if len(msg.Data.Leaderboard) == 0 || msg.Data.Leaderboard[0].PlayerID != joined.PlayerID {
				t.Error("scoring player is not first on the leaderboard")
			}
		}
	}
}

func TestForceEndGameCancelsTimers(t *testing.T) {
	g, _ := newTestGame(fastSettings())
	defer g.Shutdown()

	created, _ := g.CreateRoom("ada")
	g.JoinRoom(created.RoomCode, "bob", "")
	if err := g.StartGame(created.RoomCode, created.HostPlayerID, created.SessionToken); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	g.ForceEndGame(created.RoomCode, "test teardown")

	room := g.Registry().GetRoom(created.RoomCode)
	room.Mu.RLock()
	state := room.State
	room.Mu.RUnlock()
	if state != internal.StateFinished {
		t.Errorf("state = %s, want FINISHED", state)
	}
	if ids := g.timers.ActiveForRoom(created.RoomCode); len(ids) != 0 {
		t.Errorf("%d timers outstanding after force end", len(ids))
	}
}

func TestStaleTimerCallbackIsNoop(t *testing.T) {
	g, _ := newTestGame(fastSettings())
	defer g.Shutdown()

	created, _ := g.CreateRoom("ada")
	g.JoinRoom(created.RoomCode, "bob", "")

	room := g.Registry().GetRoom(created.RoomCode)
	room.Mu.RLock()
	generation := room.Generation
	room.Mu.RUnlock()

	// A callback carrying a stale generation must not disturb the lobby.
	g.handleCountdownComplete(created.RoomCode, generation-1, 0)
	g.handleRoundTimeout(created.RoomCode, generation-1, 0)
	g.handleResultsComplete(created.RoomCode, generation-1, 0)

	room.Mu.RLock()
	defer room.Mu.RUnlock()
	if room.State != internal.StateLobby {
		t.Errorf("state = %s after stale callbacks, want LOBBY", room.State)
	}
	if room.Round != nil {
		t.Error("stale callback created a round")
	}
}

func TestLeaveRoomBroadcastsAndValidates(t *testing.T) {
	g, b := newTestGame(fastSettings())
	defer g.Shutdown()

	created, _ := g.CreateRoom("ada")
	joined, _ := g.JoinRoom(created.RoomCode, "bob", "")

	if err := g.LeaveRoom(created.RoomCode, joined.PlayerID, "forged"); err != ErrInvalidSession {
		t.Errorf("forged leave: err = %v, want ErrInvalidSession", err)
	}
	if err := g.LeaveRoom(created.RoomCode, joined.PlayerID, joined.SessionToken); err != nil {
		t.Fatalf("LeaveRoom: %v", err)
	}
	if got := b.countType(internal.EventPlayerLeft); got != 1 {
		t.Errorf("player.left broadcasts = %d, want 1", got)
	}

	room := g.Registry().GetRoom(created.RoomCode)
	room.Mu.RLock()
	defer room.Mu.RUnlock()
	if _, still := room.Players[joined.PlayerID]; still {
		t.Error("player still in room after leave")
	}
}

func TestHandleDisconnectKeepsPlayer(t *testing.T) {
	g, _ := newTestGame(fastSettings())
	defer g.Shutdown()

	created, _ := g.CreateRoom("ada")
	joined, _ := g.JoinRoom(created.RoomCode, "bob", "")

	g.HandleDisconnect(created.RoomCode, joined.PlayerID)

	room := g.Registry().GetRoom(created.RoomCode)
	room.Mu.RLock()
	defer room.Mu.RUnlock()
	p, ok := room.Players[joined.PlayerID]
	if !ok {
		t.Fatal("disconnected player removed from room")
	}
	if p.DisconnectedAt == nil {
		t.Error("DisconnectedAt not set")
	}
}

func TestReapCancelsTimersForReapedRooms(t *testing.T) {
	g, _ := newTestGame(fastSettings())
	defer g.Shutdown()

	created, _ := g.CreateRoom("ada")
	g.JoinRoom(created.RoomCode, "bob", "")
	if err := g.StartGame(created.RoomCode, created.HostPlayerID, created.SessionToken); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	room := g.Registry().GetRoom(created.RoomCode)
	room.Mu.Lock()
	room.LastActivityAt = time.Now().Add(-time.Hour)
	room.Mu.Unlock()

	if n := g.ReapIdleRooms(time.Minute); n != 1 {
		t.Fatalf("reaped %d rooms, want 1", n)
	}
	if ids := g.timers.ActiveForRoom(created.RoomCode); len(ids) != 0 {
		t.Errorf("%d timers outstanding after reap", len(ids))
	}
}

func TestJoinBroadcastsPlayerJoined(t *testing.T) {
	g, b := newTestGame(fastSettings())
	defer g.Shutdown()

	created, _ := g.CreateRoom("ada")
	joined, err := g.JoinRoom(created.RoomCode, "bob", "")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if got := b.countType(internal.EventPlayerJoined); got != 1 {
		t.Errorf("player.joined broadcasts = %d, want 1", got)
	}

	// Reconnection must not announce a new player.
	g.HandleDisconnect(created.RoomCode, joined.PlayerID)
	if _, err := g.JoinRoom(created.RoomCode, "bob", joined.SessionToken); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if got := b.countType(internal.EventPlayerJoined); got != 1 {
		t.Errorf("player.joined broadcasts after reconnect = %d, want still 1", got)
	}
}
