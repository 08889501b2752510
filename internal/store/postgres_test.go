package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/scythe504/race24-backend/internal"
	"github.com/scythe504/race24-backend/internal/store"
)

func startPostgres(t *testing.T) *store.PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("race24"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := store.NewPostgresStore(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func sampleRecord(roomCode string, accepted bool) internal.SubmissionRecord {
	rec := internal.SubmissionRecord{
		SubmissionID:      uuid.New(),
		RoomCode:          roomCode,
		RoundIndex:        0,
		PlayerID:          uuid.New(),
		Expression:        "(1 + 2) * (3 + 5)",
		UsedNumbers:       [4]int{1, 2, 3, 5},
		ClientEvalIsValid: true,
		ServerReceiveTime: time.Now().UTC().Truncate(time.Microsecond),
		Accepted:          accepted,
		Reason:            internal.ReasonAccepted,
		TimeLeft:          21.5,
		SpeedBonus:        4,
		PointsAwarded:     14,
	}
	if !accepted {
		rec.Reason = internal.ReasonTimeExpired
		rec.SpeedBonus = 0
		rec.PointsAwarded = 0
	}
	return rec
}

func TestPostgresStore(t *testing.T) {
	s := startPostgres(t)
	ctx := context.Background()

	t.Run("SaveAndReadBack", func(t *testing.T) {
		rec := sampleRecord("ABCD", true)
		require.NoError(t, s.Save(ctx, rec))

		got, err := s.RecentByRoom(ctx, "ABCD", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, rec.SubmissionID, got[0].SubmissionID)
		assert.Equal(t, rec.UsedNumbers, got[0].UsedNumbers)
		assert.Equal(t, rec.Reason, got[0].Reason)
		assert.Equal(t, rec.PointsAwarded, got[0].PointsAwarded)
		assert.True(t, got[0].Accepted)
	})

	t.Run("CountByRoom", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, sampleRecord("WXYZ", true)))
		require.NoError(t, s.Save(ctx, sampleRecord("WXYZ", false)))

		total, accepted, err := s.CountByRoom(ctx, "WXYZ")
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, 1, accepted)
	})

	t.Run("RecentByRoomOrdersNewestFirst", func(t *testing.T) {
		older := sampleRecord("QRST", true)
		older.ServerReceiveTime = time.Now().UTC().Add(-time.Minute)
		newer := sampleRecord("QRST", true)
		require.NoError(t, s.Save(ctx, older))
		require.NoError(t, s.Save(ctx, newer))

		got, err := s.RecentByRoom(ctx, "QRST", 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, newer.SubmissionID, got[0].SubmissionID)
	})

	t.Run("PruneOlderThan", func(t *testing.T) {
		old := sampleRecord("PRUN", true)
		old.ServerReceiveTime = time.Now().UTC().Add(-48 * time.Hour)
		require.NoError(t, s.Save(ctx, old))
		require.NoError(t, s.Save(ctx, sampleRecord("PRUN", true)))

		pruned, err := s.PruneOlderThan(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pruned, int64(1))

		total, _, err := s.CountByRoom(ctx, "PRUN")
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})
}
