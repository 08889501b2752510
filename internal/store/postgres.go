package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scythe504/race24-backend/internal"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	submission_id        UUID PRIMARY KEY,
	room_code            TEXT NOT NULL,
	round_index          INT NOT NULL,
	player_id            UUID NOT NULL,
	expression           TEXT NOT NULL,
	used_numbers         INT[] NOT NULL,
	client_eval_value    DOUBLE PRECISION,
	client_eval_is_valid BOOLEAN NOT NULL,
	client_timestamp     TIMESTAMPTZ,
	server_receive_time  TIMESTAMPTZ NOT NULL,
	accepted             BOOLEAN NOT NULL,
	reason               TEXT NOT NULL,
	time_left            DOUBLE PRECISION NOT NULL,
	speed_bonus          INT NOT NULL,
	points_awarded       INT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_room ON submissions (room_code, server_receive_time DESC);
`

// PostgresStore archives submission records. It is an audit sink only:
// gameplay never reads from it, so a slow or absent database cannot affect
// round timing.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply submissions schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Save(ctx context.Context, rec internal.SubmissionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions (
			submission_id, room_code, round_index, player_id, expression,
			used_numbers, client_eval_value, client_eval_is_valid, client_timestamp,
			server_receive_time, accepted, reason, time_left, speed_bonus, points_awarded
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		rec.SubmissionID, rec.RoomCode, rec.RoundIndex, rec.PlayerID, rec.Expression,
		rec.UsedNumbers[:], rec.ClientEvalValue, rec.ClientEvalIsValid, rec.ClientTimestamp,
		rec.ServerReceiveTime, rec.Accepted, rec.Reason, rec.TimeLeft, rec.SpeedBonus, rec.PointsAwarded,
	)
	if err != nil {
		return fmt.Errorf("insert submission %s: %w", rec.SubmissionID, err)
	}
	return nil
}

// RecentByRoom returns up to limit submissions for a room, newest first.
func (s *PostgresStore) RecentByRoom(ctx context.Context, roomCode string, limit int) ([]internal.SubmissionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT submission_id, room_code, round_index, player_id, expression,
		       used_numbers, client_eval_value, client_eval_is_valid, client_timestamp,
		       server_receive_time, accepted, reason, time_left, speed_bonus, points_awarded
		FROM submissions
		WHERE room_code = $1
		ORDER BY server_receive_time DESC
		LIMIT $2`, roomCode, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions for room %s: %w", roomCode, err)
	}
	defer rows.Close()

	var records []internal.SubmissionRecord
	for rows.Next() {
		var rec internal.SubmissionRecord
		var used []int32
		if err := rows.Scan(
			&rec.SubmissionID, &rec.RoomCode, &rec.RoundIndex, &rec.PlayerID, &rec.Expression,
			&used, &rec.ClientEvalValue, &rec.ClientEvalIsValid, &rec.ClientTimestamp,
			&rec.ServerReceiveTime, &rec.Accepted, &rec.Reason, &rec.TimeLeft, &rec.SpeedBonus, &rec.PointsAwarded,
		); err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		for i := 0; i < len(used) && i < len(rec.UsedNumbers); i++ {
			rec.UsedNumbers[i] = int(used[i])
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByRoom returns total and accepted submission counts for a room.
func (s *PostgresStore) CountByRoom(ctx context.Context, roomCode string) (total, accepted int, err error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE accepted)
		FROM submissions WHERE room_code = $1`, roomCode)
	if err := row.Scan(&total, &accepted); err != nil {
		return 0, 0, fmt.Errorf("count submissions for room %s: %w", roomCode, err)
	}
	return total, accepted, nil
}

// PruneOlderThan deletes archived submissions past the retention window.
func (s *PostgresStore) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM submissions WHERE server_receive_time < $1`, time.Now().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("prune submissions: %w", err)
	}
	return tag.RowsAffected(), nil
}
