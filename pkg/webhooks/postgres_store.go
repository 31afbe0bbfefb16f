package webhooks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/heraldhq/herald/pkg/observability"
)

// PostgresLogStore persists delivery history in PostgreSQL. Each Record
// prunes the guild's rows past the retention ceiling in the same
// transaction, so the table never grows beyond limit rows per guild apart
// from brief write races, which the periodic Sweep cleans up.
type PostgresLogStore struct {
	db      *sql.DB
	limit   int
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewPostgresLogStore creates a PostgreSQL-backed delivery log and ensures
// its table exists.
func NewPostgresLogStore(db *sql.DB, limit int, logger *observability.Logger, metrics *observability.Metrics) (*PostgresLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	store := &PostgresLogStore{
		db:      db,
		limit:   limit,
		logger:  logger,
		metrics: metrics,
	}

	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure delivery_attempts table: %w", err)
	}

	return store, nil
}

// ensureTable creates the delivery_attempts table if it doesn't exist
func (s *PostgresLogStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS delivery_attempts (
		id UUID PRIMARY KEY,
		guild_id VARCHAR(64) NOT NULL,
		endpoint_id UUID NOT NULL,
		event_type VARCHAR(100) NOT NULL,
		attempt_number INTEGER NOT NULL,
		status VARCHAR(20) NOT NULL,
		http_status INTEGER,
		response_excerpt TEXT,
		error_message TEXT,
		duration_ms INTEGER NOT NULL,
		occurred_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_delivery_attempts_guild_occurred
		ON delivery_attempts(guild_id, occurred_at DESC);
	`

	_, err := s.db.Exec(query)
	return err
}

// Record inserts the attempt and prunes the guild's history in one
// transaction.
func (s *PostgresLogStore) Record(ctx context.Context, attempt DeliveryAttempt) error {
	start := time.Now()
	err := s.record(ctx, attempt)
	s.metrics.ObserveLogStoreOp("record", "postgres", err, time.Since(start))
	return err
}

func (s *PostgresLogStore) record(ctx context.Context, attempt DeliveryAttempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO delivery_attempts (
			id, guild_id, endpoint_id, event_type,
			attempt_number, status, http_status,
			response_excerpt, error_message, duration_ms, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, insert,
		attempt.ID, attempt.GuildID, attempt.EndpointID, string(attempt.EventType),
		attempt.AttemptNumber, attempt.Status, nullableInt(attempt.HTTPStatus),
		attempt.ResponseExcerpt, attempt.ErrorMessage, attempt.DurationMs, attempt.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery attempt: %w", err)
	}

	prune := `
		DELETE FROM delivery_attempts
		WHERE guild_id = $1
		AND id NOT IN (
			SELECT id FROM delivery_attempts
			WHERE guild_id = $1
			ORDER BY occurred_at DESC
			LIMIT $2
		)
	`
	if _, err := tx.ExecContext(ctx, prune, attempt.GuildID, s.limit); err != nil {
		return fmt.Errorf("failed to prune delivery history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delivery attempt: %w", err)
	}
	return nil
}

// List returns a guild's attempts, newest first
func (s *PostgresLogStore) List(ctx context.Context, guildID string, limit int) ([]DeliveryAttempt, error) {
	start := time.Now()
	limit = clampLimit(limit, s.limit)

	query := `
		SELECT id, guild_id, endpoint_id, event_type,
			attempt_number, status, http_status,
			response_excerpt, error_message, duration_ms, occurred_at
		FROM delivery_attempts
		WHERE guild_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, guildID, limit)
	s.metrics.ObserveLogStoreOp("list", "postgres", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}
	defer rows.Close()

	var attempts []DeliveryAttempt
	for rows.Next() {
		var attempt DeliveryAttempt
		var httpStatus sql.NullInt64
		var eventType string
		if err := rows.Scan(
			&attempt.ID, &attempt.GuildID, &attempt.EndpointID, &eventType,
			&attempt.AttemptNumber, &attempt.Status, &httpStatus,
			&attempt.ResponseExcerpt, &attempt.ErrorMessage, &attempt.DurationMs, &attempt.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery attempt: %w", err)
		}
		attempt.EventType = EventType(eventType)
		if httpStatus.Valid {
			attempt.HTTPStatus = int(httpStatus.Int64)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery attempts: %w", err)
	}
	return attempts, nil
}

// Sweep removes rows beyond the retention ceiling across all guilds. It runs
// on a schedule to clean up after concurrent writers whose interleaved
// prunes let a few extra rows survive.
func (s *PostgresLogStore) Sweep(ctx context.Context) (int64, error) {
	start := time.Now()

	query := `
		DELETE FROM delivery_attempts
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY guild_id ORDER BY occurred_at DESC
				) AS rank
				FROM delivery_attempts
			) ranked
			WHERE ranked.rank > $1
		)
	`
	result, err := s.db.ExecContext(ctx, query, s.limit)
	s.metrics.ObserveLogStoreOp("sweep", "postgres", err, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep delivery history: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept rows: %w", err)
	}
	return removed, nil
}

// Close closes the underlying database handle
func (s *PostgresLogStore) Close() error {
	return s.db.Close()
}

func nullableInt(v int) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

var _ DeliveryLogStore = (*PostgresLogStore)(nil)
