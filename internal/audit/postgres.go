package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS tag_actions (
	id            UUID PRIMARY KEY,
	nsvc          TEXT NOT NULL,
	nvr           TEXT NOT NULL,
	rule_ids      TEXT[] NOT NULL,
	tags          TEXT[] NOT NULL,
	dry_run       BOOLEAN NOT NULL,
	result        TEXT NOT NULL,
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL
)`

// PostgresSink persists tagging actions to PostgreSQL.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a Postgres-backed sink and ensures the
// tag_actions table exists.
func NewPostgresSink(ctx context.Context, pool *pgxpool.Pool) (*PostgresSink, error) {
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create tag_actions table: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Record persists one action.
func (s *PostgresSink) Record(ctx context.Context, action Action) error {
	errMsg := pgtype.Text{}
	if action.Error != "" {
		errMsg = pgtype.Text{String: action.Error, Valid: true}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tag_actions
			(id, nsvc, nvr, rule_ids, tags, dry_run, result, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		action.ID, action.NSVC, action.NVR, action.RuleIDs, action.Tags,
		action.DryRun, action.Result, errMsg, action.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record tag action: %w", err)
	}
	return nil
}

// Recent returns up to limit actions, newest first.
func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]Action, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, nsvc, nvr, rule_ids, tags, dry_run, result, error_message, created_at
		FROM tag_actions
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag actions: %w", err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var a Action
		var errMsg pgtype.Text
		if err := rows.Scan(&a.ID, &a.NSVC, &a.NVR, &a.RuleIDs, &a.Tags,
			&a.DryRun, &a.Result, &errMsg, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag action: %w", err)
		}
		if errMsg.Valid {
			a.Error = errMsg.String
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Close releases the underlying connection pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
