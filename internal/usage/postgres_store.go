package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) Store {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Log(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO ai_usage (client_id, request_id, operation, provider, model, prompt_tokens, completion_tokens, total_tokens, cache_hit, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	err := s.db.QueryRow(ctx, query,
		rec.ClientID, rec.RequestID, rec.Operation, rec.Provider, rec.Model,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.CacheHit, rec.LatencyMs,
	).Scan(&rec.ID, &rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetByClient(ctx context.Context, clientID string, from, to time.Time) ([]*Record, error) {
	query := `
		SELECT id, client_id, request_id, operation, provider, model, prompt_tokens, completion_tokens, total_tokens, cache_hit, latency_ms, created_at
		FROM ai_usage
		WHERE client_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, clientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var r Record
		err := rows.Scan(
			&r.ID, &r.ClientID, &r.RequestID, &r.Operation, &r.Provider, &r.Model,
			&r.PromptTokens, &r.CompletionTokens, &r.TotalTokens, &r.CacheHit, &r.LatencyMs, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage records: %w", err)
	}

	return records, nil
}

func (s *PostgresStore) GetTotalTokensByClient(ctx context.Context, clientID string, from, to time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(total_tokens), 0)
		FROM ai_usage
		WHERE client_id = $1 AND created_at BETWEEN $2 AND $3
	`
	var total int64
	err := s.db.QueryRow(ctx, query, clientID, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to get total tokens: %w", err)
	}

	return total, nil
}
