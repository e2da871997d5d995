package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"assessment-engine/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore persists completed results as JSONB rows. Results are
// append-only; there is no update path.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, userID string, res domain.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_results (quiz_id, user_id, attempt_number, submitted_at, data) VALUES ($1, $2, $3, $4, $5)`,
		res.QuizID, userID, res.AttemptNumber, res.SubmittedAt, raw)
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

func (s *ResultStore) ListResults(ctx context.Context, quizID string) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM quiz_results WHERE quiz_id=$1 ORDER BY submitted_at`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var res domain.Result
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
