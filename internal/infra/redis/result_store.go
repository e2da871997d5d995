package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"assessment-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ResultStore persists completed results as a Redis list of JSON documents
// per quiz: RPUSH quiz:{quizID}:results {json}. Results are append-only and
// never mutated, which is exactly what a list gives us.
type ResultStore struct {
	client *redis.Client
}

func NewResultStore(client *redis.Client) *ResultStore {
	return &ResultStore{client: client}
}

func (s *ResultStore) SaveResult(ctx context.Context, _ string, res domain.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.client.RPush(ctx, s.key(res.QuizID), raw).Err(); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

func (s *ResultStore) ListResults(ctx context.Context, quizID string) ([]domain.Result, error) {
	raws, err := s.client.LRange(ctx, s.key(quizID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	results := make([]domain.Result, 0, len(raws))
	for _, raw := range raws {
		var res domain.Result
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *ResultStore) key(quizID string) string {
	return "quiz:" + quizID + ":results"
}
