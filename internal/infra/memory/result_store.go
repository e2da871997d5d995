package memory

import (
	"context"
	"sync"

	"assessment-engine/internal/domain"
)

// ResultStore keeps completed results in memory, grouped by quiz.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string][]domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string][]domain.Result)}
}

func (s *ResultStore) SaveResult(_ context.Context, _ string, res domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[res.QuizID] = append(s.results[res.QuizID], res)
	return nil
}

func (s *ResultStore) ListResults(_ context.Context, quizID string) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, len(s.results[quizID]))
	copy(out, s.results[quizID])
	return out, nil
}
