package redis

import (
	"context"
	"testing"
	"time"

	"assessment-engine/internal/domain"
	"assessment-engine/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDefinitionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		DefinitionLoader: memory.NewStaticDefinitionLoader(map[string]*domain.Definition{
			"quiz-1": sampleDefinition(t),
		}),
	}
	repo := NewDefinitionRepository(client, loader, time.Minute)

	def, err := repo.GetDefinition(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get definition: %v", err)
	}
	if def.ID() != "quiz-1" || def.QuestionCount() != 1 {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:quiz-1:definition") {
		t.Fatalf("expected cached JSON document in redis")
	}

	// Second call should hit the redis cache, loader not incremented.
	cached, err := repo.GetDefinition(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.TotalPoints() != def.TotalPoints() {
		t.Fatalf("cached definition differs from loaded one")
	}
}

func TestDefinitionRepositoryRejectsCorruptCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	if err := mr.Set("quiz:quiz-1:definition", "{not json"); err != nil {
		t.Fatalf("seed corrupt cache: %v", err)
	}

	loader := &countingLoader{
		DefinitionLoader: memory.NewStaticDefinitionLoader(map[string]*domain.Definition{
			"quiz-1": sampleDefinition(t),
		}),
	}
	repo := NewDefinitionRepository(client, loader, time.Minute)

	// Corrupt cache entry falls through to the loader.
	if _, err := repo.GetDefinition(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get definition: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader fallback, calls=%d", loader.calls)
	}
}

type countingLoader struct {
	DefinitionLoader
	calls int
}

func (l *countingLoader) LoadDefinition(ctx context.Context, quizID string) (*domain.Definition, error) {
	l.calls++
	return l.DefinitionLoader.LoadDefinition(ctx, quizID)
}

func sampleDefinition(t *testing.T) *domain.Definition {
	t.Helper()
	def, err := domain.NewDefinition("quiz-1",
		domain.Config{Title: "Sample", PassingScore: 50, MaxAttempts: 3, AllowRetries: true},
		[]domain.Question{
			{
				ID: "q1", Type: domain.SingleChoice, Text: "What is 2 + 2?", Points: 1,
				Options: []domain.AnswerOption{
					{ID: "o1", Text: "3"},
					{ID: "o2", Text: "4", Correct: true},
				},
			},
		})
	if err != nil {
		t.Fatalf("sample definition: %v", err)
	}
	return def
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
