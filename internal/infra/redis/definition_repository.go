package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"assessment-engine/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DefinitionLoader fetches published definitions from a backing store (e.g., Postgres).
type DefinitionLoader interface {
	LoadDefinition(ctx context.Context, quizID string) (*domain.Definition, error)
}

// DefinitionRepository caches whole definitions in Redis as JSON documents
// (SET quiz:{quizID}:definition {json}) and falls back to a loader on cache
// miss. Unmarshaling routes through the validating constructor, so a
// corrupted cache entry is rejected rather than served.
type DefinitionRepository struct {
	client *redis.Client
	loader DefinitionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewDefinitionRepository(client *redis.Client, loader DefinitionLoader, ttl time.Duration) *DefinitionRepository {
	return &DefinitionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *DefinitionRepository) GetDefinition(ctx context.Context, quizID string) (*domain.Definition, error) {
	key := r.definitionKey(quizID)

	if def, ok := r.fromCache(ctx, key); ok {
		return def, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if def, ok := r.fromCache(ctx, key); ok {
			return def, nil
		}

		def, err := r.loader.LoadDefinition(ctx, quizID)
		if err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(def); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return def, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Definition), nil
}

func (r *DefinitionRepository) fromCache(ctx context.Context, key string) (*domain.Definition, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var def domain.Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, false
	}
	return &def, true
}

func (r *DefinitionRepository) definitionKey(quizID string) string {
	return "quiz:" + quizID + ":definition"
}

func (r *DefinitionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
