package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"assessment-engine/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DefinitionLoader fetches published definitions from a backing store.
type DefinitionLoader interface {
	LoadDefinition(ctx context.Context, quizID string) (*domain.Definition, error)
}

// DefinitionRepository caches definitions with TTL to avoid repeated loads.
// Definitions are immutable once published, so a cached copy can be handed
// out to any number of sessions.
type DefinitionRepository struct {
	loader DefinitionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedDefinition
}

type cachedDefinition struct {
	def       *domain.Definition
	expiresAt time.Time
}

func NewDefinitionRepository(loader DefinitionLoader, ttl time.Duration) *DefinitionRepository {
	return &DefinitionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedDefinition),
	}
}

func (r *DefinitionRepository) GetDefinition(ctx context.Context, quizID string) (*domain.Definition, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.def, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.def, nil
		}
		r.mu.RUnlock()

		def, err := r.loader.LoadDefinition(ctx, quizID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedDefinition{
			def:       def,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return def, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Definition), nil
}

func (r *DefinitionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticDefinitionLoader is a loader backed by an in-memory map (useful for tests/demos).
type StaticDefinitionLoader struct {
	definitions map[string]*domain.Definition
}

func NewStaticDefinitionLoader(definitions map[string]*domain.Definition) *StaticDefinitionLoader {
	return &StaticDefinitionLoader{definitions: definitions}
}

func (l *StaticDefinitionLoader) LoadDefinition(_ context.Context, quizID string) (*domain.Definition, error) {
	if def, ok := l.definitions[quizID]; ok {
		return def, nil
	}
	return nil, domain.ErrDefinitionNotFound
}
