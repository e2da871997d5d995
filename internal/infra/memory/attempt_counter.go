package memory

import (
	"context"
	"fmt"
	"sync"

	"assessment-engine/internal/domain"
)

// AttemptCounter is an in-memory implementation of app.AttemptSource.
type AttemptCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewAttemptCounter() *AttemptCounter {
	return &AttemptCounter{counts: make(map[string]int)}
}

// NextAttempt allocates the next attempt number, enforcing the quiz's retry
// policy. The attempt is consumed immediately; an expired session does not
// refund it.
func (c *AttemptCounter) NextAttempt(_ context.Context, quizID, userID string, cfg domain.Config) (int, error) {
	allowed := 1
	if cfg.AllowRetries {
		allowed = cfg.MaxAttempts
	}

	key := quizID + ":" + userID
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.counts[key] + 1
	if next > allowed {
		return 0, fmt.Errorf("%w: %d of %d used", domain.ErrAttemptLimit, next-1, allowed)
	}
	c.counts[key] = next
	return next, nil
}
