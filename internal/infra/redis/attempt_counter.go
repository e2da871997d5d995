package redis

import (
	"context"
	"fmt"

	"assessment-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptCounter enforces max_attempts / allow_retries with a Redis INCR per
// (quiz, user) pair: INCR quiz:{quizID}:attempts:{userID}.
type AttemptCounter struct {
	client *redis.Client
}

func NewAttemptCounter(client *redis.Client) *AttemptCounter {
	return &AttemptCounter{client: client}
}

// NextAttempt atomically allocates the next attempt number. The counter is
// incremented before the outcome of the attempt is known, so expired attempts
// consume a slot like voluntary submissions.
func (c *AttemptCounter) NextAttempt(ctx context.Context, quizID, userID string, cfg domain.Config) (int, error) {
	allowed := 1
	if cfg.AllowRetries {
		allowed = cfg.MaxAttempts
	}

	next, err := c.client.Incr(ctx, c.key(quizID, userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate attempt: %w", err)
	}
	if int(next) > allowed {
		return 0, fmt.Errorf("%w: %d of %d used", domain.ErrAttemptLimit, allowed, allowed)
	}
	return int(next), nil
}

func (c *AttemptCounter) key(quizID, userID string) string {
	return "quiz:" + quizID + ":attempts:" + userID
}
