package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"assessment-engine/internal/domain"
)

// DefinitionRepository loads published quiz definitions (from cache/backing store).
type DefinitionRepository interface {
	GetDefinition(ctx context.Context, quizID string) (*domain.Definition, error)
}

// AttemptSource allocates the next attempt number for a (user, quiz) pair and
// enforces max_attempts / allow_retries before a session exists. An expired
// attempt counts exactly like a voluntary one: the attempt is consumed when
// the session is created, before the outcome is known.
type AttemptSource interface {
	NextAttempt(ctx context.Context, quizID, userID string, cfg domain.Config) (int, error)
}

// ResultStore persists completed results and replays them for analytics.
type ResultStore interface {
	SaveResult(ctx context.Context, userID string, res domain.Result) error
	ListResults(ctx context.Context, quizID string) ([]domain.Result, error)
}

// SessionRepository abstracts how live sessions are tracked (in-memory, Redis, etc).
type SessionRepository interface {
	Put(s *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// Engine wires the session, scoring, and analytics components to their
// collaborator interfaces. Scoring and aggregation are pure; only sessions
// hold runtime state.
type Engine struct {
	definitions DefinitionRepository
	attempts    AttemptSource
	results     ResultStore
	sessions    SessionRepository
	comparators ComparatorSource
	now         func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithComparators installs the free-text comparators supplied by authoring.
func WithComparators(src ComparatorSource) Option {
	return func(e *Engine) { e.comparators = src }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(definitions DefinitionRepository, attempts AttemptSource, results ResultStore, sessions SessionRepository, opts ...Option) *Engine {
	e := &Engine{
		definitions: definitions,
		attempts:    attempts,
		results:     results,
		sessions:    sessions,
		now:         time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// StartSession gates the attempt, instantiates a session from the definition,
// starts it, and arms the expiry timer for timed quizzes.
func (e *Engine) StartSession(ctx context.Context, quizID, userID string) (*Session, error) {
	def, err := e.definitions.GetDefinition(ctx, quizID)
	if err != nil {
		return nil, err
	}

	attempt, err := e.attempts.NextAttempt(ctx, quizID, userID, def.Config())
	if err != nil {
		return nil, err
	}

	sessionID := fmt.Sprintf("%s:%s:%d", quizID, userID, attempt)
	session := newSession(sessionID, def, attempt, e.now, func(snap SessionSnapshot) domain.Result {
		res := Score(def, snap, e.comparators)
		if e.results != nil {
			if err := e.results.SaveResult(context.Background(), userID, res); err != nil {
				log.Printf("save result for session %s: %v", sessionID, err)
			}
		}
		return res
	})
	if err := session.Start(); err != nil {
		return nil, err
	}
	e.sessions.Put(session)

	if def.Config().TimeLimitMinutes > 0 {
		go e.runTimer(session)
	}
	return session, nil
}

// runTimer is the cancellable scheduled task driving the 1-second tick. It is
// tied to the session's lifetime: the terminal transition closes Done and the
// ticker stops, so a stray tick can never touch a finished session.
func (e *Engine) runTimer(s *Session) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-s.Done():
			return
		}
	}
}

// Session returns a live session by id.
func (e *Engine) Session(sessionID string) (*Session, bool) {
	return e.sessions.Get(sessionID)
}

// Navigate moves the current question index of a live session.
func (e *Engine) Navigate(sessionID string, delta int) (int, error) {
	session, ok := e.sessions.Get(sessionID)
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	return session.Navigate(delta)
}

// RecordResponse captures an answer value for a live session.
func (e *Engine) RecordResponse(sessionID, questionID string, resp domain.Response) error {
	session, ok := e.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.RecordResponse(questionID, resp)
}

// Submit finalizes a live session and returns its result.
func (e *Engine) Submit(sessionID string) (domain.Result, error) {
	session, ok := e.sessions.Get(sessionID)
	if !ok {
		return domain.Result{}, domain.ErrSessionNotFound
	}
	return session.Submit()
}

// Release drops a terminal or abandoned session from the repository. The
// hosting transport decides when an abandoned in-progress session is released.
func (e *Engine) Release(sessionID string) {
	e.sessions.Delete(sessionID)
}

// Aggregate replays stored results for a quiz into an analytics report.
func (e *Engine) Aggregate(ctx context.Context, quizID string, opts ...AggregateOption) (AnalyticsReport, error) {
	def, err := e.definitions.GetDefinition(ctx, quizID)
	if err != nil {
		return AnalyticsReport{}, err
	}
	results, err := e.results.ListResults(ctx, quizID)
	if err != nil {
		return AnalyticsReport{}, err
	}
	return Aggregate(def, results, opts...), nil
}
