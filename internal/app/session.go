package app

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"assessment-engine/internal/domain"
)

// SessionEvent is pushed to subscribers on timer ticks and terminal transitions.
type SessionEvent struct {
	Type             string         `json:"type"` // "tick", "submitted", "expired"
	RemainingSeconds int            `json:"remainingSeconds"`
	Result           *domain.Result `json:"result,omitempty"`
}

// SessionSnapshot is the read-only view of a session the scoring engine consumes.
type SessionSnapshot struct {
	SessionID     string
	QuizID        string
	AttemptNumber int
	Status        domain.SessionStatus
	Responses     map[string]domain.Response
	StartTime     time.Time
	EndTime       time.Time
	Expired       bool
}

// Session is one test-taker's in-flight attempt at a quiz definition.
//
// All mutation goes through the mutex, and the terminal transition (submit or
// expiry, whichever is processed first) happens at most once; the loser of
// that race observes a terminal status and becomes a no-op.
type Session struct {
	id      string
	def     *domain.Definition
	attempt int
	now     func() time.Time
	finish  func(SessionSnapshot) domain.Result

	mu          sync.RWMutex
	status      domain.SessionStatus
	current     int
	order       []int // presentation order of question indexes
	responses   map[string]domain.Response
	startTime   time.Time
	endTime     time.Time
	remaining   int // seconds left; -1 when the quiz is untimed
	result      *domain.Result
	done        chan struct{}
	subscribers map[chan SessionEvent]struct{}
}

func newSession(id string, def *domain.Definition, attempt int, now func() time.Time, finish func(SessionSnapshot) domain.Result) *Session {
	s := &Session{
		id:          id,
		def:         def,
		attempt:     attempt,
		now:         now,
		finish:      finish,
		status:      domain.StatusNotStarted,
		responses:   make(map[string]domain.Response),
		remaining:   -1,
		done:        make(chan struct{}),
		subscribers: make(map[chan SessionEvent]struct{}),
	}
	s.order = presentationOrder(id, def)
	return s
}

// presentationOrder fixes the question order for the whole attempt. The seed
// is derived from the session id so navigation is stable across actions.
func presentationOrder(sessionID string, def *domain.Definition) []int {
	order := make([]int, def.QuestionCount())
	for i := range order {
		order[i] = i
	}
	if def.Config().ShuffleQuestions {
		rnd := rand.New(rand.NewSource(seedFor(sessionID)))
		rnd.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}

func seedFor(sessionID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionID))
	return int64(h.Sum64())
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// QuizID returns the id of the definition under attempt.
func (s *Session) QuizID() string { return s.def.ID() }

// AttemptNumber returns this session's attempt number.
func (s *Session) AttemptNumber() int { return s.attempt }

// Definition returns the (read-only) definition under attempt.
func (s *Session) Definition() *domain.Definition { return s.def }

// Status returns the current lifecycle state.
func (s *Session) Status() domain.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// CurrentIndex returns the presentation-order index of the current question.
func (s *Session) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// RemainingSeconds returns the seconds left, or -1 when the quiz is untimed.
func (s *Session) RemainingSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remaining
}

// Result returns the scored outcome once the session is terminal.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

// Done is closed on the terminal transition; timer goroutines select on it.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start moves the session from not-started to in-progress and arms the clock.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusNotStarted {
		return fmt.Errorf("%w: start from %s", domain.ErrInvalidTransition, s.status)
	}
	s.status = domain.StatusInProgress
	s.startTime = s.now()
	if limit := s.def.Config().TimeLimitMinutes; limit > 0 {
		s.remaining = limit * 60
	}
	return nil
}

// Navigate moves the current question index by delta, clamped to the valid
// range. Out-of-range moves are not an error; they stop at the boundary.
func (s *Session) Navigate(delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusInProgress {
		return s.current, fmt.Errorf("%w: navigate from %s", domain.ErrInvalidTransition, s.status)
	}
	next := s.current + delta
	if next < 0 {
		next = 0
	}
	if max := s.def.QuestionCount() - 1; next > max {
		next = max
	}
	s.current = next
	return s.current, nil
}

// PresentedQuestion returns the question shown at presentation index i,
// with options shuffled when the configuration asks for it.
func (s *Session) PresentedQuestion(i int) (domain.Question, error) {
	if i < 0 || i >= s.def.QuestionCount() {
		return domain.Question{}, fmt.Errorf("%w: index %d", domain.ErrUnknownQuestion, i)
	}
	q := s.def.QuestionAt(s.order[i])
	if s.def.Config().ShuffleAnswers && len(q.Options) > 1 {
		opts := make([]domain.AnswerOption, len(q.Options))
		copy(opts, q.Options)
		rnd := rand.New(rand.NewSource(seedFor(s.id + ":" + q.ID)))
		rnd.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		q.Options = opts
	}
	return q, nil
}

// CurrentQuestion returns the question at the current index.
func (s *Session) CurrentQuestion() (domain.Question, error) {
	s.mu.RLock()
	i := s.current
	s.mu.RUnlock()
	return s.PresentedQuestion(i)
}

// RecordResponse overwrites the stored response for a question. The value's
// shape must match the question's type; a rejected action leaves the session
// untouched.
func (s *Session) RecordResponse(questionID string, resp domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusInProgress {
		return fmt.Errorf("%w: record response from %s", domain.ErrInvalidTransition, s.status)
	}
	q, ok := s.def.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownQuestion, questionID)
	}
	if !resp.MatchesType(q.Type) {
		return fmt.Errorf("%w: question %q is %s, got %s value", domain.ErrInvalidResponseShape, questionID, q.Type, resp.Kind)
	}
	s.responses[questionID] = resp
	return nil
}

// Tick advances the countdown by one second. It is a no-op for untimed,
// not-started, and terminal sessions; when the countdown reaches zero it
// performs the implicit submit and the session expires.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusInProgress || s.remaining < 0 {
		return
	}
	s.remaining--
	if s.remaining > 0 {
		s.broadcastLocked(SessionEvent{Type: "tick", RemainingSeconds: s.remaining})
		return
	}
	s.remaining = 0
	s.terminateLocked(domain.StatusExpired)
}

// Submit finalizes the session voluntarily. Submitting an already-terminal
// session is an idempotent no-op returning the stored result, so a manual
// submit racing the expiry tick can never score twice.
func (s *Session) Submit() (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return *s.result, nil
	}
	if s.status != domain.StatusInProgress {
		return domain.Result{}, fmt.Errorf("%w: submit from %s", domain.ErrInvalidTransition, s.status)
	}
	s.terminateLocked(domain.StatusSubmitted)
	return *s.result, nil
}

// terminateLocked performs the single allowed transition out of in-progress:
// stamps the end time, scores, stores the result, and wakes subscribers.
func (s *Session) terminateLocked(status domain.SessionStatus) {
	s.status = status
	s.endTime = s.now()
	res := s.finish(s.snapshotLocked())
	s.result = &res
	close(s.done)
	s.broadcastLocked(SessionEvent{Type: string(status), RemainingSeconds: s.remaining, Result: s.result})
}

// Snapshot returns a copy of the session state for scoring or inspection.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() SessionSnapshot {
	responses := make(map[string]domain.Response, len(s.responses))
	for id, r := range s.responses {
		responses[id] = r
	}
	return SessionSnapshot{
		SessionID:     s.id,
		QuizID:        s.def.ID(),
		AttemptNumber: s.attempt,
		Status:        s.status,
		Responses:     responses,
		StartTime:     s.startTime,
		EndTime:       s.endTime,
		Expired:       s.status == domain.StatusExpired,
	}
}

// Subscribe returns a channel receiving session events. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(ev SessionEvent) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest pending event so slow consumers never block a tick.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
