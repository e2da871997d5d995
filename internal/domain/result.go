package domain

import "time"

// SessionStatus is the lifecycle state of an attempt.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusSubmitted  SessionStatus = "submitted"
	StatusExpired    SessionStatus = "expired"
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == StatusSubmitted || s == StatusExpired
}

// QuestionResult is the scored outcome of one question within a Result.
type QuestionResult struct {
	QuestionID       string   `json:"questionId"`
	Response         Response `json:"response"`
	Answered         bool     `json:"answered"`
	Correct          bool     `json:"correct"`
	PointsAwarded    int      `json:"pointsAwarded"`
	PointsPossible   int      `json:"pointsPossible"`
	NeedsReview      bool     `json:"needsReview,omitempty"` // free-text question without a comparator
	TimeSpentSeconds int      `json:"timeSpentSeconds,omitempty"`
}

// Result is the immutable scored outcome of a terminal session.
// Expired distinguishes a timeout from a voluntary submission for audit and
// analytics; pass/fail treats both identically.
type Result struct {
	QuizID           string           `json:"quizId"`
	AttemptNumber    int              `json:"attemptNumber"`
	ScorePercent     int              `json:"scorePercent"`
	Passed           bool             `json:"passed"`
	TotalPoints      int              `json:"totalPoints"`
	EarnedPoints     int              `json:"earnedPoints"`
	TimeSpentSeconds int              `json:"timeSpentSeconds"`
	Expired          bool             `json:"expired"`
	SubmittedAt      time.Time        `json:"submittedAt"`
	Questions        []QuestionResult `json:"questions"`
	ManualReview     []string         `json:"manualReview,omitempty"` // question ids excluded from automatic scoring
}
