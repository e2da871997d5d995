package app

import (
	"math"

	"assessment-engine/internal/domain"
)

// Comparator decides whether a free-text answer to a question is correct.
// Comparators come from the authoring collaborator; the engine ships exact and
// normalized matchers in comparators.go.
type Comparator func(q domain.Question, answer string) bool

// ComparatorSource supplies comparators per question id.
type ComparatorSource interface {
	ComparatorFor(questionID string) (Comparator, bool)
}

// ComparatorMap is the simplest ComparatorSource.
type ComparatorMap map[string]Comparator

// ComparatorFor implements ComparatorSource.
func (m ComparatorMap) ComparatorFor(questionID string) (Comparator, bool) {
	c, ok := m[questionID]
	return c, ok
}

// Score evaluates a session's responses against the definition and produces
// the immutable Result. It is pure: the same (definition, snapshot,
// comparators) always yields the same Result, and nothing is mutated.
//
// Scoring always completes. A free-text question without a comparator is not
// scored as wrong; it is excluded from automatic scoring and listed in
// Result.ManualReview.
func Score(def *domain.Definition, snap SessionSnapshot, comparators ComparatorSource) domain.Result {
	questions := def.Questions()
	perQuestion := make([]domain.QuestionResult, 0, len(questions))
	var manualReview []string
	totalPoints := 0
	earnedPoints := 0

	for _, q := range questions {
		totalPoints += q.Points
		resp, answered := snap.Responses[q.ID]

		qr := domain.QuestionResult{
			QuestionID:       q.ID,
			Response:         resp,
			Answered:         answered,
			PointsPossible:   q.Points,
			TimeSpentSeconds: resp.TimeSpentSeconds,
		}

		switch {
		case !answered:
			// Unanswered is simply incorrect, never an error.
		case q.Type == domain.SingleChoice || q.Type == domain.TrueFalse:
			correct := q.CorrectOptionIDs()
			qr.Correct = len(correct) == 1 && resp.OptionID == correct[0]
		case q.Type == domain.MultiChoice:
			// Exact set equality: no partial credit, extras disqualify.
			qr.Correct = setsEqual(resp.OptionSet(), toSet(q.CorrectOptionIDs()))
		default: // fill-in-blank, scenario
			var cmp Comparator
			var ok bool
			if comparators != nil {
				cmp, ok = comparators.ComparatorFor(q.ID)
			}
			if !ok {
				qr.NeedsReview = true
				manualReview = append(manualReview, q.ID)
			} else {
				qr.Correct = cmp(q, resp.Text)
			}
		}

		if qr.Correct {
			qr.PointsAwarded = q.Points
			earnedPoints += q.Points
		}
		perQuestion = append(perQuestion, qr)
	}

	cfg := def.Config()
	percent := 0
	if totalPoints > 0 {
		percent = int(math.Round(float64(earnedPoints) / float64(totalPoints) * 100))
	}

	return domain.Result{
		QuizID:           def.ID(),
		AttemptNumber:    snap.AttemptNumber,
		ScorePercent:     percent,
		Passed:           percent >= cfg.PassingScore,
		TotalPoints:      totalPoints,
		EarnedPoints:     earnedPoints,
		TimeSpentSeconds: int(snap.EndTime.Sub(snap.StartTime).Seconds()),
		Expired:          snap.Expired,
		SubmittedAt:      snap.EndTime,
		Questions:        perQuestion,
		ManualReview:     manualReview,
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
