package app

import (
	"testing"

	"assessment-engine/internal/domain"
)

func analyticsResults() []domain.Result {
	// 5 completed attempts for q1: 3 correct, 2 incorrect.
	mk := func(correct bool, percent int, passed, expired bool, seconds int) domain.Result {
		return domain.Result{
			QuizID:       "quiz-1",
			ScorePercent: percent,
			Passed:       passed,
			Expired:      expired,
			Questions: []domain.QuestionResult{
				{QuestionID: "q1", Answered: true, Correct: correct, TimeSpentSeconds: seconds},
				{QuestionID: "q2", Answered: false},
				{QuestionID: "q3", Answered: true, NeedsReview: true},
			},
		}
	}
	return []domain.Result{
		mk(true, 95, true, false, 10),
		mk(true, 85, true, false, 20),
		mk(true, 75, true, false, 30),
		mk(false, 40, false, true, 0),
		mk(false, 65, false, false, 0),
	}
}

func TestAggregateQuestionStats(t *testing.T) {
	def := testDefinition(t, domain.Config{Title: "t", PassingScore: 70, MaxAttempts: 1})
	report := Aggregate(def, analyticsResults())

	q1 := report.Questions[0]
	if q1.TotalAttempts != 5 || q1.CorrectAttempts != 3 {
		t.Fatalf("expected 3/5 for q1, got %d/%d", q1.CorrectAttempts, q1.TotalAttempts)
	}
	if q1.DifficultyIndex != 60 {
		t.Fatalf("expected difficulty index 60, got %d", q1.DifficultyIndex)
	}
	// Average time only over instrumented attempts.
	if q1.AverageTimeSeconds != 20 {
		t.Fatalf("expected average 20s, got %v", q1.AverageTimeSeconds)
	}

	q2 := report.Questions[1]
	if q2.DifficultyIndex != 0 || q2.CorrectAttempts != 0 {
		t.Fatalf("expected q2 never answered correctly, got %+v", q2)
	}

	q3 := report.Questions[2]
	if q3.ManualReviewCount != 5 {
		t.Fatalf("expected 5 manual reviews on q3, got %d", q3.ManualReviewCount)
	}
}

func TestAggregateCohortStats(t *testing.T) {
	def := testDefinition(t, domain.Config{Title: "t", PassingScore: 70, MaxAttempts: 1})
	report := Aggregate(def, analyticsResults())

	if report.CompletedCount != 5 || report.PassedCount != 3 {
		t.Fatalf("expected 3/5 passed, got %d/%d", report.PassedCount, report.CompletedCount)
	}
	if report.PassRate != 60 {
		t.Fatalf("expected pass rate 60, got %v", report.PassRate)
	}
	if report.ExpiredCount != 1 {
		t.Fatalf("expected 1 expired attempt, got %d", report.ExpiredCount)
	}
	wantAvg := float64(95+85+75+40+65) / 5
	if report.AverageScore != wantAvg {
		t.Fatalf("expected average %v, got %v", wantAvg, report.AverageScore)
	}
}

func TestAggregateScoreDistribution(t *testing.T) {
	def := testDefinition(t, domain.Config{Title: "t", PassingScore: 70, MaxAttempts: 1})
	report := Aggregate(def, analyticsResults())

	if len(report.Distribution) != 4 {
		t.Fatalf("expected 4 default buckets, got %d", len(report.Distribution))
	}
	wantCounts := map[string]int{">=90": 1, "80-89": 1, "70-79": 1, "<70": 2}
	for _, bucket := range report.Distribution {
		if bucket.Count != wantCounts[bucket.Label] {
			t.Fatalf("bucket %s: expected %d, got %d", bucket.Label, wantCounts[bucket.Label], bucket.Count)
		}
	}
}

func TestAggregateCustomBuckets(t *testing.T) {
	def := testDefinition(t, domain.Config{Title: "t", PassingScore: 70, MaxAttempts: 1})
	report := Aggregate(def, analyticsResults(), WithBucketBoundaries(50))

	if len(report.Distribution) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(report.Distribution))
	}
	if report.Distribution[0].Count != 4 || report.Distribution[1].Count != 1 {
		t.Fatalf("unexpected bucket counts: %+v", report.Distribution)
	}
}

func TestAggregateEmptyResults(t *testing.T) {
	def := testDefinition(t, domain.Config{Title: "t", PassingScore: 70, MaxAttempts: 1})
	report := Aggregate(def, nil)

	if report.CompletedCount != 0 || report.PassRate != 0 || report.AverageScore != 0 {
		t.Fatalf("expected zeroed cohort stats, got %+v", report)
	}
	if len(report.Questions) != def.QuestionCount() {
		t.Fatalf("question stats must cover every question even with no results")
	}
}
