package app

import (
	"math"
	"strconv"

	"assessment-engine/internal/domain"
)

// QuestionStats is the per-question slice of an analytics report.
type QuestionStats struct {
	QuestionID         string  `json:"questionId"`
	TotalAttempts      int     `json:"totalAttempts"`
	CorrectAttempts    int     `json:"correctAttempts"`
	DifficultyIndex    int     `json:"difficultyIndex"` // % answered correctly; higher = easier
	AverageTimeSeconds float64 `json:"averageTimeSeconds,omitempty"`
	ManualReviewCount  int     `json:"manualReviewCount,omitempty"`
}

// ScoreBucket counts results whose score falls in [Min, Max].
type ScoreBucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// AnalyticsReport aggregates many completed results for one quiz.
type AnalyticsReport struct {
	QuizID         string          `json:"quizId"`
	CompletedCount int             `json:"completedCount"`
	PassedCount    int             `json:"passedCount"`
	ExpiredCount   int             `json:"expiredCount"`
	AverageScore   float64         `json:"averageScore"`
	PassRate       float64         `json:"passRate"` // percentage
	Distribution   []ScoreBucket   `json:"distribution"`
	Questions      []QuestionStats `json:"questions"`
}

// AggregateOption customizes aggregation.
type AggregateOption func(*aggregateConfig)

type aggregateConfig struct {
	boundaries []int
}

// WithBucketBoundaries overrides the score-distribution cut points
// (descending, e.g. 90,80,70 producing >=90, 80-89, 70-79, <70). Bucket
// boundaries are presentation policy, so reporting callers own them.
func WithBucketBoundaries(boundaries ...int) AggregateOption {
	return func(c *aggregateConfig) { c.boundaries = boundaries }
}

// Aggregate derives per-question and cohort statistics from completed
// results. It only reads; results and definition are never mutated.
func Aggregate(def *domain.Definition, results []domain.Result, opts ...AggregateOption) AnalyticsReport {
	cfg := aggregateConfig{boundaries: []int{90, 80, 70}}
	for _, o := range opts {
		o(&cfg)
	}

	report := AnalyticsReport{
		QuizID:       def.ID(),
		Distribution: newBuckets(cfg.boundaries),
	}

	type questionAccum struct {
		attempts  int
		correct   int
		timeSum   int
		timeCount int
		review    int
	}
	accum := make(map[string]*questionAccum, def.QuestionCount())
	for _, q := range def.Questions() {
		accum[q.ID] = &questionAccum{}
	}

	scoreSum := 0
	for _, res := range results {
		report.CompletedCount++
		if res.Passed {
			report.PassedCount++
		}
		if res.Expired {
			report.ExpiredCount++
		}
		scoreSum += res.ScorePercent
		countInBuckets(report.Distribution, res.ScorePercent)

		for _, qr := range res.Questions {
			a, ok := accum[qr.QuestionID]
			if !ok {
				continue // question no longer in the definition
			}
			a.attempts++
			if qr.Correct {
				a.correct++
			}
			if qr.NeedsReview {
				a.review++
			}
			if qr.TimeSpentSeconds > 0 {
				a.timeSum += qr.TimeSpentSeconds
				a.timeCount++
			}
		}
	}

	if report.CompletedCount > 0 {
		report.AverageScore = float64(scoreSum) / float64(report.CompletedCount)
		report.PassRate = float64(report.PassedCount) / float64(report.CompletedCount) * 100
	}

	for _, q := range def.Questions() {
		a := accum[q.ID]
		stats := QuestionStats{
			QuestionID:        q.ID,
			TotalAttempts:     a.attempts,
			CorrectAttempts:   a.correct,
			ManualReviewCount: a.review,
		}
		if a.attempts > 0 {
			stats.DifficultyIndex = int(math.Round(float64(a.correct) / float64(a.attempts) * 100))
		}
		if a.timeCount > 0 {
			stats.AverageTimeSeconds = float64(a.timeSum) / float64(a.timeCount)
		}
		report.Questions = append(report.Questions, stats)
	}
	return report
}

func newBuckets(boundaries []int) []ScoreBucket {
	if len(boundaries) == 0 {
		return []ScoreBucket{{Label: "all", Min: 0, Max: 100}}
	}
	buckets := make([]ScoreBucket, 0, len(boundaries)+1)
	top := 100
	for i, b := range boundaries {
		label := bucketLabel(b, top, i == 0)
		buckets = append(buckets, ScoreBucket{Label: label, Min: b, Max: top})
		top = b - 1
	}
	buckets = append(buckets, ScoreBucket{Label: "<" + strconv.Itoa(boundaries[len(boundaries)-1]), Min: 0, Max: top})
	return buckets
}

func bucketLabel(min, max int, first bool) string {
	if first {
		return ">=" + strconv.Itoa(min)
	}
	return strconv.Itoa(min) + "-" + strconv.Itoa(max)
}

func countInBuckets(buckets []ScoreBucket, score int) {
	for i := range buckets {
		if score >= buckets[i].Min && score <= buckets[i].Max {
			buckets[i].Count++
			return
		}
	}
}
