package http

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
)

func TestReportHandlerServesAggregatedAnalytics(t *testing.T) {
	engine := newWSTestEngine(t)
	seedResult(t, engine)

	handler := NewReportHandler(engine)
	rec := httptest.NewRecorder()
	handler.ServeReport(rec, httptest.NewRequest("GET", "/report?quizId=quiz-1", nil))

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report app.AnalyticsReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.QuizID != "quiz-1" || report.CompletedCount != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.PassRate != 100 {
		t.Fatalf("expected pass rate 100, got %v", report.PassRate)
	}
}

func TestReportHandlerRejectsMissingAndUnknownQuiz(t *testing.T) {
	engine := newWSTestEngine(t)
	handler := NewReportHandler(engine)

	rec := httptest.NewRecorder()
	handler.ServeReport(rec, httptest.NewRequest("GET", "/report", nil))
	if rec.Code != 400 {
		t.Fatalf("expected 400 without quizId, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeReport(rec, httptest.NewRequest("GET", "/report?quizId=nope", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404 for unknown quiz, got %d", rec.Code)
	}
}

// seedResult runs one full attempt so the report has something to aggregate.
func seedResult(t *testing.T, engine *app.Engine) {
	t.Helper()
	session, err := engine.StartSession(httptest.NewRequest("GET", "/", nil).Context(), "quiz-1", "reporter")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := engine.RecordResponse(session.ID(), "q1", domain.SelectOption("o2")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := engine.Submit(session.ID()); err != nil {
		t.Fatalf("submit: %v", err)
	}
}
