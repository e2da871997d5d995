package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
)

// ReportHandler serves aggregated analytics for a quiz as JSON.
type ReportHandler struct {
	engine *app.Engine
}

func NewReportHandler(engine *app.Engine) *ReportHandler {
	return &ReportHandler{engine: engine}
}

func (h *ReportHandler) ServeReport(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	report, err := h.engine.Aggregate(r.Context(), quizID)
	if err != nil {
		if errors.Is(err, domain.ErrDefinitionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}
