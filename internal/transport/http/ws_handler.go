package http

import (
	"encoding/json"
	"log"
	"net/http"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	engine   *app.Engine
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine) *WSHandler {
	return &WSHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type navigatePayload struct {
	Delta int `json:"delta"`
}

type answerPayload struct {
	QuestionID string   `json:"questionId"`
	Kind       string   `json:"kind"`
	OptionID   string   `json:"optionId,omitempty"`
	OptionIDs  []string `json:"optionIds,omitempty"`
	Text       string   `json:"text,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// optionView strips correctness and explanations before a question leaves the server.
type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type questionView struct {
	Index    int                 `json:"index"`
	ID       string              `json:"id"`
	Type     domain.QuestionType `json:"type"`
	Text     string              `json:"text"`
	ImageRef string              `json:"imageRef,omitempty"`
	Points   int                 `json:"points"`
	Category string              `json:"category,omitempty"`
	Options  []optionView        `json:"options,omitempty"`
}

type startedPayload struct {
	SessionID        string       `json:"sessionId"`
	QuizID           string       `json:"quizId"`
	Title            string       `json:"title"`
	AttemptNumber    int          `json:"attemptNumber"`
	QuestionCount    int          `json:"questionCount"`
	RemainingSeconds int          `json:"remainingSeconds"`
	Question         questionView `json:"question"`
}

type resultPayload struct {
	Status       domain.SessionStatus    `json:"status"`
	ScorePercent int                     `json:"scorePercent"`
	Passed       bool                    `json:"passed"`
	EarnedPoints int                     `json:"earnedPoints"`
	TotalPoints  int                     `json:"totalPoints"`
	TimeSpent    int                     `json:"timeSpentSeconds"`
	ManualReview []string                `json:"manualReview,omitempty"`
	Questions    []domain.QuestionResult `json:"questions,omitempty"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

// ServeWS upgrades the request and drives one quiz attempt over the socket:
// the session starts on connect, the client navigates and answers, and the
// server pushes ticks and the final result (on submit or expiry).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.engine.StartSession(r.Context(), quizID, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer func() {
		if session.Status().Terminal() {
			h.engine.Release(session.ID())
		}
	}()

	events, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				msg, deliver := h.eventMessage(session, ev)
				if !deliver {
					continue
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	first, err := session.CurrentQuestion()
	if err != nil {
		send <- errMsg(err)
	} else {
		send <- outboundMessage[any]{Type: "started", Payload: startedPayload{
			SessionID:        session.ID(),
			QuizID:           session.QuizID(),
			Title:            session.Definition().Config().Title,
			AttemptNumber:    session.AttemptNumber(),
			QuestionCount:    session.Definition().QuestionCount(),
			RemainingSeconds: session.RemainingSeconds(),
			Question:         viewOf(first, session.CurrentIndex()),
		}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "navigate":
			var payload navigatePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg(err)
				continue
			}
			idx, err := session.Navigate(payload.Delta)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			q, err := session.PresentedQuestion(idx)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: viewOf(q, idx)}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg(err)
				continue
			}
			resp, err := toResponse(payload)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			if err := session.RecordResponse(payload.QuestionID, resp); err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerAck", Payload: map[string]string{"questionId": payload.QuestionID}}
		case "submit":
			if _, err := session.Submit(); err != nil {
				send <- errMsg(err)
			}
			// The result itself arrives through the event subscription, the
			// same path an expiry takes.
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) eventMessage(session *app.Session, ev app.SessionEvent) (outboundMessage[any], bool) {
	switch ev.Type {
	case "tick":
		return outboundMessage[any]{Type: "tick", Payload: tickPayload{RemainingSeconds: ev.RemainingSeconds}}, true
	case string(domain.StatusSubmitted), string(domain.StatusExpired):
		if ev.Result == nil {
			return outboundMessage[any]{}, false
		}
		cfg := session.Definition().Config()
		payload := resultPayload{
			Status:       session.Status(),
			ScorePercent: ev.Result.ScorePercent,
			Passed:       ev.Result.Passed,
			EarnedPoints: ev.Result.EarnedPoints,
			TotalPoints:  ev.Result.TotalPoints,
			TimeSpent:    ev.Result.TimeSpentSeconds,
			ManualReview: ev.Result.ManualReview,
		}
		if cfg.ShowResultsImmediately && cfg.ShowCorrectAnswers {
			payload.Questions = ev.Result.Questions
		}
		return outboundMessage[any]{Type: "result", Payload: payload}, true
	}
	return outboundMessage[any]{}, false
}

func toResponse(p answerPayload) (domain.Response, error) {
	switch domain.ResponseKind(p.Kind) {
	case domain.ResponseOption:
		return domain.SelectOption(p.OptionID), nil
	case domain.ResponseOptions:
		return domain.SelectOptions(p.OptionIDs...), nil
	case domain.ResponseText:
		return domain.TextAnswer(p.Text), nil
	}
	return domain.Response{}, domain.ErrInvalidResponseShape
}

func viewOf(q domain.Question, index int) questionView {
	view := questionView{
		Index:    index,
		ID:       q.ID,
		Type:     q.Type,
		Text:     q.Text,
		ImageRef: q.ImageRef,
		Points:   q.Points,
		Category: q.Category,
	}
	for _, opt := range q.Options {
		view.Options = append(view.Options, optionView{ID: opt.ID, Text: opt.Text})
	}
	return view
}

func errMsg(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
