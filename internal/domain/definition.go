package domain

import (
	"encoding/json"
	"fmt"
)

// QuestionType discriminates how a question is answered and scored.
type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	MultiChoice  QuestionType = "multi_choice"
	TrueFalse    QuestionType = "true_false"
	FillInBlank  QuestionType = "fill_in_blank"
	Scenario     QuestionType = "scenario"
)

// RequiresOptions reports whether the type is answered by picking options.
func (t QuestionType) RequiresOptions() bool {
	switch t {
	case SingleChoice, MultiChoice, TrueFalse:
		return true
	}
	return false
}

// FreeText reports whether the type is answered with free text.
func (t QuestionType) FreeText() bool {
	return t == FillInBlank || t == Scenario
}

func (t QuestionType) valid() bool {
	switch t {
	case SingleChoice, MultiChoice, TrueFalse, FillInBlank, Scenario:
		return true
	}
	return false
}

// Config is the quiz-level configuration. Immutable once the definition is built.
type Config struct {
	Title                  string `json:"title"`
	Description            string `json:"description,omitempty"`
	PassingScore           int    `json:"passingScore"`
	MaxAttempts            int    `json:"maxAttempts"`
	AllowRetries           bool   `json:"allowRetries"`
	ShuffleQuestions       bool   `json:"shuffleQuestions"`
	ShuffleAnswers         bool   `json:"shuffleAnswers"`
	ShowResultsImmediately bool   `json:"showResultsImmediately"`
	ShowCorrectAnswers     bool   `json:"showCorrectAnswers"`
	AllowReview            bool   `json:"allowReview"`
	TimeLimitMinutes       int    `json:"timeLimitMinutes,omitempty"` // 0 = unlimited
	IsRequired             bool   `json:"isRequired"`
}

// AnswerOption is one possible answer for an option-based question.
type AnswerOption struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// Question models a single quiz question.
type Question struct {
	ID                string         `json:"id"`
	Type              QuestionType   `json:"type"`
	Text              string         `json:"text"`
	ImageRef          string         `json:"imageRef,omitempty"`
	Points            int            `json:"points"`
	Explanation       string         `json:"explanation,omitempty"`
	CorrectFeedback   string         `json:"correctFeedback,omitempty"`
	IncorrectFeedback string         `json:"incorrectFeedback,omitempty"`
	Category          string         `json:"category,omitempty"`
	Options           []AnswerOption `json:"options,omitempty"`
}

// CorrectOptionIDs returns the ids of the options flagged correct, in option order.
func (q Question) CorrectOptionIDs() []string {
	var ids []string
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// Definition is the published, read-only description of a quiz.
// It can only be obtained through NewDefinition (or JSON unmarshaling, which
// routes through it), so every Definition in circulation is valid.
type Definition struct {
	id        string
	config    Config
	questions []Question
	byID      map[string]int
}

// NewDefinition validates and publishes a quiz definition.
func NewDefinition(id string, cfg Config, questions []Question) (*Definition, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing quiz id", ErrInvalidDefinition)
	}
	if cfg.PassingScore < 0 || cfg.PassingScore > 100 {
		return nil, fmt.Errorf("%w: passing score %d outside [0,100]", ErrInvalidDefinition, cfg.PassingScore)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("%w: max attempts must be >= 1, got %d", ErrInvalidDefinition, cfg.MaxAttempts)
	}
	if cfg.TimeLimitMinutes < 0 {
		return nil, fmt.Errorf("%w: negative time limit", ErrInvalidDefinition)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: quiz has no questions", ErrInvalidDefinition)
	}

	byID := make(map[string]int, len(questions))
	for i, q := range questions {
		if err := validateQuestion(q); err != nil {
			return nil, err
		}
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %q", ErrInvalidDefinition, q.ID)
		}
		byID[q.ID] = i
	}

	def := &Definition{
		id:        id,
		config:    cfg,
		questions: make([]Question, len(questions)),
		byID:      byID,
	}
	copy(def.questions, questions)
	return def, nil
}

func validateQuestion(q Question) error {
	if q.ID == "" {
		return fmt.Errorf("%w: question with empty id", ErrInvalidDefinition)
	}
	if !q.Type.valid() {
		return fmt.Errorf("%w: question %q has unknown type %q", ErrInvalidDefinition, q.ID, q.Type)
	}
	if q.Points <= 0 {
		return fmt.Errorf("%w: question %q has non-positive points", ErrInvalidDefinition, q.ID)
	}

	if q.Type.FreeText() {
		if len(q.Options) != 0 {
			return fmt.Errorf("%w: question %q of type %s must not carry options", ErrInvalidDefinition, q.ID, q.Type)
		}
		return nil
	}

	if len(q.Options) == 0 {
		return fmt.Errorf("%w: question %q of type %s has no options", ErrInvalidDefinition, q.ID, q.Type)
	}
	seen := make(map[string]struct{}, len(q.Options))
	correct := 0
	for _, opt := range q.Options {
		if opt.ID == "" {
			return fmt.Errorf("%w: question %q has an option with empty id", ErrInvalidDefinition, q.ID)
		}
		if _, dup := seen[opt.ID]; dup {
			return fmt.Errorf("%w: question %q has duplicate option id %q", ErrInvalidDefinition, q.ID, opt.ID)
		}
		seen[opt.ID] = struct{}{}
		if opt.Correct {
			correct++
		}
	}
	switch q.Type {
	case SingleChoice, TrueFalse:
		if correct != 1 {
			return fmt.Errorf("%w: question %q of type %s must have exactly one correct option, has %d", ErrInvalidDefinition, q.ID, q.Type, correct)
		}
	case MultiChoice:
		if correct == 0 {
			return fmt.Errorf("%w: question %q has no correct option", ErrInvalidDefinition, q.ID)
		}
	}
	return nil
}

// ID returns the quiz identifier.
func (d *Definition) ID() string { return d.id }

// Config returns the quiz configuration.
func (d *Definition) Config() Config { return d.config }

// QuestionCount returns the number of questions.
func (d *Definition) QuestionCount() int { return len(d.questions) }

// QuestionAt returns the question at position i in authored order.
func (d *Definition) QuestionAt(i int) Question { return d.questions[i] }

// Question looks a question up by id.
func (d *Definition) Question(id string) (Question, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Question{}, false
	}
	return d.questions[i], true
}

// Questions returns a copy of the question list in authored order.
func (d *Definition) Questions() []Question {
	out := make([]Question, len(d.questions))
	copy(out, d.questions)
	return out
}

// TotalPoints sums the points of every question.
func (d *Definition) TotalPoints() int {
	total := 0
	for _, q := range d.questions {
		total += q.Points
	}
	return total
}

type definitionDoc struct {
	ID        string     `json:"id"`
	Config    Config     `json:"config"`
	Questions []Question `json:"questions"`
}

// MarshalJSON serializes the definition for storage (Postgres JSONB, Redis).
func (d *Definition) MarshalJSON() ([]byte, error) {
	return json.Marshal(definitionDoc{ID: d.id, Config: d.config, Questions: d.questions})
}

// UnmarshalJSON deserializes and re-validates, so stored definitions cannot
// bypass publish-time checks.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var doc definitionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	def, err := NewDefinition(doc.ID, doc.Config, doc.Questions)
	if err != nil {
		return err
	}
	*d = *def
	return nil
}
