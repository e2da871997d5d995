package domain

import "errors"

var (
	// ErrInvalidDefinition is returned when a quiz definition fails publish-time validation.
	ErrInvalidDefinition = errors.New("invalid quiz definition")
	// ErrInvalidResponseShape is returned when a response value does not match the question's type.
	ErrInvalidResponseShape = errors.New("response shape does not match question type")
	// ErrUnknownQuestion indicates a question id that is not part of the quiz.
	ErrUnknownQuestion = errors.New("question not found in quiz")
	// ErrInvalidTransition indicates an action illegal in the session's current state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrDefinitionNotFound indicates the quiz definition could not be loaded.
	ErrDefinitionNotFound = errors.New("quiz definition not found")
	// ErrAttemptLimit indicates the test-taker has used up their attempts.
	ErrAttemptLimit = errors.New("attempt limit reached")
	// ErrSessionNotFound is returned when acting on a session id that is not live.
	ErrSessionNotFound = errors.New("session not found")
)
