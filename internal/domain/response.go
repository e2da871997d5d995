package domain

import "sort"

// ResponseKind tags the shape of a captured answer value.
type ResponseKind string

const (
	ResponseOption  ResponseKind = "option"  // single option id
	ResponseOptions ResponseKind = "options" // set of option ids
	ResponseText    ResponseKind = "text"    // free text
)

// Response is a tagged union: exactly one payload field is meaningful,
// selected by Kind. Keeping it a union (rather than an untyped blob) lets the
// session reject a mismatched shape at capture time instead of at scoring time.
type Response struct {
	Kind             ResponseKind `json:"kind"`
	OptionID         string       `json:"optionId,omitempty"`
	OptionIDs        []string     `json:"optionIds,omitempty"`
	Text             string       `json:"text,omitempty"`
	TimeSpentSeconds int          `json:"timeSpentSeconds,omitempty"` // optional, set by instrumenting transports
}

// SelectOption builds a single-choice / true-false response.
func SelectOption(optionID string) Response {
	return Response{Kind: ResponseOption, OptionID: optionID}
}

// SelectOptions builds a multi-choice response. The ids are deduplicated and
// sorted so equal selections compare equal regardless of click order.
func SelectOptions(optionIDs ...string) Response {
	seen := make(map[string]struct{}, len(optionIDs))
	ids := make([]string, 0, len(optionIDs))
	for _, id := range optionIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return Response{Kind: ResponseOptions, OptionIDs: ids}
}

// TextAnswer builds a fill-in-blank / scenario response.
func TextAnswer(text string) Response {
	return Response{Kind: ResponseText, Text: text}
}

// MatchesType reports whether the response shape fits the question type.
func (r Response) MatchesType(t QuestionType) bool {
	switch t {
	case SingleChoice, TrueFalse:
		return r.Kind == ResponseOption
	case MultiChoice:
		return r.Kind == ResponseOptions
	case FillInBlank, Scenario:
		return r.Kind == ResponseText
	}
	return false
}

// OptionSet returns the selected option ids as a set.
func (r Response) OptionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.OptionIDs))
	for _, id := range r.OptionIDs {
		set[id] = struct{}{}
	}
	return set
}
