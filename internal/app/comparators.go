package app

import (
	"strings"

	"assessment-engine/internal/domain"
)

// ExactMatch accepts the answer when it equals any of the expected strings.
func ExactMatch(expected ...string) Comparator {
	return func(_ domain.Question, answer string) bool {
		for _, e := range expected {
			if answer == e {
				return true
			}
		}
		return false
	}
}

// NormalizedMatch accepts the answer when it equals any expected string after
// lowercasing, trimming, and collapsing internal whitespace.
func NormalizedMatch(expected ...string) Comparator {
	normExpected := make([]string, len(expected))
	for i, e := range expected {
		normExpected[i] = normalizeAnswer(e)
	}
	return func(_ domain.Question, answer string) bool {
		got := normalizeAnswer(answer)
		for _, e := range normExpected {
			if got == e {
				return true
			}
		}
		return false
	}
}

func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
