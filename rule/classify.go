package rule

import "strings"

// Class is the role an example plays within a rule.
type Class string

// Example classes. An example may match both Good and Bad token sets
// when its label mixes vocabularies; Neutral means it matched neither.
const (
	ClassGood    Class = "good"
	ClassBad     Class = "bad"
	ClassNeutral Class = "neutral"
	ClassAny     Class = "any"
)

// Token sets for label classification. Matching is case-insensitive
// substring so authors are not held to a rigid vocabulary.
var (
	badTokens  = []string{"incorrect", "wrong", "bad", "problem", "avoid"}
	goodTokens = []string{"correct", "good", "usage", "implementation", "example", "solution", "better", "optimized"}
)

// IsBad reports whether a label classifies as a "bad" example.
func IsBad(label string) bool {
	return matchesAny(label, badTokens)
}

// IsGood reports whether a label classifies as a "good" example.
// Note "incorrect" contains "correct", so bad labels are excluded first.
func IsGood(label string) bool {
	low := strings.ToLower(label)
	for _, tok := range goodTokens {
		if tok == "correct" && strings.Contains(low, "incorrect") {
			// "incorrect" must not satisfy the "correct" token
			continue
		}
		if strings.Contains(low, tok) {
			return true
		}
	}
	return false
}

// Classify maps a label to its primary class. Bad wins over good when a
// label matches both token sets, so mixed labels like "wrong solution"
// stay on the cautionary side. Consumers needing both bits use IsBad and
// IsGood directly.
func Classify(label string) Class {
	switch {
	case IsBad(label):
		return ClassBad
	case IsGood(label):
		return ClassGood
	default:
		return ClassNeutral
	}
}

// MatchesClass reports whether a label satisfies the requested class.
// ClassAny accepts every label.
func MatchesClass(label string, c Class) bool {
	switch c {
	case ClassAny:
		return true
	case ClassGood:
		return IsGood(label)
	case ClassBad:
		return IsBad(label)
	case ClassNeutral:
		return !IsGood(label) && !IsBad(label)
	default:
		return false
	}
}

func matchesAny(label string, tokens []string) bool {
	low := strings.ToLower(label)
	for _, tok := range tokens {
		if strings.Contains(low, tok) {
			return true
		}
	}
	return false
}
