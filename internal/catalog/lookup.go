package catalog

import (
	"fmt"

	"github.com/mrsinham/quantreport/internal/util"
)

// maxSuggestionDistance bounds how far a near-miss may be from a known
// label before the error stops suggesting it.
const maxSuggestionDistance = 5

// LookupError reports a (concept, choice) pair that is not in the catalog.
// This is a data integrity fault: the catalog and the UI that offered the
// choice are expected to stay in sync.
type LookupError struct {
	Concept    string
	Choice     string
	Suggestion string
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("characteristic %q with choice %q not found in catalog", e.Concept, e.Choice)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(", did you mean %q?", e.Suggestion)
	}
	return msg
}

// Resolve looks up a concept display name and a choice display label.
//
// The label NoSelection ("N/A") means the user left this characteristic
// unset; Resolve reports it as absent (false) with no error. Any other
// label must match a choice of the named concept, otherwise a *LookupError
// naming both inputs is returned. The first characteristic whose concept
// meaning matches wins; load-time validation guarantees there is at most
// one.
func (c *Catalog) Resolve(conceptName, choiceLabel string) (Selection, bool, error) {
	if choiceLabel == NoSelection {
		return Selection{}, false, nil
	}

	for _, char := range c.characteristics {
		if char.Concept.Meaning != conceptName {
			continue
		}
		for _, choice := range char.Choices {
			if choice.Meaning == choiceLabel {
				return Selection{Concept: char.Concept, Choice: choice}, true, nil
			}
		}
		// Concept known, label unknown: suggest the closest of its choices.
		return Selection{}, false, &LookupError{
			Concept:    conceptName,
			Choice:     choiceLabel,
			Suggestion: util.ClosestMatch(choiceLabel, choiceMeanings(char.Choices), maxSuggestionDistance),
		}
	}

	return Selection{}, false, &LookupError{
		Concept:    conceptName,
		Choice:     choiceLabel,
		Suggestion: util.ClosestMatch(conceptName, c.Concepts(), maxSuggestionDistance),
	}
}

func choiceMeanings(choices []Code) []string {
	meanings := make([]string, len(choices))
	for i, choice := range choices {
		meanings[i] = choice.Meaning
	}
	return meanings
}
