package wordlist

import (
	"fmt"
	"strings"

	"github.com/daggerwin/automod/internal/automod"
)

// FieldValidator flags blank, padded and uncompilable entries.
type FieldValidator struct{}

// NewFieldValidator creates a new FieldValidator instance.
func NewFieldValidator() *FieldValidator {
	return &FieldValidator{}
}

// Validate checks every word and hostname entry.
func (v *FieldValidator) Validate(lists *Lists) []Issue {
	var issues []Issue

	for i, word := range lists.Words {
		issues = append(issues, v.checkEntry("word", word, i)...)

		if strings.TrimSpace(word) == "" {
			continue
		}

		if _, err := automod.WordPattern(strings.TrimSpace(word)); err != nil {
			issues = append(issues, Issue{
				Type:        "invalid_pattern",
				Description: fmt.Sprintf("Word '%s' cannot be compiled: %v", word, err),
				Term:        word,
				Location:    i,
			})
		}
	}

	for i, url := range lists.URLs {
		issues = append(issues, v.checkEntry("url", url, i)...)
	}

	return issues
}

func (v *FieldValidator) checkEntry(kind, entry string, location int) []Issue {
	switch {
	case strings.TrimSpace(entry) == "":
		return []Issue{{
			Type:        "empty_" + kind,
			Description: fmt.Sprintf("Entry at position %d has an empty %s", location, kind),
			Location:    location,
		}}
	case strings.TrimSpace(entry) != entry:
		return []Issue{{
			Type:        "padded_" + kind,
			Description: fmt.Sprintf("%s '%s' has leading or trailing whitespace", kind, entry),
			Term:        entry,
			Location:    location,
		}}
	default:
		return nil
	}
}
