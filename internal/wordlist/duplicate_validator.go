package wordlist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daggerwin/automod/internal/automod"
)

// DuplicateValidator handles exact duplicate and pattern redundancy validation.
type DuplicateValidator struct{}

// NewDuplicateValidator creates a new DuplicateValidator instance.
func NewDuplicateValidator() *DuplicateValidator {
	return &DuplicateValidator{}
}

// Validate performs duplicate and redundancy validation.
func (v *DuplicateValidator) Validate(lists *Lists) []Issue {
	var issues []Issue

	issues = append(issues, v.checkExactDuplicates("word", lists.Words)...)
	issues = append(issues, v.checkExactDuplicates("url", lists.URLs)...)
	issues = append(issues, v.checkPatternRedundancy(lists.Words)...)

	return issues
}

// checkExactDuplicates finds entries that repeat after normalization.
func (v *DuplicateValidator) checkExactDuplicates(kind string, entries []string) []Issue {
	var issues []Issue

	seen := make(map[string]int)

	for i, entry := range entries {
		key := strings.ToLower(strings.TrimSpace(entry))
		if key == "" {
			continue
		}

		if prevIndex, exists := seen[key]; exists {
			issues = append(issues, Issue{
				Type:        "exact_duplicate",
				Description: fmt.Sprintf("%s '%s' appears multiple times (positions %d and %d)", kind, entry, prevIndex, i),
				Term:        entry,
				Location:    i,
			})
		} else {
			seen[key] = i
		}
	}

	return issues
}

// checkPatternRedundancy finds words already matched by a shorter word's pattern.
func (v *DuplicateValidator) checkPatternRedundancy(words []string) []Issue {
	var issues []Issue

	type indexedWord struct {
		word  string
		index int
	}

	entries := make([]indexedWord, 0, len(words))
	for i, word := range words {
		if word = strings.TrimSpace(word); word != "" {
			entries = append(entries, indexedWord{word, i})
		}
	}

	// Shorter words can only cover longer ones
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].word) < len(entries[j].word)
	})

	for i, long := range entries {
		for _, short := range entries[:i] {
			if strings.EqualFold(short.word, long.word) {
				continue
			}

			pattern, err := automod.WordPattern(short.word)
			if err != nil || !pattern.MatchString(long.word) {
				continue
			}

			issues = append(issues, Issue{
				Type:        "pattern_redundancy",
				Description: fmt.Sprintf("Word '%s' is redundant because '%s' already matches it", long.word, short.word),
				Term:        long.word,
				Location:    long.index,
			})

			break
		}
	}

	return issues
}
