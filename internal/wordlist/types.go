// Package wordlist lints the prohibited word and hostname lists.
package wordlist

// Issue represents a problem found in the prohibited lists.
type Issue struct {
	Type        string
	Description string
	Term        string
	Location    int
}

// Lists are the raw prohibited entries as stored.
type Lists struct {
	Words []string
	URLs  []string
}

// Validator defines the interface for all list validators.
type Validator interface {
	Validate(lists *Lists) []Issue
}
