package types

import (
	"time"

	"github.com/uptrace/bun"
)

// ProhibitedWord is a word whose use (including common suffixes) violates the word filter.
type ProhibitedWord struct {
	bun.BaseModel `bun:"table:prohibited_words,alias:pw"`

	Word      string    `bun:",pk"`
	CreatedAt time.Time `bun:",notnull"`
}

// ProhibitedURL is a hostname that may not be linked, including its subdomains.
type ProhibitedURL struct {
	bun.BaseModel `bun:"table:prohibited_urls,alias:pu"`

	URL       string    `bun:",pk"`
	CreatedAt time.Time `bun:",notnull"`
}
