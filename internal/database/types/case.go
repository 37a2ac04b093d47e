package types

import (
	"time"

	"github.com/daggerwin/automod/internal/database/types/enum"
	"github.com/uptrace/bun"
)

// Case is the durable record of one completed moderation action.
type Case struct {
	bun.BaseModel `bun:"table:cases,alias:c"`

	CaseID        int64           `bun:",pk"`                // Sequential case number
	Action        enum.ActionKind `bun:",notnull"`           // Action that was applied
	TargetID      uint64          `bun:",notnull"`           // Discord ID of the sanctioned user
	TargetName    string          `bun:",notnull"`           // Username at the time of the action
	ModeratorID   uint64          `bun:",notnull"`           // Discord ID of the moderator (the bot for automod)
	ModeratorName string          `bun:",notnull"`           // Moderator username
	Timestamp     time.Time       `bun:",notnull"`           // When the action was taken
	EndTime       *time.Time      `bun:",nullzero"`          // When a timed action ends
	Duration      *int64          `bun:",nullzero"`          // Timed action length in seconds
	Reason        string          `bun:",notnull,type:text"` // Reason shown to the user
}

// IsTimed reports whether the case carries an end time.
func (c *Case) IsTimed() bool {
	return c.EndTime != nil
}
