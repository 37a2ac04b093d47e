package jobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/daggerwin/automod/internal/scheduler"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// Activity is one streaming status shown by the bot.
type Activity struct {
	Name string `koanf:"name"`
	URL  string `koanf:"url"`
}

// PresenceSetter updates the bot's presence.
type PresenceSetter interface {
	SetStreaming(ctx context.Context, name, url string) error
}

// LoadActivities reads the activity list from a TOML file.
func LoadActivities(path string) ([]Activity, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load presence file: %w", err)
	}

	var presence struct {
		Activities []Activity `koanf:"activities"`
	}

	if err := k.Unmarshal("", &presence); err != nil {
		return nil, fmt.Errorf("failed to decode presence file: %w", err)
	}

	return presence.Activities, nil
}

// NewPresenceJob rotates through the activities in path, re-reading the file every tick.
func NewPresenceJob(
	setter PresenceSetter, path string, interval time.Duration, clock scheduler.Clock, logger *zap.Logger,
) scheduler.Job {
	logger = logger.Named("presence")
	next := 0

	return scheduler.EveryWithClock("presence", interval, clock, func(ctx context.Context) error {
		activities, err := LoadActivities(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("No presence file", zap.String("path", path))
				return nil
			}

			return err
		}

		if len(activities) == 0 {
			return nil
		}

		activity := activities[next%len(activities)]
		next++

		if err := setter.SetStreaming(ctx, activity.Name, activity.URL); err != nil {
			return fmt.Errorf("failed to set presence: %w", err)
		}

		logger.Debug("Updated presence", zap.String("activity", activity.Name))

		return nil
	})
}
