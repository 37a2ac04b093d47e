package jobs

import (
	"context"
	"time"

	"github.com/daggerwin/automod/internal/automod"
	"github.com/daggerwin/automod/internal/scheduler"
	"go.uber.org/zap"
)

// NewBlocklistJob keeps the malicious domain list fresh between message-driven checks.
func NewBlocklistJob(
	blocklist *automod.Blocklist, interval time.Duration, clock scheduler.Clock, logger *zap.Logger,
) scheduler.Job {
	logger = logger.Named("blocklist_job")

	return scheduler.EveryWithClock("blocklist", interval, clock, func(ctx context.Context) error {
		result, err := blocklist.Refresh(ctx, false)
		if err != nil {
			return err
		}

		if result.Refreshed {
			logger.Debug("Blocklist refreshed",
				zap.Int("domains", result.Domains),
				zap.Int("failedSources", result.FailedSources))
		}

		return nil
	})
}

// NewWordlistJob reloads the prohibited word and url lists from the store.
func NewWordlistJob(
	holder *automod.ListHolder, store automod.Store, interval time.Duration, clock scheduler.Clock, logger *zap.Logger,
) scheduler.Job {
	logger = logger.Named("wordlist_job")

	return scheduler.EveryWithClock("wordlist", interval, clock, func(ctx context.Context) error {
		lists, err := holder.Reload(ctx, store, logger)
		if err != nil {
			return err
		}

		words, urls := lists.Len()
		logger.Debug("Reloaded prohibited lists", zap.Int("words", words), zap.Int("urls", urls))

		return nil
	})
}
