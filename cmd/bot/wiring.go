package main

import (
	"context"
	"fmt"
	"time"

	"github.com/daggerwin/automod/internal/automod"
	"github.com/daggerwin/automod/internal/jobs"
	"github.com/daggerwin/automod/internal/redis"
	"github.com/daggerwin/automod/internal/scheduler"
	"github.com/daggerwin/automod/internal/setup"
	"github.com/daggerwin/automod/internal/setup/client"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// statusTTL is how long a job status record outlives its last update.
const statusTTL = 24 * time.Hour

// JobNames lists the scheduled jobs in registration order.
var JobNames = []string{"blocklist", "wordlist", "seasonal", "presence"}

// components holds the automod pieces shared by every command.
type components struct {
	metrics   *automod.Metrics
	policies  *automod.PolicySet
	tracker   *automod.Tracker
	blocklist *automod.Blocklist
	lists     *automod.ListHolder
	evaluator *automod.Evaluator
}

// buildComponents creates everything the evaluator needs and loads the prohibited lists.
func buildComponents(ctx context.Context, app *setup.App) (*components, error) {
	cfg := app.Config.Bot

	cache, err := app.RedisManager.GetCache(redis.AutomodDBIndex)
	if err != nil {
		return nil, err
	}

	policies, err := automod.NewPolicySet(cfg.Automod.Policies)
	if err != nil {
		return nil, fmt.Errorf("invalid automod policies: %w", err)
	}

	metrics := automod.NewMetrics(app.Registry)

	tracker := automod.NewTracker(cache, automod.TrackerConfig{
		ResetInterval: time.Duration(cfg.Automod.ResetInterval) * time.Second,
		SpamWindow:    time.Duration(cfg.Automod.SpamWindow) * time.Second,
		SpamThreshold: cfg.Automod.SpamThreshold,
	}, app.Logger)

	blocklist := automod.NewBlocklist(cache, client.NewBlocklistHTTPClient(&cfg.Blocklist, app.Logger), automod.BlocklistConfig{
		Sources:         cfg.Blocklist.Sources,
		RefreshInterval: time.Duration(cfg.Blocklist.RefreshInterval) * time.Second,
		UserAgent:       cfg.Blocklist.UserAgent,
		Token:           cfg.Blocklist.Token,
	}, app.Logger, automod.WithBlocklistMetrics(metrics))

	lists := automod.NewListHolder()
	if _, err := lists.Reload(ctx, app.DB.Moderation(), app.Logger); err != nil {
		return nil, err
	}

	staffRoles := make([]snowflake.ID, 0, len(app.Config.Bot.Discord.StaffRoles))
	for _, role := range app.Config.Bot.Discord.StaffRoles {
		staffRoles = append(staffRoles, snowflake.ID(role))
	}

	return &components{
		metrics:   metrics,
		policies:  policies,
		tracker:   tracker,
		blocklist: blocklist,
		lists:     lists,
		evaluator: automod.NewEvaluator(policies, tracker, blocklist, lists, staffRoles, app.Logger),
	}, nil
}

// newScheduler creates a scheduler reporting job status to the status database.
func newScheduler(app *setup.App) (*scheduler.Scheduler, *scheduler.StatusReporter, error) {
	statusCache, err := app.RedisManager.GetCache(redis.StatusDBIndex)
	if err != nil {
		return nil, nil, err
	}

	status := scheduler.NewStatusReporter(statusCache, app.LogManager.GetInstanceID(), statusTTL, app.Logger)

	s := scheduler.New(scheduler.NewRegistry(), app.Logger,
		scheduler.WithStatusReporter(status),
		scheduler.WithMetrics(scheduler.NewMetrics(app.Registry)),
	)

	return s, status, nil
}

// scheduleJobs registers the periodic jobs. Each job logs to its own file.
func scheduleJobs(
	ctx context.Context, app *setup.App, s *scheduler.Scheduler, c *components,
	palette *jobs.Palette, presence jobs.PresenceSetter,
) {
	cfg := app.Config.Bot.Jobs
	clock := scheduler.RealClock{}
	seconds := func(n int) time.Duration { return time.Duration(n) * time.Second }

	scheduled := []scheduler.Job{
		jobs.NewBlocklistJob(c.blocklist, seconds(cfg.BlocklistInterval), clock, app.LogManager.GetJobLogger("blocklist")),
		jobs.NewWordlistJob(c.lists, app.DB.Moderation(), seconds(cfg.WordlistReloadInterval), clock,
			app.LogManager.GetJobLogger("wordlist")),
		jobs.NewSeasonalJob(palette, seconds(cfg.SeasonalInterval), clock, app.LogManager.GetJobLogger("seasonal")),
		jobs.NewPresenceJob(presence, cfg.PresenceFile, seconds(cfg.PresenceInterval), clock,
			app.LogManager.GetJobLogger("presence")),
	}

	for _, job := range scheduled {
		if !s.Schedule(ctx, job) {
			app.Logger.Warn("Job already scheduled", zap.String("job", job.Name()))
		}
	}
}
