package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/daggerwin/automod/internal/automod"
	"github.com/daggerwin/automod/internal/bot"
	"github.com/daggerwin/automod/internal/discord"
	"github.com/daggerwin/automod/internal/jobs"
	"github.com/daggerwin/automod/internal/msgcache"
	"github.com/daggerwin/automod/internal/redis"
	"github.com/daggerwin/automod/internal/setup"
	"github.com/daggerwin/automod/internal/wordlist"
	"github.com/disgoorg/snowflake/v2"
	"github.com/urfave/cli/v3"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 30 * time.Second
)

// ErrNoContent is returned by check when no text was given.
var ErrNoContent = errors.New("no content to check")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:   "automod",
		Usage:  "Run the guild automoderator",
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Start the bot, automod and scheduled jobs",
				Action: runBot,
			},
			{
				Name:   "refresh-blocklist",
				Usage:  "Fetch every blocklist source now and store the result",
				Action: refreshBlocklist,
			},
			{
				Name:      "check",
				Usage:     "Evaluate text against the configured policies without enforcing anything",
				ArgsUsage: "<text>",
				Action:    checkText,
			},
			{
				Name:   "lint-lists",
				Usage:  "Report problems in the stored prohibited words and hostnames",
				Action: lintLists,
			},
			{
				Name:   "status",
				Usage:  "Show the last reported status of every scheduled job",
				Action: showStatus,
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func runBot(ctx context.Context, _ *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx, BotLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup(app)

	c, err := buildComponents(ctx, app)
	if err != nil {
		return err
	}

	messageCache, err := app.RedisManager.GetCache(redis.MessageDBIndex)
	if err != nil {
		return err
	}

	discordCfg := &app.Config.Bot.Discord

	discordBot, err := bot.New(discordCfg.Token, snowflake.ID(discordCfg.GuildID), msgcache.New(messageCache, app.Logger), app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	palette := jobs.NewPalette()
	gateway := discord.NewGateway(discordBot.Rest(), discordCfg, palette, app.Logger)

	enforcer := automod.NewEnforcer(
		app.DB.Moderation(), gateway, c.tracker,
		time.Duration(app.Config.Bot.Automod.ReplyDeleteDelay)*time.Second, app.Logger,
		automod.WithEnforcerMetrics(c.metrics),
		automod.WithModerator(discordBot.Moderator),
	)

	engine := automod.NewEngine(c.evaluator, enforcer, app.Logger)
	defer engine.Close()

	jobScheduler, _, err := newScheduler(app)
	if err != nil {
		return err
	}

	if err := discordBot.Start(ctx, engine, gateway); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	scheduleJobs(ctx, app, jobScheduler, c, palette, discordBot)

	app.Logger.Info("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	discordBot.Close(shutdownCtx)
	jobScheduler.Wait()

	return nil
}

func refreshBlocklist(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(ctx, BotLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup(app)

	c, err := buildComponents(ctx, app)
	if err != nil {
		return err
	}

	result, err := c.blocklist.Refresh(ctx, true)
	if err != nil {
		return err
	}

	fmt.Printf("Stored %d domains (%d of %d sources failed)\n",
		result.Domains, result.FailedSources, len(app.Config.Bot.Blocklist.Sources))

	return nil
}

func checkText(ctx context.Context, cmd *cli.Command) error {
	content := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(content) == "" {
		return ErrNoContent
	}

	app, err := setup.InitializeApp(ctx, BotLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup(app)

	c, err := buildComponents(ctx, app)
	if err != nil {
		return err
	}

	policy, matched := c.evaluator.Check(ctx, content)
	if !matched {
		fmt.Println("No policy matched")
		return nil
	}

	fmt.Printf("Matched %s: %s (action %s after %d warnings)\n",
		policy.Type, policy.Reason, policy.Action, policy.WarnThreshold)

	return nil
}

func lintLists(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(ctx, BotLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup(app)

	words, err := app.DB.Moderation().GetProhibitedWords(ctx)
	if err != nil {
		return err
	}

	urls, err := app.DB.Moderation().GetProhibitedURLs(ctx)
	if err != nil {
		return err
	}

	issues := wordlist.ValidateLists(&wordlist.Lists{Words: words, URLs: urls})
	for _, issue := range issues {
		fmt.Printf("[%s] %s\n", issue.Type, issue.Description)
	}

	fmt.Printf("%d words, %d hostnames, %d issues\n", len(words), len(urls), len(issues))

	return nil
}

func showStatus(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(ctx, BotLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup(app)

	_, status, err := newScheduler(app)
	if err != nil {
		return err
	}

	for _, name := range JobNames {
		record, found, err := status.Get(ctx, name)
		if err != nil {
			return err
		}

		if !found {
			fmt.Printf("%-10s no status reported\n", name)
			continue
		}

		line := fmt.Sprintf("%-10s %-9s failures=%d instance=%s updated=%s",
			name, record.State, record.ConsecutiveFailures, record.Instance,
			time.Unix(record.UpdatedAt, 0).Format(time.RFC3339))
		if record.LastError != "" {
			line += " error=" + record.LastError
		}

		fmt.Println(line)
	}

	return nil
}

func cleanup(app *setup.App) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	app.Cleanup(ctx)
}
