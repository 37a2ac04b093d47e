package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v1.0.0"

// Current version of the config files.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Bot    BotConfig
}

// CommonConfig contains infrastructure configuration.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Telemetry  Telemetry  `koanf:"telemetry"`
}

// BotConfig contains the moderation bot configuration.
type BotConfig struct {
	// Version of the bot config.
	Version   int       `koanf:"version"`
	Discord   Discord   `koanf:"discord"`
	Automod   Automod   `koanf:"automod"`
	Blocklist Blocklist `koanf:"blocklist"`
	Jobs      Jobs      `koanf:"jobs"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Address of the Prometheus metrics listener (empty disables it).
	MetricsAddr string `koanf:"metrics_addr"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Telemetry contains tracing configuration.
type Telemetry struct {
	// Forward error logs as OpenTelemetry spans.
	OtelErrors bool `koanf:"otel_errors"`
	// Uptrace DSN. Tracing export is disabled when empty.
	UptraceDSN string `koanf:"uptrace_dsn"`
	// Service name reported to the tracing backend.
	ServiceName string `koanf:"service_name"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
	// Guild the bot moderates.
	GuildID uint64 `koanf:"guild_id"`
	// Roles that bypass automod checks.
	StaffRoles []uint64 `koanf:"staff_roles"`
	// Channel receiving mute, warn and softban case logs.
	ModLogChannel uint64 `koanf:"mod_log_channel"`
	// Channel receiving ban and kick case logs.
	BanLogChannel uint64 `koanf:"ban_log_channel"`
}

// Automod contains policy engine configuration.
type Automod struct {
	// Seconds without a new violation before a warning counter resets.
	ResetInterval int `koanf:"reset_interval"`
	// Sliding window in seconds used by the spam detector.
	SpamWindow int `koanf:"spam_window"`
	// Messages inside the spam window that count as spam.
	SpamThreshold int `koanf:"spam_threshold"`
	// Seconds before the warning reply is removed.
	ReplyDeleteDelay int `koanf:"reply_delete_delay"`
	// Per-policy overrides keyed by policy name (anti_spam, invite_links, ...).
	Policies map[string]PolicyOverride `koanf:"policies"`
}

// PolicyOverride replaces fields of a default policy. Zero values keep the default.
type PolicyOverride struct {
	Enabled       *bool  `koanf:"enabled"`
	Action        string `koanf:"action"`
	Reason        string `koanf:"reason"`
	WarnThreshold int    `koanf:"warn_threshold"`
	MuteDuration  int64  `koanf:"mute_duration"`
}

// Blocklist contains malicious domain list configuration.
type Blocklist struct {
	// Plain-text sources, one hostname per line.
	Sources []string `koanf:"sources"`
	// Seconds between refreshes.
	RefreshInterval int `koanf:"refresh_interval"`
	// Per-request timeout in seconds.
	RequestTimeout int `koanf:"request_timeout"`
	// User agent sent to sources.
	UserAgent string `koanf:"user_agent"`
	// Retries per source before it is skipped.
	MaxRetries int `koanf:"max_retries"`
	// Optional token sent as "Authorization: Token <token>".
	Token string `koanf:"token"`
}

// Jobs contains background job intervals in seconds.
type Jobs struct {
	BlocklistInterval      int    `koanf:"blocklist_interval"`
	WordlistReloadInterval int    `koanf:"wordlist_reload_interval"`
	SeasonalInterval       int    `koanf:"seasonal_interval"`
	PresenceInterval       int    `koanf:"presence_interval"`
	PresenceFile           string `koanf:"presence_file"`
}

// LoadConfig loads the configuration from the config search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".automod",
		homeDir + "/.automod/config",
		"/etc/automod/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, configName := range []string{"common", "bot"} {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	cfg, err := Unmarshal(k)
	if err != nil {
		return nil, "", err
	}

	return cfg, usedConfigPath, nil
}

// Unmarshal decodes a loaded koanf instance, applies defaults and checks versions.
func Unmarshal(k *koanf.Koanf) (*Config, error) {
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, err
	}

	config.applyDefaults()

	return &config, nil
}

// applyDefaults fills unset values with the bot's standard settings.
func (c *Config) applyDefaults() {
	setDefault(&c.Common.Debug.LogLevel, "info")
	setDefault(&c.Common.Debug.MaxLogsToKeep, 10)
	setDefault(&c.Common.Telemetry.ServiceName, "automod")

	setDefault(&c.Bot.Automod.ResetInterval, 300)
	setDefault(&c.Bot.Automod.SpamWindow, 5)
	setDefault(&c.Bot.Automod.SpamThreshold, 4)
	setDefault(&c.Bot.Automod.ReplyDeleteDelay, 10)

	setDefault(&c.Bot.Blocklist.RefreshInterval, 3600)
	setDefault(&c.Bot.Blocklist.RequestTimeout, 10)
	setDefault(&c.Bot.Blocklist.UserAgent, "Daggerbot - MaliciousDomains Scanner")
	if len(c.Bot.Blocklist.Sources) == 0 {
		c.Bot.Blocklist.Sources = DefaultBlocklistSources
	}

	setDefault(&c.Bot.Jobs.BlocklistInterval, 600)
	setDefault(&c.Bot.Jobs.WordlistReloadInterval, 900)
	setDefault(&c.Bot.Jobs.SeasonalInterval, 3600)
	setDefault(&c.Bot.Jobs.PresenceInterval, 1800)
	setDefault(&c.Bot.Jobs.PresenceFile, "presence.toml")
}

// DefaultBlocklistSources lists the community-maintained phishing domain lists.
var DefaultBlocklistSources = []string{
	"https://raw.githubusercontent.com/Discord-AntiScam/scam-links/main/list.txt",
	"https://raw.githubusercontent.com/mitchellkrogza/Phishing.Database/master/phishing-links-NEW-today.txt",
	"https://raw.githubusercontent.com/RedPanda4552/PandaPhishLists/main/seen-on-discord.txt",
	"https://raw.githubusercontent.com/nwerosama/FishDB/main/domains.txt",
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/daggerwin/automod/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
