package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/daggerwin/automod/internal/setup/config"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, files map[string]string) (*config.Config, error) {
	t.Helper()

	dir := t.TempDir()
	k := koanf.New(".")

	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		require.NoError(t, k.Load(file.Provider(path), toml.Parser()))
	}

	return config.Unmarshal(k)
}

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := load(t, map[string]string{
			"common.toml": "[common]\nversion = 1\n",
			"bot.toml":    "[bot]\nversion = 1\n[bot.discord]\nguild_id = 42\nstaff_roles = [1, 2]\n",
		})
		require.NoError(t, err)

		assert.Equal(t, "info", cfg.Common.Debug.LogLevel)
		assert.Equal(t, 300, cfg.Bot.Automod.ResetInterval)
		assert.Equal(t, 5, cfg.Bot.Automod.SpamWindow)
		assert.Equal(t, 4, cfg.Bot.Automod.SpamThreshold)
		assert.Equal(t, 10, cfg.Bot.Automod.ReplyDeleteDelay)
		assert.Equal(t, 3600, cfg.Bot.Blocklist.RefreshInterval)
		assert.Equal(t, 10, cfg.Bot.Blocklist.RequestTimeout)
		assert.Equal(t, config.DefaultBlocklistSources, cfg.Bot.Blocklist.Sources)
		assert.Equal(t, uint64(42), cfg.Bot.Discord.GuildID)
		assert.Equal(t, []uint64{1, 2}, cfg.Bot.Discord.StaffRoles)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		t.Parallel()

		cfg, err := load(t, map[string]string{
			"common.toml": "[common]\nversion = 1\n[common.debug]\nlog_level = \"debug\"\n",
			"bot.toml": "[bot]\nversion = 1\n[bot.automod]\nreset_interval = 60\n" +
				"[bot.automod.policies.anti_spam]\nenabled = false\nwarn_threshold = 5\n",
		})
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Common.Debug.LogLevel)
		assert.Equal(t, 60, cfg.Bot.Automod.ResetInterval)

		override, ok := cfg.Bot.Automod.Policies["anti_spam"]
		require.True(t, ok)
		require.NotNil(t, override.Enabled)
		assert.False(t, *override.Enabled)
		assert.Equal(t, 5, override.WarnThreshold)
	})

	t.Run("missing version", func(t *testing.T) {
		t.Parallel()

		_, err := load(t, map[string]string{
			"common.toml": "[common]\n",
			"bot.toml":    "[bot]\nversion = 1\n",
		})
		require.ErrorIs(t, err, config.ErrConfigVersionMissing)
	})

	t.Run("version mismatch", func(t *testing.T) {
		t.Parallel()

		_, err := load(t, map[string]string{
			"common.toml": "[common]\nversion = 1\n",
			"bot.toml":    "[bot]\nversion = 99\n",
		})
		require.ErrorIs(t, err, config.ErrConfigVersionMismatch)
	})
}
