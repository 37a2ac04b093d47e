package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/daggerwin/automod/internal/setup/config"
	"github.com/daggerwin/automod/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRotatesSessions(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()

	// Pre-existing sessions with increasing modification times.
	for i, name := range []string{"a", "b", "c"} {
		dir := filepath.Join(logDir, name)
		require.NoError(t, os.MkdirAll(dir, os.ModePerm))

		mod := time.Now().Add(time.Duration(i-10) * time.Hour)
		require.NoError(t, os.Chtimes(dir, mod, mod))
	}

	manager := telemetry.NewManager(logDir,
		&config.Debug{LogLevel: "debug", MaxLogsToKeep: 2},
		&config.Telemetry{},
	)

	mainLogger, dbLogger, err := manager.GetLoggers()
	require.NoError(t, err)
	require.NotNil(t, mainLogger)
	require.NotNil(t, dbLogger)

	mainLogger.Info("hello")
	require.NoError(t, mainLogger.Sync())

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = os.Stat(filepath.Join(logDir, "c"))
	require.NoError(t, err, "newest previous session is kept")

	data, err := os.ReadFile(filepath.Join(manager.GetCurrentSessionDir(), "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestManagerJobLogger(t *testing.T) {
	t.Parallel()

	manager := telemetry.NewManager(t.TempDir(),
		&config.Debug{LogLevel: "info", MaxLogsToKeep: 5},
		&config.Telemetry{},
	)

	logger := manager.GetJobLogger("blocklist")
	logger.Info("refreshed")
	require.NoError(t, logger.Sync())

	_, err := os.Stat(filepath.Join(manager.GetCurrentSessionDir(), "job_blocklist.log"))
	require.NoError(t, err)
}

func TestManagerInvalidLevel(t *testing.T) {
	t.Parallel()

	manager := telemetry.NewManager(t.TempDir(),
		&config.Debug{LogLevel: "loud", MaxLogsToKeep: 5},
		&config.Telemetry{},
	)

	_, _, err := manager.GetLoggers()
	require.ErrorIs(t, err, telemetry.ErrInvalidLogLevel)
}
