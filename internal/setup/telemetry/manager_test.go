package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bookwyrm/bookwyrm/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateLogSessions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	names := []string{"a", "b", "c", "d", "e"}
	for i, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.Mkdir(path, 0o755))
		modTime := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(path, modTime, modTime))
	}

	lm := NewManager(dir, &config.Debug{LogLevel: "info", MaxLogsToKeep: 2})
	require.NoError(t, lm.rotateLogSessions(2))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var left []string
	for _, entry := range entries {
		left = append(left, entry.Name())
	}
	assert.Equal(t, []string{"d", "e"}, left)
}

func TestGetLoggers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lm := NewManager(dir, &config.Debug{LogLevel: "debug", MaxLogsToKeep: 3})

	mainLogger, dbLogger, err := lm.GetLoggers()
	require.NoError(t, err)

	mainLogger.Info("hello")
	dbLogger.Debug("query")
	require.NoError(t, dbLogger.Sync())

	assert.NotEmpty(t, lm.InstanceID())
	assert.FileExists(t, filepath.Join(lm.SessionDir(), "main.log"))

	data, err := os.ReadFile(filepath.Join(lm.SessionDir(), "database.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "query")
	assert.Contains(t, string(data), lm.InstanceID())
}

func TestGetLoggers_InvalidLevel(t *testing.T) {
	t.Parallel()

	lm := NewManager(t.TempDir(), &config.Debug{LogLevel: "loud", MaxLogsToKeep: 1})
	_, _, err := lm.GetLoggers()
	require.Error(t, err)
}
