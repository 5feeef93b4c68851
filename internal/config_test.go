package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hbomb79/Mnemo/internal/database"
	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func Test_LoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "log_level: debug\n")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, database.SQLITE, config.Database.Dialect)
	assert.Equal(t, "yt-dlp", config.Download.YtDlpPath)
	assert.Equal(t, 1, config.Download.Parallelism)
	assert.Equal(t, []string{"it", "en"}, config.Download.KnowledgeBaseLanguages)
	assert.Equal(t, 30.0, config.Frames.IntervalSeconds)
	assert.False(t, config.Frames.Dedupe)
	assert.Equal(t, "0.0.0.0:8080", config.RestAPI.HostAddr)
	assert.Equal(t, "debug", config.LogLevel)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Downloads", "YouTube"), config.Download.DestinationDir, "leading '~' should be expanded")
}

func Test_LoadConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
download:
  yt_dlp_path: /opt/bin/yt-dlp
  destination_dir: /srv/media
  parallelism: 3
  knowledge_base_languages: [de, fr]
frames:
  interval_seconds: 12.5
  dedupe: true
api:
  host_address: 127.0.0.1:9000
database:
  dialect: postgres
  host: db.internal
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/bin/yt-dlp", config.Download.YtDlpPath)
	assert.Equal(t, "/srv/media", config.Download.DestinationDir)
	assert.Equal(t, 3, config.Download.Parallelism)
	assert.Equal(t, []string{"de", "fr"}, config.Download.KnowledgeBaseLanguages)
	assert.Equal(t, 12.5, config.Frames.IntervalSeconds)
	assert.True(t, config.Frames.Dedupe)
	assert.Equal(t, "127.0.0.1:9000", config.RestAPI.HostAddr)
	assert.Equal(t, database.POSTGRES, config.Database.Dialect)
	assert.Equal(t, "db.internal", config.Database.Host)
}

func Test_LoadConfig_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "download:\n  parallelism: 3\n")
	t.Setenv("DOWNLOAD_PARALLELISM", "5")
	t.Setenv("API_HOST_ADDR", "localhost:1234")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, config.Download.Parallelism)
	assert.Equal(t, "localhost:1234", config.RestAPI.HostAddr)
}

func Test_LoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func Test_ApplyLogLevel(t *testing.T) {
	t.Cleanup(func() { logger.SetMinLoggingLevel(logger.VERBOSE.Level()) })

	config := &MnemoConfig{LogLevel: "warning"}
	assert.NoError(t, config.ApplyLogLevel())

	config.LogLevel = "chatty"
	assert.Error(t, config.ApplyLogLevel())
}

func Test_New_RejectsInvalidServiceConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "frames:\n  interval_seconds: -1\n"))
	require.NoError(t, err)

	_, err = New(*config)
	assert.Error(t, err)
}

func Test_New_ConnectsKnowledgeBase(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "log_level: verbose\n"))
	require.NoError(t, err)
	config.Database.Path = filepath.Join(t.TempDir(), "library.db")

	mnemo, err := New(*config)
	require.NoError(t, err)
	require.NoError(t, mnemo.Connect())
	t.Cleanup(func() { mnemo.Close() })

	stats, err := mnemo.Store().Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Items)
}
