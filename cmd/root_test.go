package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

func Test_RootCmd_RegistersCommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"serve", "download", "summarize", "search", "list", "frames", "stats"} {
		command, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, command.Name())
	}
}

func Test_DownloadCmd_RequiresURL(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"download"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	assert.Error(t, root.Execute())
}

func Test_StatsCmd_UsesConfiguredDatabase(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "library.db")
	require.NoError(t, os.WriteFile(configPath, []byte("log_level: error\ndatabase:\n  path: "+dbPath+"\n"), 0o644))

	root := NewRootCmd()
	root.SetArgs([]string{"stats", "--config", configPath, "--json"})
	require.NoError(t, root.Execute())

	assert.FileExists(t, dbPath, "the knowledge base should be created on first use")
}
