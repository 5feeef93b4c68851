package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TempDirWithNamedFiles creates a temporary directory containing an empty file
// for each of the exact names provided.
func TempDirWithNamedFiles(t *testing.T, names []string) string {
	dirPath := t.TempDir()
	for _, name := range names {
		WriteFile(t, filepath.Join(dirPath, name), "")
	}

	return dirPath
}

// WriteFile writes the content to the path, creating any missing parent directories.
func WriteFile(t *testing.T, path string, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create parent directory for test file")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "failed to write test file")
}
