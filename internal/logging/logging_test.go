package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"nope":    slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: a file-only config in a temp dir
	path := filepath.Join(t.TempDir(), "logs", "amanrag.log")
	cfg := Config{Level: "debug", FilePath: path, MaxSizeMB: 1, MaxFiles: 2}

	// When: logging one record
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Info("retrieval_complete", "route", "GENERATE")
	cleanup()

	// Then: the file holds a JSON record
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"retrieval_complete"`)
	assert.Contains(t, string(data), `"route":"GENERATE"`)
}

func TestSetup_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "amanrag.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: path})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestRotatingWriter_Rotates(t *testing.T) {
	// Given: a 1MB writer keeping two rotated files
	path := filepath.Join(t.TempDir(), "amanrag.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	line := []byte(strings.Repeat("x", 400*1024) + "\n")

	// When: writing well past the size limit several times
	for i := 0; i < 8; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
	}

	// Then: the live file and at most two rotations exist
	_, err = os.Stat(path)
	assert.NoError(t, err)
	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
	_, err = os.Stat(path + ".2")
	assert.NoError(t, err)
	_, err = os.Stat(fmt.Sprintf("%s.%d", path, 3))
	assert.True(t, os.IsNotExist(err))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(1024*1024))
}

func TestDefaultPaths(t *testing.T) {
	assert.True(t, strings.HasSuffix(DefaultLogPath(), filepath.Join(".amanrag", "logs", "amanrag.log")))
	assert.Equal(t, DefaultLogDir(), filepath.Dir(DefaultLogPath()))
}
