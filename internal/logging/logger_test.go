package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		err  bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"", INFO, false},
		{"warning", WARN, false},
		{"error", ERROR, false},
		{"verbose", INFO, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.err, err != nil, tt.in)
	}
	assert.Equal(t, "warn", WARN.String())
}

// useLogger installs a logger for the duration of the test
func useLogger(t *testing.T, config Config) {
	t.Helper()
	previous := slog.Default()
	t.Cleanup(func() {
		Close()
		slog.SetDefault(previous)
	})
	require.NoError(t, Initialize(config))
}

func TestInitializeJSON(t *testing.T) {
	var buf bytes.Buffer
	useLogger(t, Config{Level: INFO, Output: &buf, JSONFormat: true})

	Component("test").Info("hello", "repo", "acme/widget")
	slog.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "acme/widget", entry["repo"])
}

func TestInitializeInstallsDefault(t *testing.T) {
	var buf bytes.Buffer
	useLogger(t, Config{Level: DEBUG, Output: &buf})

	slog.Debug("through default")
	Component("cache").Info("through component")

	out := buf.String()
	assert.Contains(t, out, "through default")
	assert.Contains(t, out, "component=cache")
}

func TestInitializeReplacesPrevious(t *testing.T) {
	var first, second bytes.Buffer
	useLogger(t, Config{Output: &first})
	require.NoError(t, Initialize(Config{Output: &second}))

	slog.Info("after replace")
	assert.Empty(t, first.String())
	assert.Contains(t, second.String(), "after replace")
}

func TestFileOutputAndRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "repolens.log")

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0644))

	useLogger(t, Config{Output: &bytes.Buffer{}, OutputFile: path, MaxSize: 32})
	slog.Info("fresh file")

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Len(t, rotated, 64)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(current), "fresh file")
}

func TestCloseWithoutInitialize(t *testing.T) {
	assert.NoError(t, Close())
}
