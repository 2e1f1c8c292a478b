package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linePrefix = regexp.MustCompile(`^\[[IE]\] \[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\] `)

func TestFileHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewFileHandler(&buf, slog.LevelInfo))

	logger.Info("END: first\nsecond", "task_id", "t1")
	logger.Error("boom", "error", "bad")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Regexp(t, linePrefix, l)
	}
	assert.True(t, strings.HasPrefix(lines[0], "[I] "))
	assert.True(t, strings.HasSuffix(lines[0], "END: first"))
	assert.True(t, strings.HasSuffix(lines[1], "second task_id=t1"))
	assert.True(t, strings.HasPrefix(lines[2], "[E] "))
	assert.True(t, strings.HasSuffix(lines[2], "boom err=bad"))
}

func TestFileHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewFileHandler(&buf, slog.LevelInfo)).With("component", "http").WithGroup("req")

	logger.Info("hit", "path", "/task")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), "hit component=http req.path=/task"))
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		NewFileHandler(&b, slog.LevelWarn),
	))

	logger.Debug("debug only")
	logger.Warn("both")

	assert.Contains(t, a.String(), "debug only")
	assert.Contains(t, a.String(), "both")
	assert.NotContains(t, b.String(), "debug only")
	assert.Contains(t, b.String(), "both")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer, err := Setup(Options{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	logger.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, linePrefix, string(data))
	assert.Contains(t, string(data), "hello")
}

func TestSetup_Invalid(t *testing.T) {
	_, _, err := Setup(Options{Level: "loud"})
	assert.Error(t, err)

	_, _, err = Setup(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestNewAndNop(t *testing.T) {
	ctx := context.Background()

	// 1. New honours the level
	logger := New(slog.LevelWarn)
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	// 2. Setup's text console is the New handler
	l, closer, err := Setup(Options{Level: "warn", Format: "text"})
	require.NoError(t, err)
	defer closer.Close()
	assert.IsType(t, &slog.TextHandler{}, l.Handler())
	assert.False(t, l.Enabled(ctx, slog.LevelInfo))

	// 3. NewNop accepts records without failing
	assert.NotPanics(t, func() { NewNop().Error("dropped", "error", "x") })
}
