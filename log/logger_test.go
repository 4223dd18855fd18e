package log

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleAppenderWriteDirect(t *testing.T) {
	ca := NewConsoleAppender()
	msg := []byte("hello-console-direct\n")
	n, err := ca.Write(msg)
	require.NoError(t, err)
	assert.Equal(t, len(msg), n)
}

func TestCoreLoggerWritesToFile(t *testing.T) {
	tmp, err := os.CreateTemp("", "parlo-log-*.log")
	require.NoError(t, err)
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)

	cfg := &LogCfg{LogLevel: InfoLevel, ConsoleAppender: false, FileAppender: true, LogPath: path}
	logger := NewLogger(cfg)

	logger.Info().Str("event", "start").Int("n", 3).Msg("hello world")
	logger.Warn().Msg("uh oh")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"msg":"hello world"`)
	assert.Contains(t, content, `"event":"start"`)
	assert.Contains(t, content, `"n":3`)
	assert.Contains(t, content, `"msg":"uh oh"`)
}

func TestCoreLoggerLevelFiltering(t *testing.T) {
	tmp, err := os.CreateTemp("", "parlo-log-*.log")
	require.NoError(t, err)
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)

	cfg := &LogCfg{LogLevel: ErrorLevel, ConsoleAppender: false, FileAppender: true, LogPath: path}
	logger := NewLogger(cfg)

	logger.Info().Msg("should be dropped")
	logger.Error().Msg("should appear")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.False(t, strings.Contains(content, "should be dropped"))
	assert.True(t, strings.Contains(content, "should appear"))
}

func TestConnectionLoggerWatchlistBypassesLevel(t *testing.T) {
	tmp, err := os.CreateTemp("", "parlo-log-*.log")
	require.NoError(t, err)
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)

	cfg := &LogCfg{
		LogLevel:        ErrorLevel,
		ConsoleAppender: false,
		FileAppender:    true,
		LogPath:         path,
		ConnWatchList:   []string{"10.0.0.1:5000"},
	}

	watched := NewConnectionLogger(cfg, "10.0.0.1:5000")
	unwatched := NewConnectionLogger(cfg, "10.0.0.2:5000")

	watched.Debug().Msg("watched debug")
	unwatched.Debug().Msg("unwatched debug")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "watched debug"))
	assert.False(t, strings.Contains(content, "unwatched debug"))
	assert.Contains(t, content, `"conn":"10.0.0.1:5000"`)
}

func TestLevelChangeOverridesBySuffix(t *testing.T) {
	lc := newLevelChange([]LevelChangeEntry{
		{File: "core_logger.go", Line: 0, Level: DebugLevel},
	})

	assert.Equal(t, DebugLevel, lc.GetLevel("/root/module/log/core_logger.go", 42, ErrorLevel))
	assert.Equal(t, ErrorLevel, lc.GetLevel("/root/module/log/other.go", 42, ErrorLevel))
}

func TestLogEventDurationAndErr(t *testing.T) {
	tmp, err := os.CreateTemp("", "parlo-log-*.log")
	require.NoError(t, err)
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)

	cfg := &LogCfg{LogLevel: DebugLevel, ConsoleAppender: false, FileAppender: true, LogPath: path}
	logger := NewLogger(cfg)

	logger.Debug().Duration("elapsed", 150*time.Millisecond).Err(fmt.Errorf("boom")).Msg("done")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"elapsed":150ms`)
	assert.Contains(t, content, `"error":"boom"`)
}
