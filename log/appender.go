package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Afr0/parlo/config"
)

// LogAppender receives finished, newline-terminated log records and
// writes them somewhere. Write must be safe for concurrent use.
// Refresh re-opens or rotates the underlying sink, for log rotation or
// configuration hot-reload.
type LogAppender interface {
	Write(p []byte) (int, error)
	Refresh() error
}

// ConsoleAppender writes records to stdout.
type ConsoleAppender struct {
	mu sync.Mutex
}

// NewConsoleAppender creates a ConsoleAppender.
func NewConsoleAppender() *ConsoleAppender {
	return &ConsoleAppender{}
}

func (c *ConsoleAppender) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.Stdout.Write(p)
}

// Refresh is a no-op for ConsoleAppender; stdout never needs reopening.
func (c *ConsoleAppender) Refresh() error { return nil }

// FileAppender writes records to a path taken from LogCfg, rotating
// when the file exceeds FileSplitMB.
type FileAppender struct {
	mu            sync.Mutex
	path          string
	splitMB       int
	file          *os.File
	written       int64
	configManager config.ConfigManager
	owner         eventSink
}

// NewFileAppender creates a FileAppender bound to a static configuration.
func NewFileAppender(cfg *LogCfg, owner eventSink) *FileAppender {
	fa := &FileAppender{path: cfg.LogPath, splitMB: cfg.FileSplitMB, owner: owner}
	_ = fa.open()
	return fa
}

// NewFileAppenderWithConfigManager creates a FileAppender that re-reads
// its path/rotation settings from the "logger" config on every hot-reload.
func NewFileAppenderWithConfigManager(cm config.ConfigManager, owner eventSink) *FileAppender {
	fa := &FileAppender{configManager: cm, owner: owner, splitMB: 50, path: "./parlo.log"}
	if cm != nil {
		if c, err := cm.GetConfig("logger"); err == nil {
			if lc, ok := c.(*LogCfg); ok {
				fa.path = lc.LogPath
				fa.splitMB = lc.FileSplitMB
			}
		}
		cm.AddChangeListener(fa)
	}
	_ = fa.open()
	return fa
}

func (f *FileAppender) open() error {
	if dir := filepath.Dir(f.path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("log: open %s: %w", f.path, err)
	}

	if f.file != nil {
		_ = f.file.Close()
	}

	info, _ := file.Stat()
	if info != nil {
		f.written = info.Size()
	}
	f.file = file
	return nil
}

func (f *FileAppender) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		if err := f.open(); err != nil {
			return 0, err
		}
	}

	n, err := f.file.Write(p)
	f.written += int64(n)

	if f.splitMB > 0 && f.written >= int64(f.splitMB)*1024*1024 {
		_ = f.rotateLocked()
	}

	return n, err
}

func (f *FileAppender) rotateLocked() error {
	if f.file != nil {
		_ = f.file.Close()
		f.file = nil
	}

	rotated := fmt.Sprintf("%s.%d", f.path, time.Now().UnixNano())
	_ = os.Rename(f.path, rotated)
	f.written = 0
	return f.open()
}

// Refresh re-opens the file at its current configured path, picking
// up an external rotation (e.g. logrotate) or a path change.
func (f *FileAppender) Refresh() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open()
}

// OnConfigChanged implements config.ConfigChangeListener so a hot
// reload of the "logger" config picks up a new path or split size.
func (f *FileAppender) OnConfigChanged(configName string, newConfig, oldConfig config.Config) error {
	if configName != "logger" {
		return nil
	}

	lc, ok := newConfig.(*LogCfg)
	if !ok {
		return nil
	}

	f.mu.Lock()
	changed := lc.LogPath != f.path
	f.path = lc.LogPath
	f.splitMB = lc.FileSplitMB
	f.mu.Unlock()

	if changed {
		return f.Refresh()
	}
	return nil
}

