package log

import (
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/Afr0/parlo/config"
)

// CoreLogger is a thread-safe, appender-based logger with level
// filtering, optional caller-info capture, and per-file/per-line level
// overrides. It is the concrete type behind the package-level default
// logger and behind every ConnectionLogger.
type CoreLogger struct {
	appenders         []LogAppender
	minLevel          Level
	callerSkip        int
	eventPool         *sync.Pool
	levelChange       *levelChange
	callerCache       sync.Map
	enabledCallerInfo bool
	configManager     config.ConfigManager
	configMutex       sync.RWMutex
	currentConfig     *LogCfg
}

// NewLogger creates a CoreLogger from cfg, or from defaults if cfg is nil.
func NewLogger(cfg *LogCfg) *CoreLogger {
	if cfg == nil {
		cfg = getDefaultCfg()
	}

	logger := &CoreLogger{
		minLevel:          cfg.LogLevel,
		callerSkip:        cfg.CallerSkip,
		levelChange:       newLevelChange(cfg.LevelChange),
		enabledCallerInfo: cfg.EnabledCallerInfo,
		currentConfig:     cfg,
	}

	logger.eventPool = &sync.Pool{
		New: func() any {
			return newEvent(logger)
		},
	}

	if cfg.FileAppender {
		logger.AddAppender(NewFileAppender(cfg, logger))
	}
	if cfg.ConsoleAppender {
		logger.AddAppender(NewConsoleAppender())
	}

	return logger
}

// NewLoggerWithConfigManager creates a CoreLogger that hot-reloads its
// configuration from cm's "logger" entry.
func NewLoggerWithConfigManager(cfg *LogCfg, cm config.ConfigManager) *CoreLogger {
	logger := NewLogger(cfg)
	logger.configManager = cm

	if cm != nil {
		cm.AddChangeListener(logger)
		logger.reconfigureAppendersWithConfigManager(cm)
	}

	return logger
}

func (x *CoreLogger) reconfigureAppendersWithConfigManager(cm config.ConfigManager) {
	x.appenders = nil

	if cm == nil {
		return
	}

	c, err := cm.GetConfig("logger")
	if err != nil {
		return
	}

	logCfg, ok := c.(*LogCfg)
	if !ok {
		return
	}

	if logCfg.FileAppender {
		x.AddAppender(NewFileAppenderWithConfigManager(cm, x))
	}
	if logCfg.ConsoleAppender {
		x.AddAppender(NewConsoleAppender())
	}
}

// OnConfigChanged implements config.ConfigChangeListener.
func (x *CoreLogger) OnConfigChanged(configName string, newConfig, oldConfig config.Config) error {
	if configName != "logger" {
		return nil
	}

	newLogCfg, ok := newConfig.(*LogCfg)
	if !ok {
		return nil
	}

	x.updateConfig(newLogCfg)

	for _, appender := range x.appenders {
		if listener, ok := appender.(config.ConfigChangeListener); ok {
			if err := listener.OnConfigChanged(configName, newConfig, oldConfig); err != nil {
				x.Error().Err(err).Msg("appender failed to apply config change")
			}
		}
	}

	return nil
}

func (x *CoreLogger) updateConfig(newCfg *LogCfg) {
	x.configMutex.Lock()
	defer x.configMutex.Unlock()

	atomic.StoreUint32((*uint32)(unsafe.Pointer(&x.minLevel)), uint32(newCfg.LogLevel))
	x.callerSkip = newCfg.CallerSkip
	x.enabledCallerInfo = newCfg.EnabledCallerInfo
	x.currentConfig = newCfg

	if newCfg.LevelChange != nil {
		x.levelChange = newLevelChange(newCfg.LevelChange)
	}

	x.Refresh()
}

// GetCurrentConfig returns the logger's active configuration.
func (x *CoreLogger) GetCurrentConfig() *LogCfg {
	x.configMutex.RLock()
	defer x.configMutex.RUnlock()
	return x.currentConfig
}

func (x *CoreLogger) checkLevel(level Level) bool {
	currentLevel := Level(atomic.LoadUint32((*uint32)(unsafe.Pointer(&x.minLevel))))
	return currentLevel <= level
}

// AddAppender registers an additional output sink.
func (x *CoreLogger) AddAppender(appender LogAppender) {
	x.appenders = append(x.appenders, appender)
}

// GetAppender returns the currently registered appenders.
func (x *CoreLogger) GetAppender() []LogAppender {
	return x.appenders
}

// Refresh asks every appender to reopen/rotate its sink.
func (x *CoreLogger) Refresh() {
	for _, appender := range x.appenders {
		_ = appender.Refresh()
	}
}

// IgnoreCheckLevel always returns false for CoreLogger; level
// filtering always applies. ConnectionLogger overrides this for
// watch-listed connections.
func (x *CoreLogger) IgnoreCheckLevel() bool {
	return false
}

func (x *CoreLogger) newEvent() *LogEvent {
	e := x.eventPool.Get().(*LogEvent)
	e.Reset()
	return e
}

// OnEventEnd writes a finished event to every appender, panics on
// Fatal, and returns the event to the pool.
func (x *CoreLogger) OnEventEnd(e *LogEvent) {
	for _, appender := range x.appenders {
		_, _ = appender.Write(e.buf.Bytes())
	}

	level := e.level
	x.eventPool.Put(e)

	if level == FatalLevel {
		panic("")
	}
}

func (x *CoreLogger) Debug() *LogEvent { return x.log(DebugLevel) }
func (x *CoreLogger) Info() *LogEvent  { return x.log(InfoLevel) }
func (x *CoreLogger) Warn() *LogEvent  { return x.log(WarnLevel) }
func (x *CoreLogger) Error() *LogEvent { return x.log(ErrorLevel) }
func (x *CoreLogger) Fatal() *LogEvent { return x.log(FatalLevel) }

func (x *CoreLogger) getCallerInfo() *callerInfo {
	pc, file, line, ok := runtime.Caller(3 + x.callerSkip)
	if !ok {
		return _UnknownCallerInfo
	}

	if cached, found := x.callerCache.Load(pc); found {
		return cached.(*callerInfo)
	}

	funcName := runtime.FuncForPC(pc).Name()
	function := funcName
	if dotIdx := strings.LastIndexByte(funcName, '.'); dotIdx != -1 {
		function = funcName[dotIdx+1:]
	}

	if lastSlash := strings.LastIndexByte(file, '/'); lastSlash > 0 {
		if secondLastSlash := strings.LastIndexByte(file[:lastSlash], '/'); secondLastSlash >= 0 {
			file = file[secondLastSlash+1:]
		}
	}

	c := newCallerInfo(file, function, line)
	x.callerCache.Store(pc, c)
	return c
}

func (x *CoreLogger) log(level Level) *LogEvent {
	var info *callerInfo

	if !x.IgnoreCheckLevel() {
		if !x.checkLevel(level) {
			if x.levelChange.Empty() {
				return nil
			}
			info = x.getCallerInfo()
			level = x.levelChange.GetLevel(info.file, info.line, level)
		}
	}

	if !x.checkLevel(level) {
		return nil
	}

	return x.buildEvent(level, info)
}

// forceLog builds an event at level unconditionally, skipping the
// minimum-level check. Used by ConnectionLogger to honor its own
// watchlist bypass, which CoreLogger.log cannot see through embedding.
func (x *CoreLogger) forceLog(level Level) *LogEvent {
	return x.buildEvent(level, nil)
}

func (x *CoreLogger) buildEvent(level Level, info *callerInfo) *LogEvent {
	e := x.newEvent()
	e.level = level

	t := time.Now()
	e.Time("time", &t)
	e.Str("level", level.String())

	if x.enabledCallerInfo {
		if info == nil {
			info = x.getCallerInfo()
		}
		e.Str("caller", info.String())
	}

	return e
}
