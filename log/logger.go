package log

import (
	"github.com/Afr0/parlo/config"
)

// Logger is the interface every Parlo component logs through, whether
// it's the package default, a CoreLogger, or a ConnectionLogger.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	Fatal() *LogEvent
	IgnoreCheckLevel() bool
	GetAppender() []LogAppender
	AddAppender(appender LogAppender)
	OnEventEnd(e *LogEvent)
}

var _defaultLogger *CoreLogger

func init() {
	_defaultLogger = NewLogger(nil)
}

// AddAppender adds an appender to the default logger.
func AddAppender(appender LogAppender) {
	_defaultLogger.AddAppender(appender)
}

// Refresh refreshes all appenders of the default logger.
func Refresh() {
	_defaultLogger.Refresh()
}

// SetDefaultLogger replaces the package-level default logger.
func SetDefaultLogger(logger *CoreLogger) {
	_defaultLogger = logger
}

// SetDefaultLoggerWithConfigManager replaces the default logger with
// logger as given; configManager is not used.
func SetDefaultLoggerWithConfigManager(logger *CoreLogger, configManager config.ConfigManager) {
	_defaultLogger = logger
}

// InitializeWithConfigManager loads the "logger" config from cm and
// installs a hot-reloading default logger.
func InitializeWithConfigManager(configManager config.ConfigManager) error {
	if configManager == nil {
		return nil
	}

	logCfg := &LogCfg{}
	if err := configManager.LoadConfig("logger", logCfg); err != nil {
		return err
	}

	logger := NewLoggerWithConfigManager(logCfg, configManager)
	SetDefaultLoggerWithConfigManager(logger, configManager)

	return nil
}

// Initialize installs a hot-reloading default logger using the
// singleton config.ConfigManager.
func Initialize() error {
	return InitializeWithConfigManager(config.GetInstance())
}

// GetConfigManager returns the singleton ConfigManager.
func GetConfigManager() config.ConfigManager {
	return config.GetInstance()
}

func Debug() *LogEvent { return _defaultLogger.Debug() }
func Info() *LogEvent  { return _defaultLogger.Info() }
func Warn() *LogEvent  { return _defaultLogger.Warn() }
func Error() *LogEvent { return _defaultLogger.Error() }
func Fatal() *LogEvent { return _defaultLogger.Fatal() }
