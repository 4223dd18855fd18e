package log

// LogCfg holds logging configuration for a Parlo endpoint (listener or
// client). It supports hot-reload through the config package: a running
// process can change its minimum log level, its per-site overrides, or
// its connection watchlist without restarting.
type LogCfg struct {
	// LogPath specifies the target log file path for file-based logging.
	LogPath string `mapstructure:"path"`

	// LogLevel is the minimum level that reaches an appender.
	LogLevel Level `mapstructure:"level"`

	// FileSplitMB rotates the log file once it exceeds this size.
	FileSplitMB int `mapstructure:"splitmb"`

	// FileSplitHour is an hour of day (0-23). No appender reads it;
	// rotation is by size only (FileSplitMB).
	FileSplitHour int `mapstructure:"splithour"`

	// CallerSkip is the number of stack frames to skip when resolving
	// caller info for wrapper call sites.
	CallerSkip int `mapstructure:"callerSkip"`

	// FileAppender enables file-based logging output.
	FileAppender bool `mapstructure:"fileAppender"`

	// ConsoleAppender enables console (stdout) logging output.
	ConsoleAppender bool `mapstructure:"consoleAppender"`

	// LevelChange lists per-file/per-line level reassignments for records
	// below LogLevel (see LevelChangeEntry), used to raise verbosity
	// around one troublesome call site without lowering the global level.
	LevelChange []LevelChangeEntry `mapstructure:"levelChange"`

	// ConnWatchList names remote addresses (as returned by
	// net.Conn.RemoteAddr().String()) that bypass level filtering
	// entirely, for targeted debugging of one misbehaving peer.
	ConnWatchList []string `mapstructure:"connWatchList"`

	// connWatchSet caches ConnWatchList for O(1) lookups.
	connWatchSet map[string]struct{} `mapstructure:"-"`

	// ConnFileLog additionally writes a per-connection log file for
	// watch-listed connections, alongside the main log file.
	ConnFileLog bool `mapstructure:"connFileLog"`

	EnabledCallerInfo bool `mapstructure:"enabledCallerInfo"`
}

// GetName implements config.Config.
func (cfg *LogCfg) GetName() string { return "logger" }

// Validate implements config.Config.
func (cfg *LogCfg) Validate() error {
	if cfg.LogLevel > FatalLevel {
		return errInvalidLogLevel
	}
	return nil
}

// IsWatched reports whether addr is on the connection watchlist.
func (cfg *LogCfg) IsWatched(addr string) bool {
	if len(cfg.connWatchSet) == 0 && len(cfg.ConnWatchList) != 0 {
		cfg.connWatchSet = make(map[string]struct{}, len(cfg.ConnWatchList))
		for _, a := range cfg.ConnWatchList {
			cfg.connWatchSet[a] = struct{}{}
		}
	}

	_, ok := cfg.connWatchSet[addr]
	return ok
}

var _defaultCfg = &LogCfg{
	LogPath:         "./parlo.log",
	LogLevel:        DebugLevel,
	FileSplitMB:     50,
	FileSplitHour:   0,
	CallerSkip:      1,
	FileAppender:    true,
	ConsoleAppender: true,
}

func getDefaultCfg() *LogCfg {
	return _defaultCfg
}
