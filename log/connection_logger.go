package log

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ConnectionLogger is a CoreLogger scoped to one network connection.
// Every record always reaches the main log file/console; if the
// connection's remote address is on the configured watchlist, records
// bypass level filtering and, when ConnFileLog is set, additionally go
// to a per-connection log file, so a single misbehaving peer can be traced without
// raising verbosity for the whole process.
type ConnectionLogger struct {
	*CoreLogger
	addr    string
	watched bool
}

// NewConnectionLogger creates a ConnectionLogger for addr (typically
// conn.RemoteAddr().String()).
func NewConnectionLogger(cfg *LogCfg, addr string) *ConnectionLogger {
	if cfg == nil {
		cfg = getDefaultCfg()
	}

	core := &CoreLogger{
		minLevel:          cfg.LogLevel,
		callerSkip:        cfg.CallerSkip,
		levelChange:       newLevelChange(cfg.LevelChange),
		enabledCallerInfo: cfg.EnabledCallerInfo,
	}

	cl := &ConnectionLogger{
		CoreLogger: core,
		addr:       addr,
		watched:    cfg.IsWatched(addr),
	}

	core.eventPool = &sync.Pool{
		New: func() any {
			return newEvent(core)
		},
	}

	if cfg.ConsoleAppender {
		core.AddAppender(NewConsoleAppender())
	}
	if cfg.FileAppender {
		core.AddAppender(NewFileAppender(cfg, core))
	}

	if cfg.ConnFileLog && cl.watched {
		connCfg := *cfg
		ext := filepath.Ext(connCfg.LogPath)
		base := strings.TrimSuffix(connCfg.LogPath, ext)
		connCfg.LogPath = fmt.Sprintf("%s_%s%s", base, sanitizeAddr(addr), ext)
		cl.AddAppender(NewFileAppender(&connCfg, cl))
	}

	return cl
}

func sanitizeAddr(addr string) string {
	r := strings.NewReplacer(":", "_", ".", "-")
	return r.Replace(addr)
}

func (x *ConnectionLogger) log(level Level) *LogEvent {
	// Bypass CoreLogger's own level check for watch-listed connections;
	// embedding does not give CoreLogger.log a virtual view of our
	// IgnoreCheckLevel override, so the bypass is applied here instead.
	if !x.watched && !x.checkLevel(level) {
		if x.levelChangeEmpty() {
			return nil
		}
		info := x.getCallerInfo()
		level = x.levelChange.GetLevel(info.file, info.line, level)
		if !x.checkLevel(level) {
			return nil
		}
	}

	e := x.CoreLogger.forceLog(level)
	if e == nil {
		return nil
	}
	return e.Str("conn", x.addr)
}

func (x *ConnectionLogger) levelChangeEmpty() bool {
	return x.levelChange.Empty()
}

// IgnoreCheckLevel bypasses level filtering for watch-listed connections.
func (x *ConnectionLogger) IgnoreCheckLevel() bool {
	return x.watched
}

func (x *ConnectionLogger) Debug() *LogEvent { return x.log(DebugLevel) }
func (x *ConnectionLogger) Info() *LogEvent  { return x.log(InfoLevel) }
func (x *ConnectionLogger) Warn() *LogEvent  { return x.log(WarnLevel) }
func (x *ConnectionLogger) Error() *LogEvent { return x.log(ErrorLevel) }
func (x *ConnectionLogger) Fatal() *LogEvent { return x.log(FatalLevel) }
