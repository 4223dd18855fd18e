package log

// LevelChangeEntry reassigns the level of records logged from one call
// site. It is consulted only for records below the logger's minimum
// level: a matching record is re-levelled to Level and emitted if Level
// passes that minimum. File is matched as a suffix of the caller's reported file path, so
// "buffer.go" matches "github.com/Afr0/parlo/buffer/buffer.go". Line
// zero matches any line in the file.
type LevelChangeEntry struct {
	File  string `mapstructure:"file"`
	Line  int    `mapstructure:"line"`
	Level Level  `mapstructure:"level"`
}

// levelChange is the compiled, queryable form of a []LevelChangeEntry.
type levelChange struct {
	entries []LevelChangeEntry
}

func newLevelChange(entries []LevelChangeEntry) *levelChange {
	return &levelChange{entries: entries}
}

// Empty reports whether there are no overrides configured at all.
func (lc *levelChange) Empty() bool {
	return lc == nil || len(lc.entries) == 0
}

// GetLevel returns the overridden level for (file, line) if one
// matches, otherwise it returns fallback unchanged.
func (lc *levelChange) GetLevel(file string, line int, fallback Level) Level {
	if lc.Empty() {
		return fallback
	}

	for _, e := range lc.entries {
		if !hasSuffix(file, e.File) {
			continue
		}
		if e.Line != 0 && e.Line != line {
			continue
		}
		return e.Level
	}

	return fallback
}

func hasSuffix(s, suffix string) bool {
	if len(suffix) == 0 {
		return false
	}
	if len(suffix) > len(s) {
		return false
	}
	return s[len(s)-len(suffix):] == suffix
}
