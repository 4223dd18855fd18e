package log

import (
	"bytes"
	"strconv"
	"time"
)

// eventSink receives a finished LogEvent's buffered bytes and decides
// where they go (appenders) and whether Fatal-level should panic.
type eventSink interface {
	OnEventEnd(e *LogEvent)
}

// LogEvent is a single, chainable log record. It borrows its buffer
// from a sync.Pool-backed logger and is returned to the pool once
// Msg is called. A LogEvent must not be retained past the call to Msg.
type LogEvent struct {
	buf    bytes.Buffer
	level  Level
	logger eventSink
	first  bool
}

func newEvent(logger eventSink) *LogEvent {
	e := &LogEvent{logger: logger}
	e.Reset()
	return e
}

// Reset clears the event's buffer and opens a fresh JSON object. It is
// called by the owning logger when an event is taken from the pool.
func (e *LogEvent) Reset() {
	e.buf.Reset()
	e.buf.WriteByte('{')
	e.first = true
}

func (e *LogEvent) sep() {
	if !e.first {
		e.buf.WriteByte(',')
	}
	e.first = false
}

func (e *LogEvent) writeKey(key string) {
	e.sep()
	e.buf.WriteByte('"')
	e.buf.WriteString(key)
	e.buf.WriteString(`":`)
}

// Str appends a string field.
func (e *LogEvent) Str(key, val string) *LogEvent {
	if e == nil {
		return nil
	}
	e.writeKey(key)
	e.buf.WriteByte('"')
	writeEscaped(&e.buf, val)
	e.buf.WriteByte('"')
	return e
}

// Int appends an integer field.
func (e *LogEvent) Int(key string, val int) *LogEvent {
	if e == nil {
		return nil
	}
	e.writeKey(key)
	e.buf.WriteString(strconv.Itoa(val))
	return e
}

// Uint64 appends an unsigned 64-bit integer field.
func (e *LogEvent) Uint64(key string, val uint64) *LogEvent {
	if e == nil {
		return nil
	}
	e.writeKey(key)
	e.buf.WriteString(strconv.FormatUint(val, 10))
	return e
}

// Bool appends a boolean field.
func (e *LogEvent) Bool(key string, val bool) *LogEvent {
	if e == nil {
		return nil
	}
	e.writeKey(key)
	e.buf.WriteString(strconv.FormatBool(val))
	return e
}

// Err appends an error field. A nil error is written as null.
func (e *LogEvent) Err(err error) *LogEvent {
	if e == nil {
		return nil
	}
	e.writeKey("error")
	if err == nil {
		e.buf.WriteString("null")
		return e
	}
	e.buf.WriteByte('"')
	writeEscaped(&e.buf, err.Error())
	e.buf.WriteByte('"')
	return e
}

// Time appends a field formatted with time.RFC3339Nano.
func (e *LogEvent) Time(key string, t *time.Time) *LogEvent {
	if e == nil {
		return nil
	}
	e.writeKey(key)
	e.buf.WriteByte('"')
	e.buf.WriteString(t.Format(time.RFC3339Nano))
	e.buf.WriteByte('"')
	return e
}

// Duration appends a field in milliseconds.
func (e *LogEvent) Duration(key string, d time.Duration) *LogEvent {
	if e == nil {
		return nil
	}
	e.writeKey(key)
	e.buf.WriteString(strconv.FormatInt(d.Milliseconds(), 10))
	e.buf.WriteString("ms")
	return e
}

// Msg finalizes the event with a message field and hands it to the
// owning logger's sink for appender dispatch and pool return.
func (e *LogEvent) Msg(msg string) {
	if e == nil {
		return
	}
	e.writeKey("msg")
	e.buf.WriteByte('"')
	writeEscaped(&e.buf, msg)
	e.buf.WriteString("\"}\n")
	e.logger.OnEventEnd(e)
}

func writeEscaped(buf *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		default:
			buf.WriteRune(r)
		}
	}
}
