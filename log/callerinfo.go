package log

import "strconv"

// callerInfo is the resolved, cached caller location for one log call site.
type callerInfo struct {
	file     string
	function string
	line     int
	str      string
}

var _UnknownCallerInfo = &callerInfo{file: "???", function: "???", line: 0, str: "???:0 ???"}

func newCallerInfo(file, function string, line int) *callerInfo {
	return &callerInfo{
		file:     file,
		function: function,
		line:     line,
		str:      file + ":" + strconv.Itoa(line) + " " + function,
	}
}

func (c *callerInfo) String() string {
	return c.str
}
