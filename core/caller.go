package core

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// CallerInfo contains information about the call site of a log call.
type CallerInfo struct {
	File      string
	ShortFile string
	Line      int
	Function  string
	Module    string
	Defined   bool
}

// GetCaller retrieves caller information
func GetCaller(skip int) CallerInfo {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return CallerInfo{}
	}

	fn := runtime.FuncForPC(pc)
	var funcName string
	if fn != nil {
		funcName = fn.Name()
	}

	short := filepath.Base(file)
	return CallerInfo{
		File:      file,
		ShortFile: short,
		Line:      line,
		Function:  funcName,
		Module:    strings.TrimSuffix(short, filepath.Ext(short)),
		Defined:   true,
	}
}

var goroutineNames sync.Map // uint64 -> string

// SetGoroutineName registers a display name for the calling goroutine,
// attached to records it logs. An empty name removes the registration.
func SetGoroutineName(name string) {
	id := GoroutineID()
	if name == "" {
		goroutineNames.Delete(id)
		return
	}
	goroutineNames.Store(id, name)
}

func goroutineName() string {
	if v, ok := goroutineNames.Load(GoroutineID()); ok {
		return v.(string)
	}
	return ""
}

// GoroutineID returns the runtime id of the calling goroutine, parsed
// from the first stack header line ("goroutine 18 [running]:").
func GoroutineID() uint64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	id, _ := strconv.ParseUint(s, 10, 64)
	return id
}

// CaptureStack returns the formatted stack of the calling goroutine,
// used when a log call requests stack capture.
func CaptureStack() string {
	buf := make([]byte, 16*1024)
	n := runtime.Stack(buf, false)
	return strings.TrimRight(string(buf[:n]), "\n")
}
