package platform

import (
	"fmt"
	"log"
	"os"
)

// Logger is the small logging seam the façade writes registry and back-end
// failures through. Applications can supply their own implementation via
// WithLogger; SetLogger installs a package-wide default for code paths that
// build a Facade without one.
type Logger interface {
	SetLogLevel(level LogLevel)
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Infof(format string, v ...interface{})
}

// LogLevel gates which of a defaultLogger's calls actually reach output.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
)

// defaultLogger backs every Facade that isn't given an explicit Logger. It
// writes to the standard library's log package, matching the corpus's own
// logging idiom (no third-party logging library appears anywhere in it).
type defaultLogger struct {
	level  LogLevel
	output *log.Logger
}

var defaultLoggerInstance Logger = &defaultLogger{level: LogLevelInfo, output: log.New(os.Stderr, "", log.LstdFlags)}

// SetLogger installs logger as the package-wide default used by any Facade
// constructed without an explicit WithLogger option.
func SetLogger(logger Logger) {
	if logger != nil {
		defaultLoggerInstance = logger
	}
}

func (l *defaultLogger) SetLogLevel(level LogLevel) {
	l.level = level
}

func (l *defaultLogger) Errorf(format string, v ...interface{}) {
	l.printlf(LogLevelError, format, v...)
}

func (l *defaultLogger) Warnf(format string, v ...interface{}) {
	l.printlf(LogLevelWarn, format, v...)
}

func (l *defaultLogger) Infof(format string, v ...interface{}) {
	l.printlf(LogLevelInfo, format, v...)
}

func (l *defaultLogger) printlf(level LogLevel, format string, v ...interface{}) {
	if level > l.level {
		return
	}
	l.output.Output(3, fmt.Sprintf("["+levelString(level)+"] "+format, v...))
}

func levelString(l LogLevel) string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	default:
		return "INFO"
	}
}
