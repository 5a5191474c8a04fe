// Package ulogger is the logging facade used by every minichain component.
package ulogger

// ANSI colours for the console writer.
const (
	colorRed    = 31
	colorGreen  = 32
	colorYellow = 33
	colorBlue   = 34
	colorBold   = 1
)

type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	New(service string, options ...Option) Logger
	Duplicate(options ...Option) Logger
}

func New(service string, options ...Option) Logger {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	switch opts.loggerType {
	case "gocore":
		return NewGoCoreLogger(service, options...)
	default:
		return NewZeroLogger(service, options...)
	}
}
