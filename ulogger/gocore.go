package ulogger

import (
	"github.com/ordishs/gocore"
)

// GoCoreLogger adapts the gocore logger. Its level is fixed when it is created.
type GoCoreLogger struct {
	*gocore.Logger
	service string
}

func NewGoCoreLogger(service string, options ...Option) *GoCoreLogger {
	if service == "" {
		service = "minichain"
	}

	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	return &GoCoreLogger{
		Logger:  gocore.Log(service, gocore.NewLogLevelFromString(opts.logLevel)),
		service: service,
	}
}

// New returns a logger for service at this logger's level unless options set another.
func (g *GoCoreLogger) New(service string, options ...Option) Logger {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	level := g.Logger.GetLogLevel()
	if opts.logLevel != DefaultOptions().logLevel {
		level = gocore.NewLogLevelFromString(opts.logLevel)
	}

	return &GoCoreLogger{Logger: gocore.Log(service, level), service: service}
}

func (g *GoCoreLogger) Duplicate(options ...Option) Logger {
	return g.New(g.service, options...)
}

func (g *GoCoreLogger) LogLevel() int {
	return int(g.Logger.GetLogLevel())
}

func (g *GoCoreLogger) SetLogLevel(string) {}
