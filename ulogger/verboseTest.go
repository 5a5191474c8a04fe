package ulogger

import (
	"sync"
	"testing"
)

// VerboseTestLogger writes every level through t.Logf, so output only shows for failing tests
// or with -v. Loggers created with New share the test and prefix lines with their service.
type VerboseTestLogger struct {
	t       *testing.T
	mu      *sync.Mutex
	service string
}

func NewVerboseTestLogger(t *testing.T) *VerboseTestLogger {
	return &VerboseTestLogger{t: t, mu: &sync.Mutex{}}
}

func (l *VerboseTestLogger) LogLevel() int {
	return 0
}

func (l *VerboseTestLogger) SetLogLevel(string) {}

func (l *VerboseTestLogger) New(service string, _ ...Option) Logger {
	return &VerboseTestLogger{t: l.t, mu: l.mu, service: service}
}

func (l *VerboseTestLogger) Duplicate(...Option) Logger {
	return l
}

func (l *VerboseTestLogger) logf(level string, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.t.Helper()

	if l.service != "" {
		format = l.service + ": " + format
	}

	l.t.Logf("["+level+"] "+format, args...)
}

func (l *VerboseTestLogger) Debugf(format string, args ...interface{}) {
	l.logf("DEBUG", format, args)
}

func (l *VerboseTestLogger) Infof(format string, args ...interface{}) {
	l.logf("INFO", format, args)
}

func (l *VerboseTestLogger) Warnf(format string, args ...interface{}) {
	l.logf("WARN", format, args)
}

func (l *VerboseTestLogger) Errorf(format string, args ...interface{}) {
	l.logf("ERROR", format, args)
}

func (l *VerboseTestLogger) Fatalf(format string, args ...interface{}) {
	l.logf("FATAL", format, args)
	l.t.FailNow()
}
