package ulogger

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// TestingT is the subset of *testing.T the ErrorTestLogger reports to.
type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
	Logf(format string, args ...any)
}

// ErrorTestLogger is silent below ERROR. Errors are logged against the test with their call
// site and, when a cancel function is attached, cancel the test's context so a background
// failure stops the test early. SkipCancelOnFail turns the cancel off for tests that provoke
// errors on purpose.
type ErrorTestLogger struct {
	t          TestingT
	cancel     func()
	noCancel   atomic.Bool
	closedDown atomic.Bool
}

func NewErrorTestLogger(t TestingT, cancel ...func()) *ErrorTestLogger {
	l := &ErrorTestLogger{t: t}
	if len(cancel) > 0 {
		l.cancel = cancel[0]
	}

	return l
}

func (l *ErrorTestLogger) SetCancelFn(cancel func()) {
	l.cancel = cancel
}

func (l *ErrorTestLogger) SkipCancelOnFail(skip bool) {
	l.noCancel.Store(skip)
}

// Shutdown stops all reporting; testing.T must not be used once the test has returned.
func (l *ErrorTestLogger) Shutdown() {
	l.closedDown.Store(true)
}

func (l *ErrorTestLogger) LogLevel() int { return 0 }
func (l *ErrorTestLogger) SetLogLevel(string) {}
func (l *ErrorTestLogger) New(string, ...Option) Logger { return l }
func (l *ErrorTestLogger) Duplicate(...Option) Logger { return l }
func (l *ErrorTestLogger) Debugf(string, ...interface{}) {}
func (l *ErrorTestLogger) Infof(string, ...interface{}) {}
func (l *ErrorTestLogger) Warnf(string, ...interface{}) {}
func (l *ErrorTestLogger) Errorf(f string, a ...interface{}) { l.report("ERROR", f, a) }
func (l *ErrorTestLogger) Fatalf(f string, a ...interface{}) { l.report("FATAL", f, a) }

func (l *ErrorTestLogger) report(level string, format string, args []interface{}) {
	if l.closedDown.Load() {
		return
	}

	// skip report and Errorf/Fatalf
	_, file, line, _ := runtime.Caller(2)

	l.t.Logf(fmt.Sprintf("%s:%d: %s ", file, line, level)+format, args...)

	if l.cancel != nil && !l.noCancel.Load() {
		l.cancel()
	}
}
