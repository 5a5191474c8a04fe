package ulogger_test

import (
	"bytes"
	"testing"

	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/ordishs/gocore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroLoggerLevels(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.New("test", ulogger.WithWriter(&buf), ulogger.WithLevel("WARN"))

	logger.Debugf("debug %d", 1)
	logger.Infof("info %d", 2)
	logger.Warnf("warn %d", 3)
	logger.Errorf("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "warn 3")
	assert.Contains(t, out, "error 4")
	assert.Equal(t, int(gocore.WARN), logger.LogLevel())
}

func TestZeroLoggerSetLogLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.New("test", ulogger.WithWriter(&buf))
	assert.Equal(t, int(gocore.INFO), logger.LogLevel())

	logger.SetLogLevel("debug")
	logger.Debugf("now visible")
	assert.Contains(t, buf.String(), "now visible")

	logger.SetLogLevel("nonsense")
	assert.Equal(t, int(gocore.INFO), logger.LogLevel())
}

func TestZeroLoggerNewInheritsWriter(t *testing.T) {
	var buf bytes.Buffer

	parent := ulogger.New("parent", ulogger.WithWriter(&buf), ulogger.WithLevel("DEBUG"))
	child := parent.New("child")

	child.Debugf("from child")
	assert.Contains(t, buf.String(), "from child")
	assert.Equal(t, int(gocore.DEBUG), child.LogLevel())
}

func TestZeroLoggerDuplicate(t *testing.T) {
	var first, second bytes.Buffer

	logger := ulogger.New("dup", ulogger.WithWriter(&first))
	dup := logger.Duplicate(ulogger.WithWriter(&second), ulogger.WithLevel("ERROR"))

	dup.Infof("hidden")
	dup.Errorf("shown")
	logger.Infof("original")

	assert.NotContains(t, second.String(), "hidden")
	assert.Contains(t, second.String(), "shown")
	assert.Contains(t, first.String(), "original")
	assert.NotContains(t, first.String(), "shown")
}

func TestGoCoreLogger(t *testing.T) {
	logger := ulogger.New("gocore-test", ulogger.WithLoggerType("gocore"), ulogger.WithLevel("ERROR"))
	require.IsType(t, &ulogger.GoCoreLogger{}, logger)

	child := logger.New("gocore-child")
	assert.Equal(t, logger.LogLevel(), child.LogLevel())

	assert.IsType(t, &ulogger.GoCoreLogger{}, logger.Duplicate())
}

func TestTestLoggers(t *testing.T) {
	var logger ulogger.Logger = ulogger.TestLogger{}
	logger.Errorf("ignored")
	require.NotNil(t, logger.New("x"))

	verbose := ulogger.NewVerboseTestLogger(t)
	verbose.Infof("verbose %s", "line")
	assert.Same(t, verbose, verbose.Duplicate())
	assert.NotSame(t, verbose, verbose.New("child"))
	verbose.New("child").Warnf("child %s", "line")

	canceled := false
	errLogger := ulogger.NewErrorTestLogger(t, func() { canceled = true })
	errLogger.SkipCancelOnFail(true)
	errLogger.Errorf("expected error path")
	assert.False(t, canceled)

	errLogger.SkipCancelOnFail(false)
	errLogger.Errorf("second error")
	assert.True(t, canceled)
}
