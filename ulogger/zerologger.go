package ulogger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ordishs/gocore"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// levels maps the configured level names onto zerolog and gocore levels. Unknown names fall
// back to INFO.
var levels = map[string]struct {
	zero   zerolog.Level
	gocore int
}{
	"DEBUG": {zerolog.DebugLevel, int(gocore.DEBUG)},
	"INFO":  {zerolog.InfoLevel, int(gocore.INFO)},
	"WARN":  {zerolog.WarnLevel, int(gocore.WARN)},
	"ERROR": {zerolog.ErrorLevel, int(gocore.ERROR)},
	"FATAL": {zerolog.FatalLevel, int(gocore.FATAL)},
}

var levelColors = map[string]int{
	"debug": colorBlue,
	"info":  colorGreen,
	"warn":  colorYellow,
	"error": colorRed,
	"fatal": colorRed,
}

type ZLoggerWrapper struct {
	zerolog.Logger
	service string
	w       io.Writer
	skip    int
}

func NewZeroLogger(service string, options ...Option) *ZLoggerWrapper {
	if service == "" {
		service = "minichain"
	}

	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	z := &ZLoggerWrapper{
		service: service,
		w:       opts.writer,
		skip:    opts.skip,
	}

	ctx := zerolog.New(z.output()).With().Timestamp()

	if gocore.Config().GetBool("PRETTY_LOGS", true) {
		ctx = ctx.CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1 + opts.skip)
	} else {
		ctx = ctx.Str("service", service).CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1 + opts.skip)
	}

	z.Logger = ctx.Logger()
	z.SetLogLevel(opts.logLevel)

	return z
}

// output returns the raw writer for JSON logs, or a console writer laid out as
// "time | LEVEL | service | message   caller".
func (z *ZLoggerWrapper) output() io.Writer {
	if !gocore.Config().GetBool("PRETTY_LOGS", true) {
		return z.w
	}

	noColor := !isTerminalWriter(z.w) || os.Getenv("NO_COLOR") != ""

	return zerolog.ConsoleWriter{
		Out:        z.w,
		NoColor:    noColor,
		TimeFormat: "15:04:05",
		FormatTimestamp: func(i interface{}) string {
			s, _ := i.(string)
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t.Format("15:04:05")
			}

			return s
		},
		FormatLevel: func(i interface{}) string {
			name, _ := i.(string)
			return fmt.Sprintf("| %s|", colorize(strings.ToUpper(fmt.Sprintf("%-6s", name)), levelColors[name], noColor))
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("| %-10s| %s", z.service, i)
		},
		FormatCaller: func(i interface{}) string {
			caller, _ := i.(string)
			if caller == "" {
				return ""
			}

			// package/file.go:line is enough to find the call site
			dir, file := filepath.Split(caller)
			short := filepath.Join(filepath.Base(dir), file)

			return colorize(fmt.Sprintf("%-28s", short), colorBold, noColor)
		},
	}
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// New returns a logger for another service writing to the same destination at the same level.
func (z *ZLoggerWrapper) New(service string, options ...Option) Logger {
	inherited := []Option{
		WithWriter(z.w),
		WithLoggerType("zerolog"),
		WithLevel(z.levelName()),
		WithSkipFrame(z.skip),
	}

	return NewZeroLogger(service, append(inherited, options...)...)
}

// Duplicate returns a copy of the logger for the same service, typically with a different
// writer or level.
func (z *ZLoggerWrapper) Duplicate(options ...Option) Logger {
	return z.New(z.service, options...)
}

func (z *ZLoggerWrapper) SetLogLevel(logLevel string) {
	level, ok := levels[strings.ToUpper(logLevel)]
	if !ok {
		level = levels["INFO"]
	}

	z.Logger = z.Logger.Level(level.zero)
}

func (z *ZLoggerWrapper) levelName() string {
	for name, level := range levels {
		if level.zero == z.Logger.GetLevel() {
			return name
		}
	}

	return "INFO"
}

func (z *ZLoggerWrapper) LogLevel() int {
	return levels[z.levelName()].gocore
}

func (z *ZLoggerWrapper) Debugf(format string, args ...interface{}) {
	z.Logger.Debug().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Infof(format string, args ...interface{}) {
	z.Logger.Info().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Warnf(format string, args ...interface{}) {
	z.Logger.Warn().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Errorf(format string, args ...interface{}) {
	z.Logger.Error().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Fatalf(format string, args ...interface{}) {
	z.Logger.Fatal().Msgf(format, args...)
}

// colorize wraps s in ANSI code c unless disabled or c is 0.
func colorize(s string, c int, disabled bool) string {
	if disabled || c == 0 {
		return s
	}

	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", c, s)
}
