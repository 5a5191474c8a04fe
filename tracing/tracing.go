// Package tracing couples an OpenTelemetry span, a gocore stat and optional prometheus metrics
// around a unit of work.
package tracing

import (
	"context"
	"time"

	"github.com/bsv-blockchain/minichain/ulogger"
	"github.com/ordishs/gocore"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/bsv-blockchain/minichain"

type Options func(s *TraceOptions)

type TraceOptions struct {
	ParentStat *gocore.Stat
	Histogram  prometheus.Histogram
	Counter    prometheus.Counter
	Logger     ulogger.Logger
	LogMessage string
	LogArgs    []interface{}
	Tags       []attribute.KeyValue
}

// WithParentStat nests the stat under parent when ctx carries no stat yet.
func WithParentStat(parent *gocore.Stat) Options {
	return func(s *TraceOptions) {
		s.ParentStat = parent
	}
}

// WithHistogram observes the duration in seconds when the work finishes.
func WithHistogram(histogram prometheus.Histogram) Options {
	return func(s *TraceOptions) {
		s.Histogram = histogram
	}
}

// WithCounter increments counter when the work finishes.
func WithCounter(counter prometheus.Counter) Options {
	return func(s *TraceOptions) {
		s.Counter = counter
	}
}

func WithTag(key, value string) Options {
	return func(s *TraceOptions) {
		s.Tags = append(s.Tags, attribute.String(key, value))
	}
}

// WithLogMessage logs the formatted message at INFO on start and again, with the elapsed time,
// on finish.
func WithLogMessage(logger ulogger.Logger, format string, args ...interface{}) Options {
	return func(s *TraceOptions) {
		s.Logger = logger
		s.LogMessage = format
		s.LogArgs = args
	}
}

type tracedWork struct {
	opts  TraceOptions
	span  trace.Span
	stat  *gocore.Stat
	start time.Time
}

func (w *tracedWork) logf(suffix string) {
	if w.opts.Logger == nil || w.opts.LogMessage == "" {
		return
	}

	w.opts.Logger.Infof(w.opts.LogMessage+suffix, w.opts.LogArgs...)
}

func (w *tracedWork) finish() {
	elapsed := time.Since(w.start)

	w.span.End()
	w.stat.AddTime(w.start)

	if w.opts.Histogram != nil {
		w.opts.Histogram.Observe(elapsed.Seconds())
	}

	if w.opts.Counter != nil {
		w.opts.Counter.Inc()
	}

	w.logf(" DONE in " + elapsed.String())
}

// StartTracing starts a span and a stat named name. It returns a context carrying both and the
// function that finishes them.
func StartTracing(ctx context.Context, name string, setOptions ...Options) (context.Context, *gocore.Stat, func()) {
	w := &tracedWork{}
	for _, opt := range setOptions {
		opt(&w.opts)
	}

	ctx, w.span = otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(w.opts.Tags...))

	parent := w.opts.ParentStat
	if parent == nil {
		parent = defaultStat
	}

	w.start, w.stat, ctx = NewStatFromContext(ctx, name, parent)

	w.logf("")

	return ctx, w.stat, w.finish
}

// RecordError marks the span in ctx as failed. A nil err is ignored.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
