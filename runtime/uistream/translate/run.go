package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/codes"

	"goa.design/uistream/runtime/agent/model"
	"goa.design/uistream/runtime/agent/telemetry"
	"goa.design/uistream/runtime/uistream/protocol"
)

type (
	// Option configures Run.
	Option func(*runOptions)

	runOptions struct {
		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer
	}
)

// Metric names recorded by Run.
const (
	MetricEvents      = "uistream.events"
	MetricRunDuration = "uistream.run.duration"
)

// WithLogger sets the logger used to report upstream failures.
func WithLogger(l telemetry.Logger) Option {
	return func(o *runOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the recorder for event counts and stream durations.
func WithMetrics(m telemetry.Metrics) Option {
	return func(o *runOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the tracer used to wrap the stream in a span.
func WithTracer(t telemetry.Tracer) Option {
	return func(o *runOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// Run drives one stream: it sends Start, then the events of every item read
// from src, then Finish and Done. Items are read one at a time and each item's
// events are sent before the next item is requested, so a slow sink slows the
// agent down instead of buffering.
//
// When src fails, Run sends a single Error event carrying ErrorText(err),
// stops reading and still sends Finish and Done; it returns nil because the
// failure was delivered to the client. Run returns an error only when the sink
// rejects an event or ctx is done, in which case nothing more is sent. src is
// always closed before Run returns.
func Run(ctx context.Context, t *Translator, src model.Streamer, sink Sink, opts ...Option) (err error) {
	o := runOptions{
		logger:  telemetry.NewNoopLogger(),
		metrics: telemetry.NewNoopMetrics(),
		tracer:  telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	b := t.Builder()
	ctx, span := o.tracer.Start(ctx, "uistream.run")
	began := time.Now()
	outcome := "completed"
	defer func() {
		if cerr := src.Close(); cerr != nil {
			o.logger.Warn(ctx, "close agent stream", "message_id", b.MessageID(), "err", cerr)
		}
		if err != nil {
			outcome = "aborted"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		o.metrics.RecordTimer(MetricRunDuration, time.Since(began), "outcome", outcome)
		span.End()
	}()

	send := func(ev protocol.Event) error {
		if err := sink.Send(ctx, ev); err != nil {
			return fmt.Errorf("send %s: %w", ev.Type(), err)
		}
		o.metrics.IncCounter(MetricEvents, 1, "type", string(ev.Type()))
		return nil
	}

	if err := send(b.Start()); err != nil {
		return err
	}
	var upstream error
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, rerr := src.Recv()
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			upstream = rerr
			break
		}
		for _, ev := range t.Translate(item) {
			if err := send(ev); err != nil {
				return err
			}
		}
	}
	if upstream != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome = "failed"
		o.logger.Error(ctx, "agent stream failed", "message_id", b.MessageID(), "err", upstream)
		span.RecordError(upstream)
		span.SetStatus(codes.Error, upstream.Error())
		if err := send(protocol.Error{ErrorText: ErrorText(upstream)}); err != nil {
			return err
		}
	}
	if err := send(b.Finish()); err != nil {
		return err
	}
	return send(b.Done())
}

// ErrorText returns the user-facing text for an upstream failure: the provider
// message for model.ProviderError values that carry one, err.Error()
// otherwise.
func ErrorText(err error) string {
	if pe, ok := model.AsProviderError(err); ok && pe.Message() != "" {
		return pe.Message()
	}
	return err.Error()
}
