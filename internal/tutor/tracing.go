package tutor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"verbtutor/internal/contract"
	"verbtutor/internal/llm"
	llmclient "verbtutor/internal/llm/client"
)

const tracerName = "verbtutor/internal/tutor"

// WithTracing opens a span around every Run. Generation spans from the llm
// middleware nest under it. A nil provider uses the global one.
func WithTracing(tp trace.TracerProvider) ControllerOption {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return func(c *Controller) { c.tracer = tp.Tracer(tracerName) }
}

// SpanEvents is an Observer that records each transition on the span in ctx.
func SpanEvents(ctx context.Context, t Transition) {
	attrs := []attribute.KeyValue{
		attribute.String("tutor.state", string(t.To)),
		attribute.Int("tutor.attempt", t.Attempt),
	}
	if !t.Violations.OK() {
		attrs = append(attrs, attribute.StringSlice("tutor.violations", kindStrings(t.Violations)))
	}
	trace.SpanFromContext(ctx).AddEvent("tutor.transition", trace.WithAttributes(attrs...))
}

func (c *Controller) tracedRun(ctx context.Context, base []llmclient.Message) (Candidate, error) {
	ctx, span := c.tracer.Start(ctx, "tutor.run", trace.WithAttributes(
		attribute.String("tutor.session_id", llm.SessionFrom(ctx)),
		attribute.Int("tutor.max_retries", c.cfg.MaxRetries),
	))
	defer span.End()

	cand, err := c.run(ctx, base)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no candidate accepted")
		return cand, err
	}
	span.SetAttributes(attribute.Int("tutor.attempts", cand.Attempt))
	span.SetStatus(codes.Ok, "ok")
	return cand, nil
}

func kindStrings(vs contract.Violations) []string {
	kinds := vs.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
