package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	llmclient "verbtutor/internal/llm/client"
)

const tracerName = "verbtutor/internal/llm"

// WithTracing opens a client span per Generate call. A nil provider uses the
// global one.
func WithTracing(tp trace.TracerProvider) Middleware {
	return func(next llmclient.Generator) llmclient.Generator {
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		return &traced{next: next, tracer: tp.Tracer(tracerName)}
	}
}

type traced struct {
	next   llmclient.Generator
	tracer trace.Tracer
}

func (t *traced) Name() string { return t.next.Name() }
func (t *traced) Close() error { return t.next.Close() }

func (t *traced) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	ctx, span := t.tracer.Start(ctx, "llm.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.model", t.next.Name()),
			attribute.String("tutor.session_id", SessionFrom(ctx)),
			attribute.Int("tutor.attempt", AttemptFrom(ctx)),
			attribute.Int("llm.messages", len(req.Messages)),
			attribute.Float64("llm.temperature", req.Temperature),
		),
	)
	defer span.End()

	out, err := t.next.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.response_bytes", len(out)))
	span.SetStatus(codes.Ok, "ok")
	return out, nil
}
