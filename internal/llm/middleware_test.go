package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	llmclient "verbtutor/internal/llm/client"
	"verbtutor/internal/logger"
)

var req = llmclient.Request{
	Messages:    []llmclient.Message{{Role: llmclient.RoleSystem, Text: "sys"}, {Role: llmclient.RoleUser, Text: "hello"}},
	Temperature: 0.7,
}

type tagging struct {
	tag   string
	order *[]string
	next  llmclient.Generator
}

func (t *tagging) Name() string { return t.next.Name() }
func (t *tagging) Close() error { return t.next.Close() }
func (t *tagging) Generate(ctx context.Context, r llmclient.Request) (string, error) {
	*t.order = append(*t.order, t.tag)
	return t.next.Generate(ctx, r)
}

func TestWrapAppliesLeftToRight(t *testing.T) {
	var order []string
	mw := func(tag string) Middleware {
		return func(next llmclient.Generator) llmclient.Generator {
			return &tagging{tag: tag, order: &order, next: next}
		}
	}
	g := Wrap(llmclient.NewScripted(llmclient.Reply("ok")), mw("A"), mw("B"))
	out, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []string{"A", "B"}, order)
}

func TestContextTags(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", SessionFrom(ctx))
	assert.Equal(t, 0, AttemptFrom(ctx))

	ctx = WithAttempt(WithSession(ctx, "s-1"), 3)
	assert.Equal(t, "s-1", SessionFrom(ctx))
	assert.Equal(t, 3, AttemptFrom(ctx))
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	inner := llmclient.NewScripted(llmclient.Reply("ok"))
	g := RateLimit(0, 0)(inner)
	assert.Same(t, inner, g)
}

func TestRateLimitHonoursDeadline(t *testing.T) {
	inner := llmclient.NewScripted(llmclient.Reply("ok"))
	g := RateLimit(0.001, 1)(inner)

	_, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Generate(ctx, req)
	var ge *llmclient.GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, 1, inner.Calls())
}

func TestWithLoggingRecordsRequestAndError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	inner := llmclient.NewScripted(llmclient.Reply("fine"), llmclient.Fail(errors.New("boom")))
	g := WithLogging(logger.FromCore(core))(inner)
	ctx := WithAttempt(WithSession(context.Background(), "s-9"), 1)

	_, err := g.Generate(ctx, req)
	require.NoError(t, err)
	_, err = g.Generate(ctx, req)
	require.Error(t, err)

	assert.Equal(t, 2, logs.FilterMessage("llm request").Len())
	assert.Equal(t, 1, logs.FilterMessage("llm response").Len())
	errs := logs.FilterMessage("llm error").All()
	require.Len(t, errs, 1)
	assert.Equal(t, "s-9", errs[0].ContextMap()["session_id"])
}

func TestWithTracingRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	inner := llmclient.NewScripted(llmclient.Reply("fine"), llmclient.Fail(errors.New("boom")))
	g := WithTracing(tp)(inner)
	ctx := WithAttempt(WithSession(context.Background(), "s-2"), 2)

	_, _ = g.Generate(ctx, req)
	_, _ = g.Generate(ctx, req)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "llm.generate", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("tutor.session_id", "s-2"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("tutor.attempt", 2))
}
