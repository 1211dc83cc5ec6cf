package tutor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"verbtutor/internal/contract"
	"verbtutor/internal/llm"
	llmclient "verbtutor/internal/llm/client"
)

func TestTracedRunRecordsTransitions(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	gen := llmclient.NewScripted(llmclient.Reply(invalid), llmclient.Reply(valid))
	c := newController(t, gen, testConfig(), WithTracing(tp), WithObserver(SpanEvents))

	_, err := c.Run(llm.WithSession(context.Background(), "s-9"), base)
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "tutor.run", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
	assert.Contains(t, span.Attributes(), attribute.String("tutor.session_id", "s-9"))
	assert.Contains(t, span.Attributes(), attribute.Int("tutor.attempts", 2))

	var states []string
	for _, ev := range span.Events() {
		require.Equal(t, "tutor.transition", ev.Name)
		for _, kv := range ev.Attributes {
			if kv.Key == "tutor.state" {
				states = append(states, kv.Value.AsString())
			}
			if kv.Key == "tutor.violations" {
				assert.Equal(t, []string{string(contract.KindDisallowedVerb)}, kv.Value.AsStringSlice())
			}
		}
	}
	assert.Equal(t, []string{
		string(StateRequesting), string(StateValidating), string(StateCorrecting),
		string(StateRequesting), string(StateValidating), string(StateAccepted),
	}, states)
}

func TestTracedRunMarksExhaustion(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	c := newController(t, llmclient.NewScripted(llmclient.Reply(invalid)), testConfig(), WithTracing(tp))

	_, err := c.Run(context.Background(), base)
	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
