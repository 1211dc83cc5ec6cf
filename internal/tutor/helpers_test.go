package tutor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"verbtutor/internal/contract"
	llmclient "verbtutor/internal/llm/client"
	"verbtutor/internal/logger"
	"verbtutor/internal/transcript"
)

func exercise(verb string) string {
	return fmt.Sprintf("Ela ____ aqui todos os dias.\nShe is here every day. (Subject: she)\nThe missing verb is '%s' (to x).\nPlease type the correct conjugated verb in the blank.", verb)
}

var (
	valid   = exercise("dizer")
	invalid = exercise("comer")
)

type genFunc func(ctx context.Context, req llmclient.Request) (string, error)

func (f genFunc) Name() string { return "func" }
func (f genFunc) Close() error { return nil }
func (f genFunc) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	return f(ctx, req)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = 3
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

func newController(t *testing.T, gen llmclient.Generator, cfg Config, opts ...ControllerOption) *Controller {
	t.Helper()
	c, err := NewController(gen, contract.DefaultPolicy(), cfg, logger.Nop(), opts...)
	require.NoError(t, err)
	return c
}

func newSession(t *testing.T, gen llmclient.Generator, cfg Config) *Session {
	t.Helper()
	return NewSession("test", newController(t, gen, cfg), logger.Nop())
}

// requireAlternates checks the committed-transcript invariants: one leading
// system turn, contiguous indexes, then tutor and learner strictly alternating.
func requireAlternates(t *testing.T, turns []transcript.Turn) {
	t.Helper()
	require.True(t, alternates(turns), "transcript does not alternate: %+v", turns)
}

func alternates(turns []transcript.Turn) bool {
	for i, turn := range turns {
		if turn.Index != i {
			return false
		}
		want := transcript.Learner
		switch {
		case i == 0:
			want = transcript.System
		case i%2 == 1:
			want = transcript.Tutor
		}
		if turn.Speaker != want {
			return false
		}
	}
	return true
}
