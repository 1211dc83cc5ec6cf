// Package llm decorates llmclient.Generator with cross-cutting concerns
// (rate limiting, logging, tracing). Session and attempt tags travel in the
// context so every layer labels the same call the same way.
package llm

import (
	"context"

	llmclient "verbtutor/internal/llm/client"
)

// Middleware decorates a Generator.
type Middleware func(llmclient.Generator) llmclient.Generator

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.Generator, mws ...Middleware) llmclient.Generator {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

type ctxKeySession struct{}
type ctxKeyAttempt struct{}

// WithSession tags ctx with the session id.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, id)
}

// SessionFrom returns the session id stored in ctx, or "unknown".
func SessionFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySession{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// WithAttempt tags ctx with the 1-based retry attempt.
func WithAttempt(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, ctxKeyAttempt{}, n)
}

// AttemptFrom returns the attempt stored in ctx, or 0.
func AttemptFrom(ctx context.Context) int {
	if v, ok := ctx.Value(ctxKeyAttempt{}).(int); ok {
		return v
	}
	return 0
}

func requestBytes(req llmclient.Request) int {
	n := 0
	for _, m := range req.Messages {
		n += len(m.Text)
	}
	return n
}
