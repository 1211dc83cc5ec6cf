package llm

import (
	"context"

	"golang.org/x/time/rate"

	llmclient "verbtutor/internal/llm/client"
)

// RateLimit throttles Generate to rps with the given burst. rps <= 0
// disables the limiter.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.Generator) llmclient.Generator {
		if rps <= 0 {
			return next
		}
		if burst <= 0 {
			burst = 1
		}
		return &rateLimited{next: next, lim: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next llmclient.Generator
	lim  *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }

func (c *rateLimited) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	if err := c.lim.Wait(ctx); err != nil {
		return "", llmclient.Wrap(c.next.Name(), err)
	}
	return c.next.Generate(ctx, req)
}
