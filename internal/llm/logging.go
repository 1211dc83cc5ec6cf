package llm

import (
	"context"
	"time"

	llmclient "verbtutor/internal/llm/client"
	"verbtutor/internal/logger"
)

// WithLogging logs request size, latency and errors. A nil logger disables it.
func WithLogging(log *logger.Logger) Middleware {
	return func(next llmclient.Generator) llmclient.Generator {
		if log == nil {
			return next
		}
		return &logging{next: next, log: log}
	}
}

type logging struct {
	next llmclient.Generator
	log  *logger.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	start := time.Now()
	log := l.log.With("session_id", SessionFrom(ctx), "attempt", AttemptFrom(ctx), "model", l.next.Name())
	log.Debug("llm request",
		"messages", len(req.Messages),
		"bytes", requestBytes(req),
		"temperature", req.Temperature,
		"max_output_tokens", req.MaxOutputTokens,
	)
	out, err := l.next.Generate(ctx, req)
	if err != nil {
		log.Warn("llm error", "error", err, "elapsed", time.Since(start))
		return "", err
	}
	log.Debug("llm response", "bytes", len(out), "elapsed", time.Since(start))
	return out, nil
}
