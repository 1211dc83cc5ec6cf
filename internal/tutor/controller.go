package tutor

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"verbtutor/internal/contract"
	"verbtutor/internal/llm"
	llmclient "verbtutor/internal/llm/client"
	"verbtutor/internal/logger"
)

// State is a Retry Controller state.
type State string

const (
	StateRequesting State = "REQUESTING"
	StateValidating State = "VALIDATING"
	StateAccepted   State = "ACCEPTED"
	StateCorrecting State = "CORRECTING"
	StateExhausted  State = "EXHAUSTED"
)

// Candidate is one generator output and its verdict. It lives only for the
// duration of a Run.
type Candidate struct {
	Text       string
	Violations contract.Violations
	Attempt    int
}

// Transition is reported to an Observer on every state change.
type Transition struct {
	Attempt    int
	To         State
	Violations contract.Violations
	Err        error
}

type Observer func(ctx context.Context, t Transition)

type ControllerOption func(*Controller)

// WithObserver registers fn for every state transition.
func WithObserver(fn Observer) ControllerOption {
	return func(c *Controller) { c.observe = fn }
}

// Controller drives generate → validate → correct until a candidate is
// accepted or the budget runs out. It holds no per-session state and may be
// shared by any number of sessions.
type Controller struct {
	gen       llmclient.Generator
	validator *contract.Validator
	cfg       Config
	system    string
	log       *logger.Logger
	observe   Observer
	tracer    trace.Tracer
}

// NewController compiles policy with cfg.AllowedVerbs as the allowed set.
func NewController(gen llmclient.Generator, policy contract.Policy, cfg Config, log *logger.Logger, opts ...ControllerOption) (*Controller, error) {
	if gen == nil {
		return nil, errors.New("tutor: generator is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v, err := contract.New(policy.WithAllowedVerbs(cfg.AllowedVerbs))
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &Controller{
		gen:       gen,
		validator: v,
		cfg:       cfg,
		system:    SystemPrompt(v.AllowedVerbs()),
		log:       log.With("policy_version", v.Version()),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// SystemPrompt is the instruction contract every session starts with.
func (c *Controller) SystemPrompt() string { return c.system }

// Run returns the first accepted candidate. Rejected candidates and corrective
// instructions are appended to a private copy of base, never to base itself.
// On exhaustion it returns *ExhaustedError; if ctx ends first, ctx.Err().
func (c *Controller) Run(ctx context.Context, base []llmclient.Message) (Candidate, error) {
	if c.tracer != nil {
		return c.tracedRun(ctx, base)
	}
	return c.run(ctx, base)
}

func (c *Controller) run(ctx context.Context, base []llmclient.Message) (Candidate, error) {
	msgs := append([]llmclient.Message(nil), base...)
	log := c.log.With("session_id", llm.SessionFrom(ctx))
	var (
		lastViolations contract.Violations
		lastErr        error
	)
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Candidate{}, err
		}
		c.transition(ctx, log, Transition{Attempt: attempt, To: StateRequesting})
		text, err := c.generate(ctx, attempt, msgs)
		if err != nil {
			if ctx.Err() != nil {
				return Candidate{}, ctx.Err()
			}
			log.Warn("generation attempt failed", "attempt", attempt, "error", err)
			lastErr, lastViolations = err, nil
			continue
		}

		c.transition(ctx, log, Transition{Attempt: attempt, To: StateValidating})
		vs := c.validator.Validate(text)
		if vs.OK() {
			c.transition(ctx, log, Transition{Attempt: attempt, To: StateAccepted})
			return Candidate{Text: text, Attempt: attempt}, nil
		}
		log.Info("candidate rejected", "attempt", attempt, "violations", vs.String())
		lastErr, lastViolations = nil, vs
		if attempt == c.cfg.MaxRetries {
			break
		}
		c.transition(ctx, log, Transition{Attempt: attempt, To: StateCorrecting, Violations: vs})
		msgs = append(msgs,
			llmclient.Message{Role: llmclient.RoleAssistant, Text: text},
			llmclient.Message{Role: llmclient.RoleUser, Text: correction(vs)},
		)
	}
	exhausted := &ExhaustedError{Attempts: c.cfg.MaxRetries, Violations: lastViolations, LastErr: lastErr}
	c.transition(ctx, log, Transition{Attempt: c.cfg.MaxRetries, To: StateExhausted, Violations: lastViolations, Err: exhausted})
	return Candidate{}, exhausted
}

// generate makes one time-bounded call. The deadline holds even for a
// generator that ignores its context.
func (c *Controller) generate(ctx context.Context, attempt int, msgs []llmclient.Message) (string, error) {
	actx, cancel := context.WithTimeout(llm.WithAttempt(ctx, attempt), c.cfg.RequestTimeout)
	defer cancel()
	req := llmclient.Request{
		Messages:        msgs,
		MaxOutputTokens: c.cfg.MaxOutputTokens,
		Temperature:     c.cfg.temperature(attempt),
	}
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := c.gen.Generate(actx, req)
		done <- result{text, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return "", llmclient.Wrap(c.gen.Name(), r.err)
		}
		text := strings.TrimSpace(r.text)
		if text == "" {
			return "", llmclient.Wrap(c.gen.Name(), llmclient.ErrEmptyResponse)
		}
		return text, nil
	case <-actx.Done():
		return "", llmclient.Wrap(c.gen.Name(), actx.Err())
	}
}

func (c *Controller) transition(ctx context.Context, log *logger.Logger, t Transition) {
	log.Debug("retry controller", "state", string(t.To), "attempt", t.Attempt)
	if c.observe != nil {
		c.observe(ctx, t)
	}
}
