package llmclient

import (
	"context"
	"sync"
	"time"
)

// Step is one scripted generator outcome.
type Step struct {
	Text  string
	Err   error
	Delay time.Duration
}

func Reply(text string) Step { return Step{Text: text} }
func Fail(err error) Step    { return Step{Err: err} }

// Scripted replays steps in order for offline runs and tests. Once the script
// is used up, Fallback decides the outcome, or the last step repeats.
type Scripted struct {
	Fallback func(req Request) Step

	name  string
	mu    sync.Mutex
	steps []Step
	reqs  []Request
}

func NewScripted(steps ...Step) *Scripted {
	return &Scripted{name: "Fake:scripted", steps: steps}
}

func (s *Scripted) Name() string { return s.name }
func (s *Scripted) Close() error { return nil }

func (s *Scripted) Generate(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	idx := len(s.reqs)
	s.reqs = append(s.reqs, Request{
		Messages:        append([]Message(nil), req.Messages...),
		MaxOutputTokens: req.MaxOutputTokens,
		Temperature:     req.Temperature,
	})
	var step Step
	switch {
	case idx < len(s.steps):
		step = s.steps[idx]
	case s.Fallback != nil:
		step = s.Fallback(req)
	case len(s.steps) > 0:
		step = s.steps[len(s.steps)-1]
	default:
		step = Step{Err: ErrEmptyResponse}
	}
	s.mu.Unlock()

	if step.Delay > 0 {
		t := time.NewTimer(step.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", Wrap(s.name, ctx.Err())
		case <-t.C:
		}
	}
	if step.Err != nil {
		return "", Wrap(s.name, step.Err)
	}
	return emptyCheck(s.name, step.Text)
}

// Requests returns a copy of every request received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.reqs...)
}

func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

var offlineExercises = []string{
	"Eu ____ ao mercado ontem.\nI went to the market yesterday. (Subject: I)\nThe missing verb is 'ir' (to go).\nPlease type the correct conjugated verb in the blank.",
	"Nós ____ muitos amigos no Brasil.\nWe have many friends in Brazil. (Subject: we)\nThe missing verb is 'ter' (to have).\nPlease type the correct conjugated verb in the blank.",
	"Ela ____ a verdade sempre.\nShe always tells the truth. (Subject: she)\nThe missing verb is 'dizer' (to say).\nPlease type the correct conjugated verb in the blank.",
	"Vocês ____ o filme ontem?\nDid you all see the movie yesterday? (Subject: you all)\nThe missing verb is 'ver' (to see).\nPlease type the correct conjugated verb in the blank.",
}

// NewOffline returns a generator that cycles through canned exercises. It
// never grades; it lets the tutor run without network access.
func NewOffline() *Scripted {
	s := &Scripted{name: "Fake:offline"}
	var n int
	s.Fallback = func(req Request) Step {
		text := offlineExercises[n%len(offlineExercises)]
		n++
		if len(req.Messages) > 2 {
			text = "Answer received.\n\n" + text
		}
		return Reply(text)
	}
	return s
}
