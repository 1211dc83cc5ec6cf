// Package presenter is the display boundary over a tutor session. Every
// operation returns a complete View: the input box contents to show and the
// renderable transcript without the system turn.
package presenter

import (
	"context"
	"errors"

	"verbtutor/internal/logger"
	"verbtutor/internal/transcript"
	"verbtutor/internal/tutor"
)

const (
	NoticeNoExercise = "No exercise available right now. Use retry to try again."
	NoticeBusy       = "Still working on the previous answer."
	NoticeRestarted  = "The session was restarted while that answer was being checked."
)

// Line is one renderable transcript entry.
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type View struct {
	SessionID string `json:"session_id"`
	// Input is what the input box shows after the operation: empty once an
	// answer is consumed, the original text when it was not.
	Input   string `json:"input"`
	Turns   []Line `json:"turns"`
	Notice  string `json:"notice,omitempty"`
	Pending bool   `json:"pending,omitempty"`
}

// Session is the part of *tutor.Session the presenter drives.
type Session interface {
	ID() string
	Reset(ctx context.Context) (transcript.Turn, error)
	Submit(ctx context.Context, text string) (transcript.Turn, error)
	Retry(ctx context.Context) (transcript.Turn, error)
	Restore(tr *transcript.Transcript) error
	Turns() []transcript.Turn
	Pending() bool
}

var _ Session = (*tutor.Session)(nil)

type Presenter struct {
	s   Session
	log *logger.Logger
}

func New(s Session, log *logger.Logger) *Presenter {
	if log == nil {
		log = logger.Nop()
	}
	return &Presenter{s: s, log: log.With("session_id", s.ID())}
}

// View renders the current state without generating anything.
func (p *Presenter) View() View {
	return p.view("", "")
}

// OnLearnerSubmit submits text. Blank text is a no-op. A session still waiting
// for its tutor turn retries that turn first and leaves text in the input box.
func (p *Presenter) OnLearnerSubmit(ctx context.Context, text string) View {
	_, err := p.s.Submit(ctx, text)
	switch {
	case err == nil:
		return p.view("", "")
	case errors.Is(err, tutor.ErrEmptyInput):
		return p.view("", "")
	case errors.Is(err, tutor.ErrNotStarted):
		if _, err := p.s.Reset(ctx); err != nil {
			return p.view(text, p.notice(err))
		}
		return p.view(text, "")
	case errors.Is(err, tutor.ErrTurnPending):
		if _, err := p.s.Retry(ctx); err != nil {
			return p.view(text, p.notice(err))
		}
		return p.view(text, "")
	case errors.Is(err, tutor.ErrSessionBusy):
		return p.view(text, NoticeBusy)
	default:
		return p.view("", p.notice(err))
	}
}

// OnRestart discards the transcript and starts a new one.
func (p *Presenter) OnRestart(ctx context.Context) View {
	if _, err := p.s.Reset(ctx); err != nil {
		return p.view("", p.notice(err))
	}
	return p.view("", "")
}

// OnRetry regenerates a pending tutor turn.
func (p *Presenter) OnRetry(ctx context.Context) View {
	_, err := p.s.Retry(ctx)
	switch {
	case err == nil, errors.Is(err, tutor.ErrNothingPending):
		return p.view("", "")
	case errors.Is(err, tutor.ErrNotStarted):
		return p.OnRestart(ctx)
	default:
		return p.view("", p.notice(err))
	}
}

func (p *Presenter) notice(err error) string {
	switch {
	case errors.Is(err, tutor.ErrSessionBusy):
		return NoticeBusy
	case errors.Is(err, tutor.ErrStaleGeneration):
		return NoticeRestarted
	case tutor.IsFailure(err):
		p.log.Info("no exercise accepted", "error", err)
		return NoticeNoExercise
	}
	p.log.Warn("unexpected session error", "error", err)
	return NoticeNoExercise
}

func (p *Presenter) view(input, notice string) View {
	return View{
		SessionID: p.s.ID(),
		Input:     input,
		Turns:     Render(p.s.Turns()),
		Notice:    notice,
		Pending:   p.s.Pending(),
	}
}

// Render drops the system turn and keeps the rest in order.
func Render(turns []transcript.Turn) []Line {
	out := make([]Line, 0, len(turns))
	for _, t := range turns {
		if t.Speaker == transcript.System {
			continue
		}
		out = append(out, Line{Speaker: string(t.Speaker), Text: t.Text})
	}
	return out
}
