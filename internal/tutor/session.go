package tutor

import (
	"context"
	"errors"
	"strings"
	"sync"

	"verbtutor/internal/llm"
	llmclient "verbtutor/internal/llm/client"
	"verbtutor/internal/logger"
	"verbtutor/internal/transcript"
)

var (
	ErrNotStarted     = errors.New("tutor: session not started")
	ErrNothingPending = errors.New("tutor: no tutor turn pending")
)

// Session owns one transcript. At most one generation round trip is in flight
// at a time; a second request is rejected with ErrSessionBusy. Reset and
// Restore supersede an in-flight round trip, whose result is then discarded.
type Session struct {
	id   string
	ctrl *Controller
	log  *logger.Logger

	mu    sync.Mutex
	tr    *transcript.Transcript
	epoch uint64
	busy  bool
}

func NewSession(id string, ctrl *Controller, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{id: id, ctrl: ctrl, log: log.With("session_id", id)}
}

func (s *Session) ID() string { return s.id }

// Start begins a new transcript and generates the opening exercise. On
// failure the transcript holds only the system turn and the error is a
// *SessionStartFailure.
func (s *Session) Start(ctx context.Context) (transcript.Turn, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return transcript.Turn{}, ErrSessionBusy
	}
	return s.bootstrapLocked(ctx)
}

// Reset discards the transcript and starts over, superseding any round trip
// in flight.
func (s *Session) Reset(ctx context.Context) (transcript.Turn, error) {
	s.mu.Lock()
	if s.busy {
		s.log.Info("reset supersedes in-flight generation", "epoch", s.epoch)
	}
	return s.bootstrapLocked(ctx)
}

// Submit commits the learner answer as given and generates the next tutor
// turn. Blank input returns ErrEmptyInput without touching the transcript.
func (s *Session) Submit(ctx context.Context, text string) (transcript.Turn, error) {
	if strings.TrimSpace(text) == "" {
		return transcript.Turn{}, ErrEmptyInput
	}
	s.mu.Lock()
	switch {
	case s.busy:
		s.mu.Unlock()
		return transcript.Turn{}, ErrSessionBusy
	case s.tr == nil:
		s.mu.Unlock()
		return transcript.Turn{}, ErrNotStarted
	case s.tr.AwaitingTutor():
		s.mu.Unlock()
		return transcript.Turn{}, ErrTurnPending
	}
	s.mustAppend(transcript.Learner, text)
	return s.runLocked(ctx, s.messagesLocked(), turnFailure)
}

// Retry regenerates the tutor turn for a pending session: one whose start
// failed, or whose last learner answer got no reply.
func (s *Session) Retry(ctx context.Context) (transcript.Turn, error) {
	s.mu.Lock()
	switch {
	case s.busy:
		s.mu.Unlock()
		return transcript.Turn{}, ErrSessionBusy
	case s.tr == nil:
		s.mu.Unlock()
		return transcript.Turn{}, ErrNotStarted
	case !s.tr.AwaitingTutor():
		s.mu.Unlock()
		return transcript.Turn{}, ErrNothingPending
	}
	if s.tr.IsInitial() {
		return s.runLocked(ctx, s.bootstrapMessagesLocked(), startFailure)
	}
	return s.runLocked(ctx, s.messagesLocked(), turnFailure)
}

// Restore installs tr as the session transcript, superseding any round trip
// in flight.
func (s *Session) Restore(tr *transcript.Transcript) error {
	if tr == nil || tr.Len() == 0 {
		return errors.New("tutor: restore needs a transcript with a system turn")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.busy = false
	s.tr = tr
	s.log.Info("transcript restored", "turns", tr.Len(), "epoch", s.epoch)
	return nil
}

// Turns returns a copy of the committed transcript.
func (s *Session) Turns() []transcript.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr == nil {
		return nil
	}
	return s.tr.Turns()
}

// Pending reports whether the session waits for a tutor turn that failed to
// generate.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.busy && s.tr != nil && s.tr.AwaitingTutor()
}

func (s *Session) inFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) bootstrapLocked(ctx context.Context) (transcript.Turn, error) {
	s.epoch++
	s.busy = false
	s.tr = transcript.New()
	s.mustAppend(transcript.System, s.ctrl.SystemPrompt())
	return s.runLocked(ctx, s.bootstrapMessagesLocked(), startFailure)
}

type failureKind int

const (
	startFailure failureKind = iota
	turnFailure
)

// runLocked is entered with s.mu held and returns with it released. The lock
// is not held across the generation call.
func (s *Session) runLocked(ctx context.Context, msgs []llmclient.Message, kind failureKind) (transcript.Turn, error) {
	epoch := s.epoch
	s.busy = true
	s.mu.Unlock()

	cand, err := s.ctrl.Run(llm.WithSession(ctx, s.id), msgs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		s.log.Info("discarding stale generation", "epoch", epoch, "current_epoch", s.epoch)
		return transcript.Turn{}, ErrStaleGeneration
	}
	s.busy = false
	if err != nil {
		s.log.Warn("no exercise accepted", "error", err)
		if kind == startFailure {
			return transcript.Turn{}, &SessionStartFailure{Err: err}
		}
		return transcript.Turn{}, &SessionTurnFailure{Err: err}
	}
	turn := s.mustAppend(transcript.Tutor, cand.Text)
	s.log.Info("tutor turn committed", "index", turn.Index, "attempt", cand.Attempt)
	return turn, nil
}

// mustAppend treats an alternation failure as a programming error.
func (s *Session) mustAppend(sp transcript.Speaker, text string) transcript.Turn {
	turn, err := s.tr.Append(sp, text)
	if err != nil {
		panic(err)
	}
	return turn
}

func (s *Session) messagesLocked() []llmclient.Message {
	out := make([]llmclient.Message, 0, s.tr.Len()+1)
	for e := range s.tr.Context() {
		out = append(out, llmclient.Message{Role: roleOf(e.Speaker), Text: e.Text})
	}
	return out
}

// bootstrapMessagesLocked is the system turn plus the uncommitted trigger.
func (s *Session) bootstrapMessagesLocked() []llmclient.Message {
	return append(s.messagesLocked(), llmclient.Message{Role: llmclient.RoleUser, Text: Trigger})
}

func roleOf(sp transcript.Speaker) llmclient.Role {
	switch sp {
	case transcript.System:
		return llmclient.RoleSystem
	case transcript.Tutor:
		return llmclient.RoleAssistant
	default:
		return llmclient.RoleUser
	}
}
