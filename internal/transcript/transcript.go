// Package transcript holds the canonical ordered record of one tutoring
// session. External history shapes are converted to and from Entry values at
// the presentation boundary; nothing else in the module reads them.
package transcript

import (
	"fmt"
	"iter"
)

// Speaker attributes a turn.
type Speaker string

const (
	System  Speaker = "system"
	Learner Speaker = "learner"
	Tutor   Speaker = "tutor"
)

func (s Speaker) Valid() bool {
	switch s {
	case System, Learner, Tutor:
		return true
	}
	return false
}

// Turn is one committed exchange unit. Turns are values; the transcript never
// hands out pointers into its storage.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
	Index   int     `json:"sequence_index"`
}

// Entry is the (speaker, text) pair used to build generation requests and
// renderable views.
type Entry struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// AlternationError reports an append that would break the ordering rules:
// exactly one leading system turn, then tutor and learner strictly alternating
// starting with the tutor.
type AlternationError struct {
	Prev Speaker // empty when the transcript is empty
	Next Speaker
}

func (e *AlternationError) Error() string {
	prev := string(e.Prev)
	if prev == "" {
		prev = "<empty>"
	}
	return fmt.Sprintf("transcript: cannot append %s turn after %s", e.Next, prev)
}

// Transcript is not safe for concurrent use; the owning session serializes
// access.
type Transcript struct {
	turns []Turn
}

func New() *Transcript {
	return &Transcript{turns: make([]Turn, 0, 16)}
}

// Append commits a turn and assigns the next contiguous sequence index.
func (t *Transcript) Append(speaker Speaker, text string) (Turn, error) {
	if !speaker.Valid() {
		return Turn{}, fmt.Errorf("transcript: unknown speaker %q", speaker)
	}
	if !t.CanAppend(speaker) {
		return Turn{}, &AlternationError{Prev: t.lastSpeaker(), Next: speaker}
	}
	turn := Turn{Speaker: speaker, Text: text, Index: len(t.turns)}
	t.turns = append(t.turns, turn)
	return turn, nil
}

// CanAppend reports whether Append(speaker, ...) would succeed.
func (t *Transcript) CanAppend(speaker Speaker) bool {
	switch t.lastSpeaker() {
	case "":
		return speaker == System
	case System, Learner:
		return speaker == Tutor
	case Tutor:
		return speaker == Learner
	}
	return false
}

func (t *Transcript) lastSpeaker() Speaker {
	if len(t.turns) == 0 {
		return ""
	}
	return t.turns[len(t.turns)-1].Speaker
}

// Context yields the committed turns in order. The sequence is read-only and
// may be ranged over any number of times.
func (t *Transcript) Context() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, turn := range t.turns {
			if !yield(Entry{Speaker: turn.Speaker, Text: turn.Text}) {
				return
			}
		}
	}
}

// IsInitial is true while no tutor or learner turn exists.
func (t *Transcript) IsInitial() bool {
	for _, turn := range t.turns {
		if turn.Speaker != System {
			return false
		}
	}
	return true
}

// AwaitingTutor is true when the next committable turn is a tutor turn that
// has not been produced yet: only the system turn exists, or the learner
// answered and no reply was committed.
func (t *Transcript) AwaitingTutor() bool {
	last := t.lastSpeaker()
	return last == System || last == Learner
}

func (t *Transcript) Len() int { return len(t.turns) }

// Last returns the most recent turn.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Turns returns a copy of the committed turns.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Rebuild validates a system instruction plus reconciled entries into a fresh
// transcript. Entries attributed to the system speaker are rejected; the system
// turn is always the one given here.
func Rebuild(system string, entries []Entry) (*Transcript, error) {
	t := New()
	if _, err := t.Append(System, system); err != nil {
		return nil, err
	}
	for i, e := range entries {
		if _, err := t.Append(e.Speaker, e.Text); err != nil {
			return nil, fmt.Errorf("transcript: entry %d: %w", i, err)
		}
	}
	return t, nil
}
