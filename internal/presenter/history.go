package presenter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"verbtutor/internal/transcript"
	"verbtutor/internal/tutor"
)

// Record is the flat role/content history shape.
type Record struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Pair is the paired history shape: learner text then tutor reply, either of
// which may be null.
type Pair [2]*string

// Reconcile decodes a history in either the paired shape
// ([["answer","reply"], [null,"reply"]]) or the record shape
// ([{"role":"user","content":"..."}]) into canonical entries. System records,
// blank texts and the session trigger are dropped.
func Reconcile(raw []byte) ([]transcript.Entry, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("presenter: history must be a JSON array: %w", err)
	}
	out := make([]transcript.Entry, 0, len(items)*2)
	for i, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 {
			continue
		}
		var err error
		switch trimmed[0] {
		case '[':
			out, err = appendPair(out, trimmed)
		case '{':
			out, err = appendRecord(out, trimmed)
		default:
			err = errors.New("expected a pair or a record")
		}
		if err != nil {
			return nil, fmt.Errorf("presenter: history item %d: %w", i, err)
		}
	}
	return out, nil
}

func appendPair(out []transcript.Entry, raw []byte) ([]transcript.Entry, error) {
	var p []*string
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if len(p) != 2 {
		return nil, fmt.Errorf("pair has %d members", len(p))
	}
	out = appendEntry(out, transcript.Learner, p[0])
	return appendEntry(out, transcript.Tutor, p[1]), nil
}

func appendRecord(out []transcript.Entry, raw []byte) ([]transcript.Entry, error) {
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(r.Role)) {
	case "user", "learner", "human":
		return appendEntry(out, transcript.Learner, &r.Content), nil
	case "assistant", "tutor", "bot", "model":
		return appendEntry(out, transcript.Tutor, &r.Content), nil
	case "system":
		return out, nil
	default:
		return nil, fmt.Errorf("unknown role %q", r.Role)
	}
}

func appendEntry(out []transcript.Entry, sp transcript.Speaker, text *string) []transcript.Entry {
	if text == nil {
		return out
	}
	t := strings.TrimSpace(*text)
	if t == "" || (sp == transcript.Learner && t == tutor.Trigger) {
		return out
	}
	return append(out, transcript.Entry{Speaker: sp, Text: t})
}

// Records exports turns in the record shape, without the system turn.
func Records(turns []transcript.Turn) []Record {
	out := make([]Record, 0, len(turns))
	for _, t := range turns {
		switch t.Speaker {
		case transcript.Learner:
			out = append(out, Record{Role: "user", Content: t.Text})
		case transcript.Tutor:
			out = append(out, Record{Role: "assistant", Content: t.Text})
		}
	}
	return out
}

// Pairs exports turns in the paired shape. The opening exercise pairs with a
// null answer, and a pending answer pairs with a null reply.
func Pairs(turns []transcript.Turn) []Pair {
	var out []Pair
	for _, t := range turns {
		text := t.Text
		switch t.Speaker {
		case transcript.Learner:
			out = append(out, Pair{&text, nil})
		case transcript.Tutor:
			if n := len(out); n > 0 && out[n-1][0] != nil && out[n-1][1] == nil {
				out[n-1][1] = &text
			} else {
				out = append(out, Pair{nil, &text})
			}
		}
	}
	return out
}

// Restore rebuilds the session transcript from a stored history in either
// shape under the given system instruction.
func (p *Presenter) Restore(system string, raw []byte) (View, error) {
	entries, err := Reconcile(raw)
	if err != nil {
		return View{}, err
	}
	tr, err := transcript.Rebuild(system, entries)
	if err != nil {
		return View{}, err
	}
	if err := p.s.Restore(tr); err != nil {
		return View{}, err
	}
	return p.view("", ""), nil
}
