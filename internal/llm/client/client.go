package llmclient

import (
	"context"
	"strings"
)

// Role tags a message in a generation request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role Role
	Text string
}

// Request is an ordered role-tagged message list plus sampling parameters.
type Request struct {
	Messages        []Message
	MaxOutputTokens int
	Temperature     float64
}

// Generator is the only boundary to a text-generation backend. Implementations
// return plain text and wrap failures in *GenerationError.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	Close() error
}

// splitSystem joins every system message into one instruction block and
// returns the remaining conversation in order. Providers that take the system
// prompt out of band use it.
func splitSystem(msgs []Message) (string, []Message) {
	var sys []string
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			sys = append(sys, m.Text)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(sys, "\n\n"), rest
}

// leadText opens a conversation that would otherwise start with an assistant
// turn; Gemini and Claude require the first turn to come from the user.
const leadText = "Begin."

func leadWithUser(msgs []Message) []Message {
	if len(msgs) > 0 && msgs[0].Role != RoleAssistant {
		return msgs
	}
	return append([]Message{{Role: RoleUser, Text: leadText}}, msgs...)
}
