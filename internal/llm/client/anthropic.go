package llmclient

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// MessagesClient is the subset of the Anthropic SDK used by AnthropicClient.
// It is satisfied by *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient calls the Claude Messages API.
type AnthropicClient struct {
	msg   MessagesClient
	model string
}

// defaultAnthropicMaxTokens is used when a request leaves the cap unset; the
// Messages API requires one.
const defaultAnthropicMaxTokens = 1024

func NewAnthropicClient(msg MessagesClient, model string) (*AnthropicClient, error) {
	if msg == nil {
		return nil, errors.New("llmclient: anthropic messages service is required")
	}
	if model == "" {
		return nil, errors.New("llmclient: anthropic model is required")
	}
	return &AnthropicClient{msg: msg, model: model}, nil
}

func NewAnthropicFromAPIKey(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("llmclient: ANTHROPIC_API_KEY is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicClient(&ac.Messages, model)
}

func (a *AnthropicClient) Name() string { return "Anthropic:" + a.model }
func (a *AnthropicClient) Close() error { return nil }

func (a *AnthropicClient) Generate(ctx context.Context, req Request) (string, error) {
	system, rest := splitSystem(req.Messages)
	rest = leadWithUser(rest)
	msgs := make([]sdk.MessageParam, 0, len(rest))
	for _, m := range rest {
		if m.Role == RoleAssistant {
			msgs = append(msgs, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Text)))
			continue
		}
		msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(m.Text)))
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := sdk.MessageNewParams{
		MaxTokens:   int64(maxTokens),
		Messages:    msgs,
		Model:       sdk.Model(a.model),
		Temperature: sdk.Float(clampAnthropicTemperature(req.Temperature)),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	resp, err := a.msg.New(ctx, params)
	if err != nil {
		return "", Wrap(a.Name(), err)
	}
	if resp == nil {
		return "", Wrap(a.Name(), ErrEmptyResponse)
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return emptyCheck(a.Name(), b.String())
}

// Claude accepts temperatures in [0, 1].
func clampAnthropicTemperature(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}
