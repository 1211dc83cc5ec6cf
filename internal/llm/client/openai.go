package llmclient

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ChatCompletions is the subset of the OpenAI SDK used by OpenAIClient. It is
// satisfied by *openai.ChatCompletionService.
type ChatCompletions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIClient calls the Chat Completions API.
type OpenAIClient struct {
	chat  ChatCompletions
	model string
	label string
}

func NewOpenAIClient(chat ChatCompletions, model string) (*OpenAIClient, error) {
	if chat == nil {
		return nil, errors.New("llmclient: openai chat service is required")
	}
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	return &OpenAIClient{chat: chat, model: model, label: "OpenAI"}, nil
}

// NewOpenAIFromAPIKey builds a client over the default SDK HTTP transport.
func NewOpenAIFromAPIKey(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("llmclient: OPENAI_API_KEY is required")
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return NewOpenAIClient(&c.Chat.Completions, model)
}

// groqBaseURL serves the OpenAI-compatible Groq API.
const groqBaseURL = "https://api.groq.com/openai/v1/"

// NewGroqFromAPIKey points the OpenAI SDK at Groq.
func NewGroqFromAPIKey(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("llmclient: GROQ_API_KEY is required")
	}
	c := openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(groqBaseURL))
	g, err := NewOpenAIClient(&c.Chat.Completions, model)
	if err != nil {
		return nil, err
	}
	g.label = "Groq"
	return g, nil
}

func (c *OpenAIClient) Name() string { return c.label + ":" + c.model }
func (c *OpenAIClient) Close() error { return nil }

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Text))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Text))
		default:
			msgs = append(msgs, openai.UserMessage(m.Text))
		}
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxOutputTokens))
	}
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return "", Wrap(c.Name(), err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", Wrap(c.Name(), ErrEmptyResponse)
	}
	return emptyCheck(c.Name(), resp.Choices[0].Message.Content)
}
