package llmclient

import (
	"context"
	"errors"

	genai "google.golang.org/genai"
)

// ContentGenerator is the subset of the genai SDK used by GeminiClient. It is
// satisfied by *genai.Models.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	models ContentGenerator
	model  string
}

func NewGeminiClient(models ContentGenerator, model string) (*GeminiClient, error) {
	if models == nil {
		return nil, errors.New("llmclient: gemini models service is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{models: models, model: model}, nil
}

func NewGeminiFromAPIKey(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("llmclient: GEMINI_API_KEY is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return NewGeminiClient(cli.Models, model)
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	system, rest := splitSystem(req.Messages)
	rest = leadWithUser(rest)
	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", Wrap(g.Name(), err)
	}
	if resp == nil {
		return "", Wrap(g.Name(), ErrEmptyResponse)
	}
	return emptyCheck(g.Name(), resp.Text())
}
