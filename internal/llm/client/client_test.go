package llmclient

import (
	"context"
	"errors"
	"testing"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"
)

var conversation = Request{
	Messages: []Message{
		{Role: RoleSystem, Text: "be a tutor"},
		{Role: RoleUser, Text: "start"},
		{Role: RoleAssistant, Text: "Eu ____ aqui."},
		{Role: RoleUser, Text: "estou"},
	},
	MaxOutputTokens: 500,
	Temperature:     0.7,
}

type fakeChat struct {
	got  openai.ChatCompletionNewParams
	resp *openai.ChatCompletion
	err  error
}

func (f *fakeChat) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.got = body
	return f.resp, f.err
}

func TestOpenAIGenerateMapsRolesAndParams(t *testing.T) {
	chat := &fakeChat{resp: &openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Content: "Nós ____ amigos."}},
	}}}
	c, err := NewOpenAIClient(chat, "")
	require.NoError(t, err)
	assert.Equal(t, "OpenAI:gpt-4o", c.Name())

	out, err := c.Generate(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "Nós ____ amigos.", out)

	require.Len(t, chat.got.Messages, 4)
	assert.NotNil(t, chat.got.Messages[0].OfSystem)
	assert.NotNil(t, chat.got.Messages[1].OfUser)
	assert.NotNil(t, chat.got.Messages[2].OfAssistant)
	assert.NotNil(t, chat.got.Messages[3].OfUser)
	assert.Equal(t, int64(500), chat.got.MaxTokens.Value)
	assert.InDelta(t, 0.7, chat.got.Temperature.Value, 1e-9)
	assert.Equal(t, "gpt-4o", string(chat.got.Model))
}

func TestOpenAIGenerateErrors(t *testing.T) {
	c, err := NewOpenAIClient(&fakeChat{err: errors.New("boom")}, "gpt-4o")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), conversation)
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, KindTransport, ge.Kind)

	c, _ = NewOpenAIClient(&fakeChat{resp: &openai.ChatCompletion{}}, "gpt-4o")
	_, err = c.Generate(context.Background(), conversation)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	c, _ = NewOpenAIClient(&fakeChat{resp: &openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Content: "  \n"}}}}}, "gpt-4o")
	_, err = c.Generate(context.Background(), conversation)
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, KindEmpty, ge.Kind)
}

type fakeModels struct {
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.contents, f.cfg = contents, cfg
	return f.resp, f.err
}

func TestGeminiGenerateMovesSystemOutOfBand(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: genai.NewContentFromText("Eles ____ felizes.", genai.RoleModel)},
	}}}
	g, err := NewGeminiClient(models, "gemini-test")
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "Eles ____ felizes.", out)

	require.Len(t, models.contents, 3)
	assert.Equal(t, "user", models.contents[0].Role)
	assert.Equal(t, "model", models.contents[1].Role)
	assert.Equal(t, "user", models.contents[2].Role)
	require.NotNil(t, models.cfg.SystemInstruction)
	assert.Equal(t, "be a tutor", models.cfg.SystemInstruction.Parts[0].Text)
	assert.Equal(t, int32(500), models.cfg.MaxOutputTokens)
	assert.InDelta(t, 0.7, float64(*models.cfg.Temperature), 1e-6)
}

func TestGeminiTimeoutIsClassified(t *testing.T) {
	g, _ := NewGeminiClient(&fakeModels{err: context.DeadlineExceeded}, "m")
	_, err := g.Generate(context.Background(), conversation)
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, KindTimeout, ge.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeMessages struct {
	got  sdk.MessageNewParams
	resp *sdk.Message
	err  error
}

func (f *fakeMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...anthropicoption.RequestOption) (*sdk.Message, error) {
	f.got = body
	return f.resp, f.err
}

func TestAnthropicGenerateJoinsTextBlocks(t *testing.T) {
	msgs := &fakeMessages{resp: &sdk.Message{Content: []sdk.ContentBlockUnion{
		{Type: "text", Text: "Tu ____ "},
		{Type: "thinking"},
		{Type: "text", Text: "cansado."},
	}}}
	a, err := NewAnthropicClient(msgs, "claude-test")
	require.NoError(t, err)

	req := conversation
	req.Temperature = 1.3
	out, err := a.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Tu ____ cansado.", out)

	require.Len(t, msgs.got.System, 1)
	assert.Equal(t, "be a tutor", msgs.got.System[0].Text)
	require.Len(t, msgs.got.Messages, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs.got.Messages[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, msgs.got.Messages[1].Role)
	assert.Equal(t, int64(500), msgs.got.MaxTokens)
	assert.InDelta(t, 1.0, msgs.got.Temperature.Value, 1e-9)
}

func TestAnthropicRequiresModel(t *testing.T) {
	_, err := NewAnthropicClient(&fakeMessages{}, "")
	assert.Error(t, err)
}

func TestScriptedReplaysThenRepeatsLast(t *testing.T) {
	s := NewScripted(Fail(errors.New("down")), Reply("one"), Reply("two"))
	ctx := context.Background()

	_, err := s.Generate(ctx, conversation)
	assert.Error(t, err)
	for _, want := range []string{"one", "two", "two"} {
		got, err := s.Generate(ctx, conversation)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 4, s.Calls())
	assert.Len(t, s.Requests()[0].Messages, 4)
}

func TestScriptedDelayHonoursDeadline(t *testing.T) {
	s := NewScripted(Step{Text: "late", Delay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Generate(ctx, conversation)
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, KindTimeout, ge.Kind)
}

func TestOfflineCyclesExercises(t *testing.T) {
	g := NewOffline()
	first, err := g.Generate(context.Background(), Request{Messages: conversation.Messages[:2]})
	require.NoError(t, err)
	assert.Equal(t, offlineExercises[0], first)

	second, err := g.Generate(context.Background(), conversation)
	require.NoError(t, err)
	assert.Contains(t, second, offlineExercises[1])
}

func TestCatalogOpen(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{"anthropic", "fake", "gemini", "groq", "openai"}, c.Providers())

	g, err := c.Open(context.Background(), " FAKE ", Options{})
	require.NoError(t, err)
	assert.Equal(t, "Fake:offline", g.Name())

	_, err = c.Open(context.Background(), "openai", Options{})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	_, err = c.Open(context.Background(), "nope", Options{})
	assert.ErrorContains(t, err, "unknown provider")

	g, err = c.Open(context.Background(), "groq", Options{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "Groq:llama-3.3-70b-versatile", g.Name())
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	c := NewCatalog()
	reg := ProviderRegistration{Provider: "x", Factory: func(context.Context, Options) (Generator, error) { return NewScripted(), nil }}
	require.NoError(t, c.Register(reg))
	assert.Error(t, c.Register(reg))
	assert.Error(t, c.Register(ProviderRegistration{Provider: "y"}))
}

func TestAnthropicPrependsUserTurnBeforeAssistant(t *testing.T) {
	msgs := &fakeMessages{resp: &sdk.Message{Content: []sdk.ContentBlockUnion{{Type: "text", Text: "ok"}}}}
	a, _ := NewAnthropicClient(msgs, "claude-test")
	_, err := a.Generate(context.Background(), Request{Messages: []Message{
		{Role: RoleSystem, Text: "sys"},
		{Role: RoleAssistant, Text: "Eu ____ aqui."},
		{Role: RoleUser, Text: "estou"},
	}})
	require.NoError(t, err)
	require.Len(t, msgs.got.Messages, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs.got.Messages[0].Role)
	assert.Equal(t, int64(defaultAnthropicMaxTokens), msgs.got.MaxTokens)
}

func TestSplitSystemKeepsOrder(t *testing.T) {
	sys, rest := splitSystem(conversation.Messages)
	assert.Equal(t, "be a tutor", sys)
	require.Len(t, rest, 3)
	assert.Equal(t, RoleUser, rest[0].Role)
	assert.Equal(t, leadWithUser(rest), rest)
	assert.Len(t, leadWithUser(nil), 1)
}
