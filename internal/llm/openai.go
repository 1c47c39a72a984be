package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
)

// OpenAIConfig holds the provider settings for the OpenAI generator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Persona     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIGenerator calls the OpenAI Responses API with a fixed persona as the
// system message.
type OpenAIGenerator struct {
	client *openai.Client
	config OpenAIConfig
	logger zerolog.Logger
}

// NewOpenAIGenerator builds the generator. The API key is required; model,
// token and time limits fall back to conservative defaults.
func NewOpenAIGenerator(cfg OpenAIConfig, logger zerolog.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &OpenAIGenerator{
		client: &client,
		config: cfg,
		logger: logger.With().Str("component", "llm").Str("model", cfg.Model).Logger(),
	}, nil
}

// GenerateReply sends the persona, any prior turns and the user message, and
// returns the model's text. The call is bounded by the configured timeout.
func (g *OpenAIGenerator) GenerateReply(ctx context.Context, message string, history []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	input := make(responses.ResponseInputParam, 0, len(history)+2)
	if g.config.Persona != "" {
		input = append(input, responses.ResponseInputItemParamOfMessage(g.config.Persona, responses.EasyInputMessageRoleSystem))
	}
	for _, m := range history {
		role := responses.EasyInputMessageRoleUser
		if m.Role == "assistant" {
			role = responses.EasyInputMessageRoleAssistant
		}
		input = append(input, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}
	input = append(input, responses.ResponseInputItemParamOfMessage(message, responses.EasyInputMessageRoleUser))

	params := responses.ResponseNewParams{
		Model:           shared.ResponsesModel(g.config.Model),
		Input:           responses.ResponseNewParamsInputUnion{OfInputItemList: input},
		MaxOutputTokens: openai.Int(int64(g.config.MaxTokens)),
		Temperature:     openai.Float(g.config.Temperature),
	}

	started := time.Now()
	result, err := g.client.Responses.New(ctx, params)
	if err != nil {
		g.logger.Warn().Err(err).Dur("elapsed", time.Since(started)).Msg("completion request failed")
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	text := strings.TrimSpace(result.OutputText())
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUpstreamUnavailable)
	}

	g.logger.Debug().
		Dur("elapsed", time.Since(started)).
		Int("reply_chars", len(text)).
		Msg("completion generated")

	return text, nil
}
