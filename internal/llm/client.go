package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GenerateConfig holds per-call generation settings.
type GenerateConfig struct {
	Model       string  `json:"model"`
	MaxTokens   int32   `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int32 `json:"prompt_tokens"`
	CompletionTokens int32 `json:"completion_tokens"`
	TotalTokens      int32 `json:"total_tokens"`
}

// Generation is the raw text returned by a provider.
type Generation struct {
	Text  string `json:"text"`
	Usage *Usage `json:"usage,omitempty"`
}

// Gateway sends a prompt to a hosted text-generation API.
type Gateway interface {
	Generate(ctx context.Context, prompt string, cfg GenerateConfig) (*Generation, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, prompt string, cfg GenerateConfig) (*Generation, error)

func (f GatewayFunc) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (*Generation, error) {
	return f(ctx, prompt, cfg)
}

var (
	ErrNoAPIKey    = errors.New("gemini: API key is required")
	ErrNoModel     = errors.New("gemini: no model configured")
	ErrEmptyOutput = errors.New("gemini: response has no text")
)

// GeminiGateway calls the Gemini API.
type GeminiGateway struct {
	client *genai.Client
}

func NewGeminiGateway(ctx context.Context, apiKey string) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &GeminiGateway{client: client}, nil
}

func (g *GeminiGateway) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (*Generation, error) {
	if cfg.Model == "" {
		return nil, ErrNoModel
	}
	model := g.client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(cfg.MaxTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", cfg.Model, err)
	}
	return toGeneration(resp)
}

func (g *GeminiGateway) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// toGeneration joins the text parts of the first candidate.
func toGeneration(resp *genai.GenerateContentResponse) (*Generation, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, ErrEmptyOutput
	}
	first := resp.Candidates[0]

	var sb strings.Builder
	if first.Content != nil {
		for _, part := range first.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	if sb.Len() == 0 {
		if first.FinishReason != genai.FinishReasonUnspecified && first.FinishReason != genai.FinishReasonStop {
			return nil, fmt.Errorf("%w (finish reason %s)", ErrEmptyOutput, first.FinishReason)
		}
		return nil, ErrEmptyOutput
	}

	gen := &Generation{Text: sb.String()}
	if u := resp.UsageMetadata; u != nil {
		gen.Usage = &Usage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	return gen, nil
}
