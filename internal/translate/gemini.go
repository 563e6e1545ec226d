package translate

import (
	"context"

	"google.golang.org/genai"

	"github.com/repograph/repograph-go/internal/config"
	"github.com/repograph/repograph-go/internal/errors"
)

// geminiCompleter uses Google's Generative AI SDK.
type geminiCompleter struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int
}

func newGeminiCompleter(ctx context.Context, cfg config.LLMConfig) (*geminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, errors.Configf("gemini provider requires an api key")
	}
	model := cfg.ModelName
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Configf("failed to create gemini client: %v", err)
	}

	return &geminiCompleter{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (c *geminiCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	temp := c.temperature
	genConfig := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(c.maxTokens),
	}
	if systemPrompt != "" {
		genConfig.SystemInstruction = genai.Text(systemPrompt)[0]
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), genConfig)
	if err != nil {
		return "", errors.Unavailablef("gemini completion failed: %v", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.Internalf("gemini returned no content")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
