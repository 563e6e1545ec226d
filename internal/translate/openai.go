package translate

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/repograph/repograph-go/internal/config"
	"github.com/repograph/repograph-go/internal/errors"
)

// openaiCompleter speaks the OpenAI chat-completion protocol. Pointing
// APIBase at an Ollama or vLLM endpoint covers local models with the
// same code path.
type openaiCompleter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func newOpenAICompleter(cfg config.LLMConfig) *openaiCompleter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientCfg.BaseURL = cfg.APIBase
	}
	return &openaiCompleter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.ModelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (c *openaiCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", errors.Unavailablef("llm completion failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Internalf("llm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
