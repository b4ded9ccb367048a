package ai

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/pipeline"
)

// OpenAIProvider implements the Provider interface using OpenAI
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(model string) (*OpenAIProvider, error) {
	apiKey := os.Getenv("PAGEPIPE_OPENAI_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("PAGEPIPE_OPENAI_KEY or OPENAI_API_KEY environment variable required")
	}
	return newOpenAIProvider(openai.DefaultConfig(apiKey), model), nil
}

func newOpenAIProvider(cfg openai.ClientConfig, model string) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// DraftSteps asks OpenAI for steps implementing prompt on the inventoried page
func (p *OpenAIProvider) DraftSteps(ctx context.Context, inv *driver.Inventory, prompt string) ([]pipeline.Step, error) {
	msg, err := userPrompt(inv, prompt)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: msg,
				},
			},
			MaxTokens: 2048,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}
	responseText := resp.Choices[0].Message.Content

	steps, err := parseSteps(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to use OpenAI response: %w\nResponse: %s", err, responseText)
	}
	return steps, nil
}
