// Package ai drafts pipeline steps from a page inventory and a natural
// language request.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/pipeline"
)

// Provider drafts pipeline steps with a language model
type Provider interface {
	DraftSteps(ctx context.Context, inv *driver.Inventory, prompt string) ([]pipeline.Step, error)
}

// NewProvider creates a new AI provider based on the provider name
func NewProvider(name, model string) (Provider, error) {
	switch name {
	case "claude", "anthropic":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", name)
	}
}

func userPrompt(inv *driver.Inventory, prompt string) (string, error) {
	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal inventory: %w", err)
	}
	return buildUserPrompt(string(data), prompt), nil
}

// parseSteps extracts the JSON array from a reply that may contain
// surrounding text and checks that the steps compile.
func parseSteps(response string) ([]pipeline.Step, error) {
	raw, err := extractArray(response)
	if err != nil {
		return nil, err
	}

	// Decoded as YAML so durations like "500ms" and single-string
	// selectors are accepted.
	var steps []pipeline.Step
	if err := yaml.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, fmt.Errorf("failed to parse steps: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no steps in response")
	}
	if _, err := pipeline.Compile(&pipeline.Script{Steps: steps}); err != nil {
		return nil, fmt.Errorf("drafted steps are invalid: %w", err)
	}
	return steps, nil
}

// extractArray returns the first balanced JSON array in response. Brackets
// inside strings are skipped.
func extractArray(response string) (string, error) {
	start := strings.Index(response, "[")
	if start == -1 {
		return "", fmt.Errorf("no JSON array found in response")
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				return response[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("no matching closing bracket found")
}
