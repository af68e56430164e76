package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIRunner runs role tasks through the OpenAI chat completion API.
type OpenAIRunner struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewOpenAIRunner(apiKey, model string, maxTokens int, temperature float64, logger *zap.Logger) *OpenAIRunner {
	return &OpenAIRunner{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

func (r *OpenAIRunner) RunTask(ctx context.Context, role Role, instructions, contextData string) (string, error) {
	p, ok := personas[role]
	if !ok {
		return "", fmt.Errorf("unknown agent role: %s", role)
	}

	system := fmt.Sprintf("You are %s. Your goal: %s\n\n%s", p.role, p.goal, p.backstory)
	user := instructions
	if contextData != "" {
		user = fmt.Sprintf("%s\n\nContext:\n%s", instructions, contextData)
	}

	resp, err := r.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: r.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: user,
				},
			},
			MaxTokens:   r.maxTokens,
			Temperature: float32(r.temperature),
		},
	)
	if err != nil {
		r.logger.Error("Failed to get agent response",
			zap.Error(err),
			zap.String("role", string(role)))
		return "", fmt.Errorf("agent task failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("agent task returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
