// Package ai wraps the text completion service used by the gpt commands.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/attendantbot/attendant/internal/setup/config"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNoAPIKey indicates completion commands are used without a configured
// key.
var ErrNoAPIKey = errors.New("no completion api key configured")

const (
	defaultModel     = openai.GPT3Dot5Turbo
	defaultMaxTokens = 500
)

// Client produces text completions.
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewClient builds a completion client from the configuration. A client with
// an empty key is still returned so the bot can run without the gpt
// commands; calls on it fail with ErrNoAPIKey.
func NewClient(cfg *config.OpenAI, logger *zap.Logger) *Client {
	client := &Client{
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("ai"),
	}
	if client.model == "" {
		client.model = defaultModel
	}
	if client.maxTokens <= 0 {
		client.maxTokens = defaultMaxTokens
	}
	if cfg.APIKey != "" {
		client.api = openai.NewClient(cfg.APIKey)
	}

	return client
}

// Complete sends a prompt to the completion service and returns the reply
// text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.api == nil {
		return "", ErrNoAPIKey
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("Completion generated",
		zap.Int("prompt_len", len(prompt)),
		zap.Int("reply_len", len(reply)))

	return reply, nil
}
