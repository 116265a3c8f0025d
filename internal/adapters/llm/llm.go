// Package llm provides an OpenAI-compatible spam classifier used by the
// anti-spam filter for the first messages of new members.
package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/iamwavecut/guardbot/internal/config"
)

const systemPrompt = `You are a spam detector for a group chat. ` +
	`Classify the user message as spam or not. ` +
	`Spam includes unsolicited ads, crypto/investment schemes, job scams, adult content promotion and mass-forwarded junk. ` +
	`Answer with a single word: SPAM or OK.`

type Checker struct {
	client *openai.Client
	model  string
}

// New returns nil when no API key is configured, which disables the
// LLM-backed check entirely.
func New(cfg config.LLM) *Checker {
	if cfg.APIKey == "" {
		return nil
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Checker{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

func (c *Checker) IsSpam(ctx context.Context, message string) (bool, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   3,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		return false, errors.WithMessage(err, "cant get completion")
	}
	if len(resp.Choices) == 0 {
		return false, errors.New("empty completion response")
	}

	verdict := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
	return strings.HasPrefix(verdict, "SPAM"), nil
}
