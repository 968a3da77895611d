package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vango-go/callbridge/pkg/session"
)

// OpenAIResponder implements Responder on the OpenAI chat completions API.
type OpenAIResponder struct {
	client       openai.Client
	model        string
	systemPrompt string
}

// OpenAIOptions configures an OpenAIResponder. Zero values get defaults.
type OpenAIOptions struct {
	Model        string
	SystemPrompt string
	BaseURL      string // override for tests and proxies
}

func NewOpenAI(apiKey string, opts OpenAIOptions) *OpenAIResponder {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	model := opts.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	return &OpenAIResponder{
		client:       openai.NewClient(reqOpts...),
		model:        model,
		systemPrompt: systemPrompt,
	}
}

func (r *OpenAIResponder) Respond(ctx context.Context, history []session.Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(r.systemPrompt))
	for _, turn := range history {
		switch turn.Role {
		case session.RoleUser:
			messages = append(messages, openai.UserMessage(turn.Content))
		case session.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		}
	}

	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return reply, nil
}
