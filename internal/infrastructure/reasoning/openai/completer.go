package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"homematch/internal/ports"
)

const DefaultModel = "gpt-4o-mini"

// Completer talks to the OpenAI chat completions API or any compatible
// endpoint set through baseURL.
type Completer struct {
	client sdk.Client
	model  string
}

var _ ports.Completer = (*Completer)(nil)

func New(apiKey string, model string, baseURL string) (*Completer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}

	return &Completer{client: sdk.NewClient(opts...), model: model}, nil
}

func (c *Completer) Name() string { return "openai:" + c.model }

func (c *Completer) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, sdk.SystemMessage(system))
	}
	messages = append(messages, sdk.UserMessage(req.Prompt))

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", errors.New("openai returned empty response")
	}
	return output, nil
}
