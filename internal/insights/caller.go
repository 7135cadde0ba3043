package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = anthropic.ModelClaudeSonnet4_20250514
)

// ChatCaller sends one system instruction and one user prompt and returns
// the model's text reply.
type ChatCaller interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// CallerFactory builds a caller bound to the submitter's credential.
type CallerFactory func(ctx context.Context, credential string) (ChatCaller, error)

type ProviderConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

func NewCallerFactory(cfg ProviderConfig) (CallerFactory, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		return func(ctx context.Context, credential string) (ChatCaller, error) {
			return NewOpenAICaller(ctx, cfg, credential)
		}, nil
	case ProviderAnthropic:
		return func(_ context.Context, credential string) (ChatCaller, error) {
			return NewAnthropicCaller(cfg, credential), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
}

type chatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

type OpenAICaller struct {
	chat chatGenerator
}

func NewOpenAICaller(ctx context.Context, cfg ProviderConfig, apiKey string) (*OpenAICaller, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}
	temperature := float32(cfg.Temperature)
	maxTokens := cfg.MaxTokens
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      apiKey,
		Model:       modelName,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("init openai chat model: %w", err)
	}
	return &OpenAICaller{chat: cm}, nil
}

func (c *OpenAICaller) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.chat.Generate(ctx, []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: prompt},
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("empty response")
	}
	return strings.TrimSpace(resp.Content), nil
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string, opts ...option.RequestOption) AnthropicMessager

func defaultAnthropicCreator(apiKey string, opts ...option.RequestOption) AnthropicMessager {
	c := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

type AnthropicCaller struct {
	messages    AnthropicMessager
	model       anthropic.Model
	temperature float64
	maxTokens   int64
}

func NewAnthropicCaller(cfg ProviderConfig, apiKey string) *AnthropicCaller {
	var opts []option.RequestOption
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	modelName := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		modelName = DefaultAnthropicModel
	}
	return &AnthropicCaller{
		messages:    newAnthropicClient(apiKey, opts...),
		model:       modelName,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
	}
}

func (a *AnthropicCaller) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(a.temperature),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
