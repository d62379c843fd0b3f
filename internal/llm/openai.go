package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type openAIClient struct {
	client      openai.Client
	model       string
	temperature float64
	limiter     *rate.Limiter
	log         *zap.Logger
}

var _ Completer = (*openAIClient)(nil)

func newOpenAIClient(model string, opts Options) (*openAIClient, error) {
	key := strings.TrimSpace(opts.OpenAIKey)
	if key == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingCredential)
	}
	return &openAIClient{
		client:      openai.NewClient(option.WithAPIKey(key)),
		model:       model,
		temperature: opts.Temperature,
		limiter:     newLimiter(opts.RateLimitRPS),
		log:         opts.Logger,
	}, nil
}

func (c *openAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) Extract(ctx context.Context, prompt string, schema *Schema, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   "extraction",
		Schema: schema.JSONMap(),
		Strict: openai.Bool(true),
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(c.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return fmt.Errorf("openai extraction: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices returned", ErrSchema)
	}

	content := resp.Choices[0].Message.Content
	if err := schema.Decode([]byte(content), out); err != nil {
		c.log.Warn("openai output failed schema validation",
			zap.String("model", c.model),
			zap.Error(err))
		return err
	}
	return nil
}

func (c *openAIClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
