package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type geminiClient struct {
	client      *genai.Client
	model       string
	temperature float64
	limiter     *rate.Limiter
	log         *zap.Logger
}

var _ Completer = (*geminiClient)(nil)

func newGeminiClient(ctx context.Context, model string, opts Options) (*geminiClient, error) {
	key := strings.TrimSpace(opts.GoogleKey)
	if key == "" {
		return nil, fmt.Errorf("%w: GOOGLE_API_KEY", ErrMissingCredential)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &geminiClient{
		client:      client,
		model:       model,
		temperature: opts.Temperature,
		limiter:     newLimiter(opts.RateLimitRPS),
		log:         opts.Logger,
	}, nil
}

func (c *geminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:    genai.Ptr(float32(c.temperature)),
			CandidateCount: 1,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	return resp.Text(), nil
}

func (c *geminiClient) Extract(ctx context.Context, prompt string, schema *Schema, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	resp, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(c.temperature)),
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   toGenaiSchema(schema),
		},
	)
	if err != nil {
		return fmt.Errorf("gemini extraction: %w", err)
	}

	if err := schema.Decode([]byte(resp.Text()), out); err != nil {
		c.log.Warn("gemini output failed schema validation",
			zap.String("model", c.model),
			zap.Error(err))
		return err
	}
	return nil
}

func (c *geminiClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// toGenaiSchema converts the neutral schema into the SDK's native form.
func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{Description: s.Description}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenaiSchema(p)
		}
		out.Required = s.Required
	case TypeArray:
		out.Type = genai.TypeArray
		out.Items = toGenaiSchema(s.Items)
		if s.MinItems > 0 {
			out.MinItems = genai.Ptr(int64(s.MinItems))
		}
		if s.MaxItems > 0 {
			out.MaxItems = genai.Ptr(int64(s.MaxItems))
		}
	case TypeNumber:
		out.Type = genai.TypeNumber
		if s.Minimum != nil {
			out.Minimum = genai.Ptr(*s.Minimum)
		}
		if s.Maximum != nil {
			out.Maximum = genai.Ptr(*s.Maximum)
		}
	case TypeString:
		out.Type = genai.TypeString
		out.Enum = s.Enum
	}
	return out
}
