// Package llm provides chat-completion clients with structured-output
// extraction. The audit pipeline depends only on the Completer interface;
// concrete backends exist for OpenAI and Google Gemini.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/baltagiyc/geo-pulse/internal/provider"
)

var (
	// ErrMissingCredential is a configuration error: the backend's API key
	// is absent. It is never retried.
	ErrMissingCredential = errors.New("llm: missing API credential")

	// ErrSchema reports that the model's output could not be coerced to the
	// requested shape. Callers treat it as transient: retrying re-prompts.
	ErrSchema = errors.New("llm: response does not match schema")

	// ErrUnsupportedFamily is a configuration error for backend families
	// with no client implementation.
	ErrUnsupportedFamily = errors.New("llm: unsupported backend family")
)

// Completer is a chat-completion backend. Complete returns free text;
// Extract constrains the completion to a schema and decodes it into out,
// which must be a pointer to a struct with json tags matching the schema.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Extract(ctx context.Context, prompt string, schema *Schema, out any) error
}

// Options configures a client created by New.
type Options struct {
	Temperature float64
	// OpenAIKey and GoogleKey override the per-family credentials.
	OpenAIKey string
	GoogleKey string
	// RateLimitRPS paces calls across one client. <= 0 disables pacing.
	RateLimitRPS float64
	Logger       *zap.Logger
}

// Factory creates a Completer for a resolved backend spec. The pipeline
// holds a Factory so each stage can choose its own model and temperature,
// and so tests can substitute fakes.
type Factory func(ctx context.Context, spec provider.BackendSpec, temperature float64) (Completer, error)

// NewFactory returns a Factory bound to the given credentials and pacing.
func NewFactory(opts Options) Factory {
	return func(ctx context.Context, spec provider.BackendSpec, temperature float64) (Completer, error) {
		o := opts
		o.Temperature = temperature
		return New(ctx, spec, o)
	}
}

// New creates a client for the spec's backend family. A missing credential
// fails fast with ErrMissingCredential.
func New(ctx context.Context, spec provider.BackendSpec, opts Options) (Completer, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	switch spec.Family {
	case provider.FamilyOpenAI:
		return newOpenAIClient(spec.Model, opts)
	case provider.FamilyGoogle:
		return newGeminiClient(ctx, spec.Model, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFamily, spec.Family)
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}
