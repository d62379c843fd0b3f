package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/baltagiyc/geo-pulse/internal/llm"
	"github.com/baltagiyc/geo-pulse/internal/metrics"
	"github.com/baltagiyc/geo-pulse/pkg/retry"
)

// minQuestions is the floor enforced on the model's output: a single
// question cannot cover both positive and negative angles.
const minQuestions = 2

var questionsSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"questions": {
			Type:        llm.TypeArray,
			Description: "Questions a consumer would ask an AI assistant about the brand",
			MinItems:    minQuestions,
			Items:       &llm.Schema{Type: llm.TypeString},
		},
	},
	Required: []string{"questions"},
}

// generateQuestions asks the question model for consumer-style questions
// about the brand. A schema violation (too few questions, wrong shape) is
// retried like any transient failure, since re-prompting usually fixes it.
func (p *Pipeline) generateQuestions(ctx context.Context, brand, brandContext string) ([]string, error) {
	prompt := buildQuestionsPrompt(brand, p.opts.NumQuestions, brandContext)

	var out struct {
		Questions []string `json:"questions"`
	}
	err := retry.Do(ctx, p.opts.Retry, func(ctx context.Context) error {
		c, _, err := p.completer(ctx, p.opts.QuestionModel, p.opts.QuestionTemperature)
		if err != nil {
			return err
		}
		start := time.Now()
		err = c.Extract(ctx, prompt, questionsSchema, &out)
		metrics.RecordLLMCall("question_generator", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("question extraction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	questions := make([]string, 0, len(out.Questions))
	for _, q := range out.Questions {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) < minQuestions {
		return nil, fmt.Errorf("model returned %d usable questions, need at least %d", len(questions), minQuestions)
	}
	return questions, nil
}
