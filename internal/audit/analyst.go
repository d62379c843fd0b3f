package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/baltagiyc/geo-pulse/internal/llm"
	"github.com/baltagiyc/geo-pulse/internal/metrics"
	"github.com/baltagiyc/geo-pulse/pkg/retry"
)

var analysisSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"reputation_score": {
			Type:        llm.TypeNumber,
			Description: "Overall visibility score from 0.0 to 1.0",
			Minimum:     llm.Float(0),
			Maximum:     llm.Float(1),
		},
		"recommendations": {
			Type:        llm.TypeArray,
			Description: "Actionable recommendations to improve brand visibility",
			Items: &llm.Schema{
				Type: llm.TypeObject,
				Properties: map[string]*llm.Schema{
					"title":       {Type: llm.TypeString},
					"description": {Type: llm.TypeString},
					"priority": {
						Type: llm.TypeString,
						Enum: []string{"high", "medium", "low"},
					},
				},
				Required: []string{"title", "description", "priority"},
			},
		},
	},
	Required: []string{"reputation_score", "recommendations"},
}

// analyze scores the brand's visibility across the simulated answers and
// produces content/SEO recommendations. With no questions or no answers
// there is nothing to analyze: the audit short-circuits to a zero score
// without an LLM call.
func (p *Pipeline) analyze(ctx context.Context, st *State) (float64, []Recommendation, error) {
	if len(st.Questions) == 0 || len(st.Answers) == 0 {
		p.log.Info("nothing to analyze, defaulting score to zero")
		return 0.0, nil, nil
	}

	prompt := buildAnalysisPrompt(st)

	var out struct {
		ReputationScore float64 `json:"reputation_score"`
		Recommendations []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Priority    string `json:"priority"`
		} `json:"recommendations"`
	}
	err := retry.Do(ctx, p.opts.Retry, func(ctx context.Context) error {
		c, _, err := p.completer(ctx, p.opts.AnalysisModel, p.opts.AnalysisTemperature)
		if err != nil {
			return err
		}
		start := time.Now()
		err = c.Extract(ctx, prompt, analysisSchema, &out)
		metrics.RecordLLMCall("response_analyst", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("analysis extraction: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	recs := make([]Recommendation, 0, len(out.Recommendations))
	for _, r := range out.Recommendations {
		recs = append(recs, Recommendation{
			Title:       r.Title,
			Description: r.Description,
			Priority:    ParsePriority(r.Priority),
		})
	}
	return out.ReputationScore, recs, nil
}
