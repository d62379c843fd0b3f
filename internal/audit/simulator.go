package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/baltagiyc/geo-pulse/internal/llm"
	"github.com/baltagiyc/geo-pulse/internal/metrics"
	"github.com/baltagiyc/geo-pulse/internal/provider"
	"github.com/baltagiyc/geo-pulse/internal/search"
	"github.com/baltagiyc/geo-pulse/pkg/retry"
)

var answerSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"response": {
			Type:        llm.TypeString,
			Description: "The simulated assistant's full answer to the question",
		},
		"sources": {
			Type:        llm.TypeArray,
			Description: "URLs from the search results cited in the answer",
			Items:       &llm.Schema{Type: llm.TypeString},
		},
	},
	Required: []string{"response", "sources"},
}

// simulateAnswers generates one simulated LLM answer per question, in
// generation order. Questions with no search results are skipped entirely
// and recorded with a nil answer, since the simulation prompt is built
// around real search results. A failed question records a nil answer and an
// LLMErrors entry; configuration errors abort the stage.
func (p *Pipeline) simulateAnswers(ctx context.Context, st *State) error {
	res := provider.ResolveModel(simulationSpec(st.TargetProvider, p.opts.SimulationModel))
	if res.FellBack {
		p.log.Warn("simulation model fell back to default",
			zap.String("target_provider", st.TargetProvider),
			zap.String("resolved", res.Spec.String()),
			zap.String("reason", res.Reason))
	}

	for _, question := range st.Questions {
		results := st.SearchResults[question]
		if len(results) == 0 {
			p.log.Debug("skipping simulation, no search results",
				zap.String("question", question))
			st.Answers[question] = nil
			continue
		}

		answer, err := p.simulateOne(ctx, question, st.Brand, results, res.Spec)
		if err != nil {
			if isConfigErr(err) {
				return err
			}
			p.log.Warn("answer simulation failed",
				zap.String("question", question), zap.Error(err))
			st.LLMErrors = append(st.LLMErrors,
				fmt.Sprintf("simulation failed for question %q: %v", question, err))
			metrics.RecordStageError("llm_simulator")
			st.Answers[question] = nil
			continue
		}
		st.Answers[question] = answer
	}
	return nil
}

// simulationSpec picks the model spec for simulation: the target provider's
// alias when one was named, the configured default otherwise.
func simulationSpec(targetProvider, fallback string) string {
	if targetProvider != "" {
		return targetProvider
	}
	return fallback
}

func (p *Pipeline) simulateOne(ctx context.Context, question, brand string, results []search.Result, spec provider.BackendSpec) (*SimulatedAnswer, error) {
	prompt := buildSimulationPrompt(question, brand, results)

	var answer SimulatedAnswer
	err := retry.Do(ctx, p.opts.Retry, func(ctx context.Context) error {
		c, err := p.llm(ctx, spec, p.opts.SimulationTemperature)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create %s client: %w", spec, err))
		}
		start := time.Now()
		err = c.Extract(ctx, prompt, answerSchema, &answer)
		metrics.RecordLLMCall("llm_simulator", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("answer extraction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The model name is metadata derived from the spec, never trusted from
	// the model's own output.
	answer.LLMName = spec.Model
	return &answer, nil
}
