package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/baltagiyc/geo-pulse/internal/llm"
	"github.com/baltagiyc/geo-pulse/internal/metrics"
	"github.com/baltagiyc/geo-pulse/internal/provider"
	"github.com/baltagiyc/geo-pulse/internal/search"
	"github.com/baltagiyc/geo-pulse/pkg/retry"
)

// Options tunes one pipeline instance. Zero values are replaced with the
// defaults below.
type Options struct {
	NumQuestions     int
	MaxSearchResults int

	// SearchConcurrency bounds the search fan-out per audit.
	SearchConcurrency int

	// Per-stage model specs. Each accepts a full "family:model" spec or a
	// provider alias.
	ContextModel    string
	QuestionModel   string
	SimulationModel string
	AnalysisModel   string

	ContextTemperature    float64
	QuestionTemperature   float64
	SimulationTemperature float64
	AnalysisTemperature   float64

	Retry retry.Policy
}

// DefaultOptions mirrors the product defaults: cheap models for the factual
// stages, low temperature where accuracy matters.
func DefaultOptions() Options {
	return Options{
		NumQuestions:          2,
		MaxSearchResults:      5,
		SearchConcurrency:     1,
		ContextModel:          "openai:gpt-4o-mini",
		QuestionModel:         "openai:gpt-4o-mini",
		SimulationModel:       "openai:gpt-4",
		AnalysisModel:         "openai:gpt-4",
		ContextTemperature:    0.3,
		QuestionTemperature:   0.7,
		SimulationTemperature: 0.7,
		AnalysisTemperature:   0.3,
		Retry:                 retry.DefaultPolicy(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.NumQuestions <= 0 {
		o.NumQuestions = def.NumQuestions
	}
	if o.MaxSearchResults <= 0 {
		o.MaxSearchResults = def.MaxSearchResults
	}
	if o.SearchConcurrency <= 0 {
		o.SearchConcurrency = def.SearchConcurrency
	}
	if o.ContextModel == "" {
		o.ContextModel = def.ContextModel
	}
	if o.QuestionModel == "" {
		o.QuestionModel = def.QuestionModel
	}
	if o.SimulationModel == "" {
		o.SimulationModel = def.SimulationModel
	}
	if o.AnalysisModel == "" {
		o.AnalysisModel = def.AnalysisModel
	}
	if o.ContextTemperature == 0 {
		o.ContextTemperature = def.ContextTemperature
	}
	if o.QuestionTemperature == 0 {
		o.QuestionTemperature = def.QuestionTemperature
	}
	if o.SimulationTemperature == 0 {
		o.SimulationTemperature = def.SimulationTemperature
	}
	if o.AnalysisTemperature == 0 {
		o.AnalysisTemperature = def.AnalysisTemperature
	}
	return o
}

// Pipeline runs brand audits. One Pipeline is safe for concurrent audits;
// each Run owns its State exclusively.
type Pipeline struct {
	search *search.Service
	llm    llm.Factory
	opts   Options
	log    *zap.Logger
}

func New(searchSvc *search.Service, factory llm.Factory, opts Options, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		search: searchSvc,
		llm:    factory,
		opts:   opts.withDefaults(),
		log:    log,
	}
}

// isConfigErr reports whether err is a configuration problem (missing
// credential, unknown backend) that no amount of retrying will fix.
func isConfigErr(err error) bool {
	return errors.Is(err, llm.ErrMissingCredential) ||
		errors.Is(err, llm.ErrUnsupportedFamily) ||
		errors.Is(err, search.ErrMissingAPIKey)
}

// completer resolves a stage's model spec and builds its client. Factory
// failures are configuration errors and are marked permanent.
func (p *Pipeline) completer(ctx context.Context, model string, temperature float64) (llm.Completer, provider.BackendSpec, error) {
	res := provider.ResolveModel(model)
	if res.FellBack {
		p.log.Warn("model fell back to default",
			zap.String("requested", model),
			zap.String("resolved", res.Spec.String()),
			zap.String("reason", res.Reason))
	}
	c, err := p.llm(ctx, res.Spec, temperature)
	if err != nil {
		return nil, res.Spec, retry.Permanent(fmt.Errorf("create %s client: %w", res.Spec, err))
	}
	return c, res.Spec, nil
}

// Run executes a full audit. The returned State is always well-formed when
// err is nil: every stage either succeeded or recorded its failure in the
// state's error lists and left usable defaults behind. A non-nil error
// means a precondition or configuration failure; for configuration failures
// the partial State is returned alongside the error.
func (p *Pipeline) Run(ctx context.Context, brand, targetProvider string) (*State, error) {
	st, err := NewState(brand, targetProvider)
	if err != nil {
		return nil, err
	}
	log := p.log.With(zap.Stringer("audit_id", st.ID), zap.String("brand", st.Brand))
	log.Info("audit started", zap.String("target_provider", st.TargetProvider))

	if err := p.runStages(ctx, st, log); err != nil {
		st.FinishedAt = time.Now().UTC()
		metrics.RecordAudit(st.TargetProvider, true)
		return st, err
	}

	st.FinishedAt = time.Now().UTC()
	metrics.RecordAudit(st.TargetProvider, false)
	log.Info("audit finished",
		zap.Float64("reputation_score", st.ReputationScore),
		zap.Int("questions", len(st.Questions)),
		zap.Int("answered", st.AnsweredQuestions()),
		zap.Bool("degraded", st.Degraded()))
	return st, nil
}

func (p *Pipeline) runStages(ctx context.Context, st *State, log *zap.Logger) error {
	// Stage 1: brand context. Failure degrades question quality but never
	// stops the audit.
	brandContext, err := p.generateBrandContext(ctx, st.Brand)
	switch {
	case isConfigErr(err):
		return fmt.Errorf("brand context: %w", err)
	case err != nil:
		log.Warn("brand context generation failed", zap.Error(err))
		st.Errors = append(st.Errors, fmt.Sprintf("brand context generation failed: %v", err))
		metrics.RecordStageError("brand_context")
	default:
		st.BrandContext = brandContext
	}

	// Stage 2: question generation. Failure leaves no questions, so the
	// later stages become no-ops and the analyst short-circuits.
	questions, err := p.generateQuestions(ctx, st.Brand, st.BrandContext)
	switch {
	case isConfigErr(err):
		return fmt.Errorf("question generation: %w", err)
	case err != nil:
		log.Warn("question generation failed", zap.Error(err))
		st.Errors = append(st.Errors, fmt.Sprintf("question generation failed: %v", err))
		metrics.RecordStageError("question_generator")
	default:
		st.Questions = questions
	}

	// Stage 3: search fan-out, per-question isolation.
	if err := p.executeSearches(ctx, st); err != nil {
		return fmt.Errorf("search execution: %w", err)
	}

	// Stage 4: answer simulation, per-question isolation.
	if err := p.simulateAnswers(ctx, st); err != nil {
		return fmt.Errorf("answer simulation: %w", err)
	}

	// Stage 5: analysis. Exhausted retries default the score rather than
	// failing the audit.
	score, recs, err := p.analyze(ctx, st)
	switch {
	case isConfigErr(err):
		return fmt.Errorf("visibility analysis: %w", err)
	case err != nil:
		log.Warn("visibility analysis failed", zap.Error(err))
		st.Errors = append(st.Errors, fmt.Sprintf("visibility analysis failed: %v", err))
		metrics.RecordStageError("response_analyst")
		st.ReputationScore = 0.0
		st.Recommendations = nil
	default:
		st.ReputationScore = score
		st.Recommendations = recs
	}
	return nil
}
