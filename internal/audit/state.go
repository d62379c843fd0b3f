// Package audit implements the brand visibility audit pipeline: brand
// context generation, question generation, web search, LLM answer
// simulation, and visibility analysis over one shared state record.
package audit

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baltagiyc/geo-pulse/internal/search"
)

// ErrEmptyBrand is the precondition failure for an audit without a brand.
var ErrEmptyBrand = errors.New("audit: brand must not be empty")

// DefaultTargetProvider is assumed when the caller does not name one.
const DefaultTargetProvider = "gpt-4"

// Priority ranks a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority normalizes a priority label, defaulting to medium.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Rank orders priorities for presentation: high before medium before low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Recommendation is one actionable content/SEO item from the analyst.
type Recommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// SimulatedAnswer is one simulated LLM reply to a question. Sources lists
// the URLs the model claims to have used; they may reference URLs outside
// the question's search results.
type SimulatedAnswer struct {
	LLMName  string   `json:"llm_name"`
	Response string   `json:"response"`
	Sources  []string `json:"sources"`
}

// State is the single mutable record threaded through the pipeline. It is
// created once per audit, mutated in place by each stage in sequence, and
// owned exclusively by the in-flight audit.
type State struct {
	ID             uuid.UUID
	Brand          string
	TargetProvider string

	// BrandContext is empty until the first stage completes (or fails).
	BrandContext string

	Questions []string
	// SearchResults maps question to its (possibly empty) result list.
	SearchResults map[string][]search.Result
	// Answers maps question to its simulated answer. A nil entry records
	// that simulation was skipped or failed for that question.
	Answers map[string]*SimulatedAnswer

	ReputationScore float64
	Recommendations []Recommendation

	// Error channels, append-only within one run.
	Errors       []string
	SearchErrors []string
	LLMErrors    []string

	StartedAt  time.Time
	FinishedAt time.Time
}

// NewState validates the inputs and builds the initial audit state.
func NewState(brand, targetProvider string) (*State, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return nil, ErrEmptyBrand
	}
	targetProvider = strings.TrimSpace(targetProvider)
	if targetProvider == "" {
		targetProvider = DefaultTargetProvider
	}
	return &State{
		ID:             uuid.New(),
		Brand:          brand,
		TargetProvider: targetProvider,
		SearchResults:  make(map[string][]search.Result),
		Answers:        make(map[string]*SimulatedAnswer),
		StartedAt:      time.Now().UTC(),
	}, nil
}

// Degraded reports whether any stage recorded an error.
func (s *State) Degraded() bool {
	return len(s.Errors) > 0 || len(s.SearchErrors) > 0 || len(s.LLMErrors) > 0
}

// AnsweredQuestions counts questions with a non-nil simulated answer.
func (s *State) AnsweredQuestions() int {
	n := 0
	for _, a := range s.Answers {
		if a != nil {
			n++
		}
	}
	return n
}
