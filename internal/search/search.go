// Package search normalizes heterogeneous web-search backends into a single
// result shape for the audit pipeline.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/baltagiyc/geo-pulse/internal/metrics"
	"github.com/baltagiyc/geo-pulse/pkg/retry"
)

// Result is one normalized web search hit. Immutable once created.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Domain  string `json:"domain"`
}

// RawResult is a provider-native record before normalization. Backends map
// their own field names onto it (Tavily's "content" becomes Content, Bing's
// "name" would become Title).
type RawResult struct {
	Title   string
	URL     string
	Content string
}

// Backend executes a query against one search provider.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]RawResult, error)
}

// ErrMissingAPIKey is a configuration error: the backend credential is
// absent. It fails fast and is never retried.
var ErrMissingAPIKey = errors.New("search: missing API key")

// Bounds for how many results one query may request.
const (
	MinResults = 1
	MaxResults = 20
)

// Service wraps a Backend with retries, normalization, and per-record
// error isolation.
type Service struct {
	backend Backend
	policy  retry.Policy
	log     *zap.Logger
}

// NewService creates a search service over the given backend. A nil logger
// disables logging; a zero policy uses the shared default backoff.
func NewService(backend Backend, policy retry.Policy, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if policy.Attempts == 0 {
		policy = retry.DefaultPolicy()
	}
	return &Service{backend: backend, policy: policy, log: log}
}

// Backend returns the underlying backend name.
func (s *Service) Backend() string { return s.backend.Name() }

// Search runs the query and returns normalized results. Transient backend
// failures are retried with exponential backoff; a missing credential fails
// immediately. Individual malformed records are skipped with a warning
// rather than failing the call.
func (s *Service) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults < MinResults {
		maxResults = MinResults
	}
	if maxResults > MaxResults {
		maxResults = MaxResults
	}

	start := time.Now()
	var raw []RawResult
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.backend.Search(ctx, query, maxResults)
		if errors.Is(callErr, ErrMissingAPIKey) {
			return retry.Permanent(callErr)
		}
		return callErr
	})
	metrics.RecordSearch(s.backend.Name(), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		res, ok := s.normalize(r)
		if !ok {
			continue
		}
		results = append(results, res)
	}

	s.log.Info("search completed",
		zap.String("backend", s.backend.Name()),
		zap.String("query", query),
		zap.Int("results", len(results)))
	return results, nil
}

// normalize maps a raw record onto Result, deriving the domain from the
// URL authority. Records without a parseable URL are dropped.
func (s *Service) normalize(r RawResult) (Result, bool) {
	if r.URL == "" {
		s.log.Warn("skipping search result without URL", zap.String("title", r.Title))
		return Result{}, false
	}
	u, err := url.Parse(r.URL)
	if err != nil || u.Host == "" {
		s.log.Warn("skipping search result with unparseable URL",
			zap.String("url", r.URL),
			zap.Error(err))
		return Result{}, false
	}
	return Result{
		Title:   r.Title,
		URL:     r.URL,
		Snippet: r.Content,
		Domain:  u.Host,
	}, true
}
