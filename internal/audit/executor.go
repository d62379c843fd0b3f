package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baltagiyc/geo-pulse/internal/metrics"
	"github.com/baltagiyc/geo-pulse/internal/provider"
	"github.com/baltagiyc/geo-pulse/internal/search"
)

// executeSearches runs one web search per question with a bounded fan-out.
// A question whose search fails gets an empty result list and an entry in
// SearchErrors; its siblings are unaffected. Only a missing search API key
// aborts the stage, since it would fail every question identically.
func (p *Pipeline) executeSearches(ctx context.Context, st *State) error {
	res := provider.ResolveSearchTool(st.TargetProvider)
	if res.FellBack {
		p.log.Debug("search tool fell back",
			zap.String("target_provider", st.TargetProvider),
			zap.String("intended", string(res.Intended)),
			zap.String("using", string(res.Tool)),
			zap.String("reason", res.Reason))
	}

	var (
		mu        sync.Mutex
		configErr error
	)
	g := new(errgroup.Group)
	g.SetLimit(p.opts.SearchConcurrency)

	for _, question := range st.Questions {
		g.Go(func() error {
			results, err := p.search.Search(ctx, question, p.opts.MaxSearchResults)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, search.ErrMissingAPIKey) && configErr == nil {
					configErr = err
				}
				p.log.Warn("search failed for question",
					zap.String("question", question), zap.Error(err))
				st.SearchErrors = append(st.SearchErrors,
					fmt.Sprintf("search failed for question %q: %v", question, err))
				st.SearchResults[question] = []search.Result{}
				metrics.RecordStageError("search_executor")
				return nil
			}
			st.SearchResults[question] = results
			return nil
		})
	}
	g.Wait()
	return configErr
}
