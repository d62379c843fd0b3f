package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/baltagiyc/geo-pulse/internal/metrics"
	"github.com/baltagiyc/geo-pulse/pkg/retry"
)

// generateBrandContext produces a short factual summary of the brand from a
// fixed web search, to ground question generation for brands the models do
// not know. No results is not an error: the summary is simply empty and the
// later stages proceed without it.
//
// The retry policy wraps the whole operation, so a retry repeats both the
// search and the completion.
func (p *Pipeline) generateBrandContext(ctx context.Context, brand string) (string, error) {
	query := fmt.Sprintf("%s company products services", brand)

	var summary string
	err := retry.Do(ctx, p.opts.Retry, func(ctx context.Context) error {
		results, err := p.search.Search(ctx, query, p.opts.MaxSearchResults)
		if err != nil {
			return fmt.Errorf("context search: %w", err)
		}
		if len(results) == 0 {
			p.log.Warn("no search results for brand context", zap.String("brand", brand))
			summary = ""
			return nil
		}

		c, _, err := p.completer(ctx, p.opts.ContextModel, p.opts.ContextTemperature)
		if err != nil {
			return err
		}

		start := time.Now()
		text, err := c.Complete(ctx, buildBrandContextPrompt(brand, results))
		metrics.RecordLLMCall("brand_context", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("context completion: %w", err)
		}
		summary = strings.TrimSpace(text)
		return nil
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}
