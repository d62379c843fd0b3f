package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/baltagiyc/geo-pulse/pkg/httpclient"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API, which is optimized for LLM use cases
// and returns structured JSON results.
type Tavily struct {
	apiKey   string
	endpoint string
	client   *httpclient.Client
}

var _ Backend = (*Tavily)(nil)

// NewTavily constructs a Tavily backend. The key is validated at call time
// so that construction never touches the environment.
func NewTavily(apiKey string) *Tavily {
	return &Tavily{
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
		client:   httpclient.New(httpclient.Config{Timeout: 15 * time.Second, MaxRedirects: 3}),
	}
}

// NewTavilyWithClient constructs a Tavily backend against a custom endpoint
// and client, used by tests.
func NewTavilyWithClient(apiKey, endpoint string, client *httpclient.Client) *Tavily {
	return &Tavily{apiKey: apiKey, endpoint: endpoint, client: client}
}

// Name implements Backend.
func (t *Tavily) Name() string { return "tavily" }

// Search posts a query to Tavily and returns its native result records.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]RawResult, error) {
	if strings.TrimSpace(t.apiKey) == "" {
		return nil, fmt.Errorf("%w: TAVILY_API_KEY", ErrMissingAPIKey)
	}

	body := map[string]any{
		"query":       query,
		"api_key":     t.apiKey,
		"max_results": maxResults,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("tavily: encode request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tavily: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily: http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	raw := make([]RawResult, 0, len(response.Results))
	for _, r := range response.Results {
		raw = append(raw, RawResult{Title: r.Title, URL: r.URL, Content: r.Content})
		if len(raw) >= maxResults {
			break
		}
	}
	return raw, nil
}
