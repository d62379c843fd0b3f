package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baltagiyc/geo-pulse/pkg/httpclient"
)

func newTestTavily(t *testing.T, handler http.HandlerFunc) (*Tavily, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := httpclient.New(httpclient.Config{Timeout: 5 * time.Second})
	return NewTavilyWithClient("test-key", srv.URL, client), srv
}

func TestTavilySearch(t *testing.T) {
	var gotBody map[string]any
	backend, _ := newTestTavily(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Nike", "url": "https://nike.com", "content": "sportswear", "score": 0.97},
				{"title": "Adidas", "url": "https://adidas.com", "content": "rival", "score": 0.81},
			},
		})
	})

	raw, err := backend.Search(context.Background(), "nike company", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 raw results, got %d", len(raw))
	}
	if raw[0].Title != "Nike" || raw[0].URL != "https://nike.com" || raw[0].Content != "sportswear" {
		t.Errorf("unexpected first result: %+v", raw[0])
	}
	if gotBody["query"] != "nike company" {
		t.Errorf("query sent = %v", gotBody["query"])
	}
	if gotBody["max_results"] != float64(5) {
		t.Errorf("max_results sent = %v", gotBody["max_results"])
	}
}

func TestTavilyTruncatesToMaxResults(t *testing.T) {
	backend, _ := newTestTavily(t, func(w http.ResponseWriter, r *http.Request) {
		results := make([]map[string]any, 10)
		for i := range results {
			results[i] = map[string]any{"title": "t", "url": "https://example.com", "content": "c"}
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	})

	raw, err := backend.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(raw) != 3 {
		t.Errorf("expected 3 results, got %d", len(raw))
	}
}

func TestTavilyHTTPError(t *testing.T) {
	backend, _ := newTestTavily(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := backend.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error for http 500")
	}
}

func TestTavilyMissingKey(t *testing.T) {
	backend := NewTavily("")
	_, err := backend.Search(context.Background(), "q", 5)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
