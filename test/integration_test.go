//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/baltagiyc/geo-pulse/internal/audit"
	"github.com/baltagiyc/geo-pulse/internal/llm"
	"github.com/baltagiyc/geo-pulse/internal/provider"
	"github.com/baltagiyc/geo-pulse/internal/quota/sqlite"
	"github.com/baltagiyc/geo-pulse/internal/report"
	"github.com/baltagiyc/geo-pulse/internal/search"
	"github.com/baltagiyc/geo-pulse/pkg/httpclient"
	"github.com/baltagiyc/geo-pulse/pkg/retry"
)

const (
	question1 = "What are the best Nike products?"
	question2 = "What do critics say about Nike?"
)

// newTavilyServer serves canned Tavily responses keyed by query, with an
// optional per-query failure status.
func newTavilyServer(t *testing.T, results map[string][]map[string]string, failQueries map[string]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query  string `json:"query"`
			APIKey string `json:"api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode tavily request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.APIKey == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if code, ok := failQueries[req.Query]; ok {
			w.WriteHeader(code)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results[req.Query]})
	}))
}

// fakeCompleter scripts the LLM side of an audit by prompt content.
type fakeCompleter struct {
	contextText string
	questions   []string
	score       float64
	recs        []map[string]any
}

func (f *fakeCompleter) factory() llm.Factory {
	return func(context.Context, provider.BackendSpec, float64) (llm.Completer, error) {
		return f, nil
	}
}

func (f *fakeCompleter) Complete(_ context.Context, _ string) (string, error) {
	return f.contextText, nil
}

func (f *fakeCompleter) Extract(_ context.Context, prompt string, _ *llm.Schema, out any) error {
	var payload any
	switch {
	case strings.Contains(prompt, "researching a brand"):
		payload = map[string]any{"questions": f.questions}
	case strings.Contains(prompt, "simulating how a real LLM"):
		payload = map[string]any{
			"response": "Nike is widely recommended for running shoes.",
			"sources":  []string{"https://www.nike.com/shoes"},
		}
	case strings.Contains(prompt, "visibility analyst"):
		payload = map[string]any{"reputation_score": f.score, "recommendations": f.recs}
	default:
		return fmt.Errorf("unexpected prompt: %.60s", prompt)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func fastPolicy() retry.Policy {
	return retry.Policy{Attempts: 3, Multiplier: time.Millisecond, MinWait: time.Millisecond, MaxWait: time.Millisecond}
}

func newPipeline(url string, model *fakeCompleter) *audit.Pipeline {
	client := httpclient.New(httpclient.Config{Timeout: 5 * time.Second})
	backend := search.NewTavilyWithClient("test-key", url, client)
	svc := search.NewService(backend, fastPolicy(), zap.NewNop())
	opts := audit.DefaultOptions()
	opts.Retry = fastPolicy()
	return audit.New(svc, model.factory(), opts, zap.NewNop())
}

func tavilyResult(title, url string) map[string]string {
	return map[string]string{"title": title, "url": url, "content": title + " content"}
}

func TestIntegration_FullAudit(t *testing.T) {
	srv := newTavilyServer(t, map[string][]map[string]string{
		"Nike company products services": {tavilyResult("Nike, Inc.", "https://www.nike.com/about")},
		question1: {
			tavilyResult("Best Nike shoes", "https://www.nike.com/shoes"),
			tavilyResult("Nike reviews", "https://reviews.example.com/nike"),
		},
		question2: {tavilyResult("Nike criticism", "https://news.example.com/nike")},
	}, nil)
	defer srv.Close()

	model := &fakeCompleter{
		contextText: "Nike is a sportswear company.",
		questions:   []string{question1, question2},
		score:       0.75,
		recs: []map[string]any{
			{"title": "Target review sites", "description": "Publish guides on reviews.example.com.", "priority": "high"},
			{"title": "Address criticism with content", "description": "Create content answering common critiques.", "priority": "medium"},
		},
	}

	st, err := newPipeline(srv.URL, model).Run(context.Background(), "Nike", "chatgpt")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if st.ReputationScore != 0.75 {
		t.Errorf("score = %v, want 0.75", st.ReputationScore)
	}
	if len(st.Questions) != 2 {
		t.Fatalf("questions = %v", st.Questions)
	}
	if len(st.Recommendations) != 2 {
		t.Errorf("recommendations = %d, want 2", len(st.Recommendations))
	}
	if st.Degraded() {
		t.Errorf("error channels not empty: %v %v %v", st.Errors, st.SearchErrors, st.LLMErrors)
	}
	if st.AnsweredQuestions() != 2 {
		t.Errorf("answered = %d, want 2", st.AnsweredQuestions())
	}

	// The report renders end to end.
	var buf bytes.Buffer
	if err := report.WriteText(&buf, report.GenerateSummary(st)); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	for _, want := range []string{"Nike", "0.75", "www.nike.com"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("report missing %q:\n%s", want, buf.String())
		}
	}
}

func TestIntegration_SearchFailureIsIsolated(t *testing.T) {
	srv := newTavilyServer(t, map[string][]map[string]string{
		"Nike company products services": {tavilyResult("Nike, Inc.", "https://www.nike.com/about")},
		question1:                        {tavilyResult("Best Nike shoes", "https://www.nike.com/shoes")},
	}, map[string]int{question2: http.StatusBadGateway})
	defer srv.Close()

	model := &fakeCompleter{
		contextText: "Nike is a sportswear company.",
		questions:   []string{question1, question2},
		score:       0.4,
	}

	st, err := newPipeline(srv.URL, model).Run(context.Background(), "Nike", "chatgpt")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(st.SearchErrors) != 1 || !strings.Contains(st.SearchErrors[0], question2) {
		t.Fatalf("SearchErrors = %v", st.SearchErrors)
	}
	if results := st.SearchResults[question2]; len(results) != 0 {
		t.Errorf("failed question should have empty results, got %v", results)
	}
	if st.Answers[question2] != nil {
		t.Error("failed question should have nil answer")
	}
	if st.Answers[question1] == nil {
		t.Error("healthy question lost its answer")
	}
}

func TestIntegration_QuotaMetersAudits(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	const limit = 2
	for i := 0; i < limit; i++ {
		allowed, _, err := store.TryConsume(ctx, "beta-tester", limit)
		if err != nil || !allowed {
			t.Fatalf("call %d: allowed=%v err=%v", i+1, allowed, err)
		}
	}
	allowed, remaining, err := store.TryConsume(ctx, "beta-tester", limit)
	if err != nil {
		t.Fatal(err)
	}
	if allowed || remaining != 0 {
		t.Errorf("exhausted code = (%v, %d), want (false, 0)", allowed, remaining)
	}
}
