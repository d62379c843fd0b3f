package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audit.NumQuestions != 2 {
		t.Errorf("num_questions = %d, want 2", cfg.Audit.NumQuestions)
	}
	if cfg.Audit.MaxSearchResults != 5 {
		t.Errorf("max_search_results = %d, want 5", cfg.Audit.MaxSearchResults)
	}
	if cfg.LLM.QuestionTemperature != 0.7 || cfg.LLM.AnalysisTemperature != 0.3 {
		t.Errorf("temperatures = %v / %v", cfg.LLM.QuestionTemperature, cfg.LLM.AnalysisTemperature)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.MinWait != 2*time.Second || cfg.Retry.MaxWait != 10*time.Second {
		t.Errorf("retry = %+v", cfg.Retry)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
audit:
  num_questions: 4
llm:
  simulation_model: "google:gemini-3-pro-preview"
retry:
  attempts: 5
  min_wait: 1s
quota:
  sqlite_path: /tmp/quota.db
  max_audits: 10
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audit.NumQuestions != 4 {
		t.Errorf("num_questions = %d, want 4", cfg.Audit.NumQuestions)
	}
	// Untouched fields keep their defaults.
	if cfg.Audit.MaxSearchResults != 5 {
		t.Errorf("max_search_results = %d, want 5", cfg.Audit.MaxSearchResults)
	}
	if cfg.LLM.SimulationModel != "google:gemini-3-pro-preview" {
		t.Errorf("simulation_model = %q", cfg.LLM.SimulationModel)
	}
	if cfg.Retry.Attempts != 5 || cfg.Retry.MinWait != time.Second {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.Quota.SQLitePath != "/tmp/quota.db" || cfg.Quota.MaxAudits != 10 {
		t.Errorf("quota = %+v", cfg.Quota)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("search:\n  tavily_api_key: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TAVILY_API_KEY", "from-env")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.TavilyAPIKey != "from-env" {
		t.Errorf("tavily key = %q, want env value", cfg.Search.TavilyAPIKey)
	}
	if cfg.LLM.OpenAIAPIKey != "sk-test" {
		t.Errorf("openai key = %q", cfg.LLM.OpenAIAPIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("want error for missing config file")
	}
}
