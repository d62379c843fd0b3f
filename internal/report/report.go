package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"
	texttemplate "text/template"
	"time"

	"github.com/baltagiyc/geo-pulse/internal/audit"
)

// Summary is the presentable view of a finished audit.
type Summary struct {
	AuditID        string        `json:"audit_id"`
	Brand          string        `json:"brand"`
	TargetProvider string        `json:"target_provider"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	Duration       time.Duration `json:"duration"`

	BrandContext    string  `json:"brand_context,omitempty"`
	ReputationScore float64 `json:"reputation_score"`

	Questions       int `json:"questions"`
	Answered        int `json:"answered"`
	TotalSearchHits int `json:"total_search_hits"`

	TopDomains      []audit.DomainMention  `json:"top_domains,omitempty"`
	Recommendations []audit.Recommendation `json:"recommendations"`

	Errors       []string `json:"errors,omitempty"`
	SearchErrors []string `json:"search_errors,omitempty"`
	LLMErrors    []string `json:"llm_errors,omitempty"`
}

// GenerateSummary condenses an audit state into its report view.
// Recommendations are ordered by priority, high first.
func GenerateSummary(st *audit.State) Summary {
	s := Summary{
		AuditID:         st.ID.String(),
		Brand:           st.Brand,
		TargetProvider:  st.TargetProvider,
		StartTime:       st.StartedAt,
		EndTime:         st.FinishedAt,
		Duration:        st.FinishedAt.Sub(st.StartedAt),
		BrandContext:    st.BrandContext,
		ReputationScore: st.ReputationScore,
		Questions:       len(st.Questions),
		Answered:        st.AnsweredQuestions(),
		TopDomains:      audit.TopDomains(st.Questions, st.SearchResults, 10),
		Recommendations: SortRecommendations(st.Recommendations),
		Errors:          st.Errors,
		SearchErrors:    st.SearchErrors,
		LLMErrors:       st.LLMErrors,
	}
	for _, results := range st.SearchResults {
		s.TotalSearchHits += len(results)
	}
	return s
}

// SortRecommendations returns a copy ordered high, medium, low. The order
// within one priority level is preserved.
func SortRecommendations(recs []audit.Recommendation) []audit.Recommendation {
	out := make([]audit.Recommendation, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `GEO Pulse Audit Summary
-----------------------
Brand:            {{.Brand}}
Target provider:  {{.TargetProvider}}
Audit ID:         {{.AuditID}}
Time:             {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})

Reputation score: {{printf "%.2f" .ReputationScore}}
Questions:        {{.Questions}} ({{.Answered}} answered)
Search hits:      {{.TotalSearchHits}}
{{if .BrandContext}}
Brand context:
  {{.BrandContext}}
{{end}}
Top domains:
{{- range .TopDomains}}
  {{.Domain}}: {{.Count}} mentions
{{- else}}
  None
{{- end}}

Recommendations:
{{- range .Recommendations}}
  [{{.Priority}}] {{.Title}}
    {{.Description}}
{{- else}}
  None
{{- end}}
{{- if or .Errors .SearchErrors .LLMErrors}}

Errors:
{{- range .Errors}}
  {{.}}
{{- end}}
{{- range .SearchErrors}}
  {{.}}
{{- end}}
{{- range .LLMErrors}}
  {{.}}
{{- end}}
{{- end}}
`

	t, err := texttemplate.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>GEO Pulse Report: {{.Brand}}</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
  .prio-high { color: red; }
  .prio-medium { color: darkorange; }
  .prio-low { color: green; }
</style>
</head>
<body>
  <h1>GEO Pulse Report: {{.Brand}}</h1>
  <p><strong>Target provider:</strong> {{.TargetProvider}}</p>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Reputation Score</div>
    <div class="stat-val">{{printf "%.2f" .ReputationScore}}</div>
  </div>
  <div class="stat-card">
    <div>Questions</div>
    <div class="stat-val">{{.Questions}}</div>
  </div>
  <div class="stat-card">
    <div>Answered</div>
    <div class="stat-val">{{.Answered}}</div>
  </div>
  <div class="stat-card">
    <div>Search Hits</div>
    <div class="stat-val">{{.TotalSearchHits}}</div>
  </div>

  {{if .BrandContext}}<p><strong>Brand context:</strong> {{.BrandContext}}</p>{{end}}

  <h3>Top Domains</h3>
  <table>
    <tr><th>Domain</th><th>Mentions</th></tr>
    {{- range .TopDomains}}
    <tr><td>{{.Domain}}</td><td>{{.Count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Recommendations</h3>
  <table>
    <tr><th>Priority</th><th>Title</th><th>Description</th></tr>
    {{- range .Recommendations}}
    <tr><td class="prio-{{.Priority}}">{{.Priority}}</td><td>{{.Title}}</td><td>{{.Description}}</td></tr>
    {{- else}}
    <tr><td colspan="3">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := template.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
