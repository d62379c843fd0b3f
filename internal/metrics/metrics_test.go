package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSearchCountsByStatus(t *testing.T) {
	before := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("tavily", "ok"))
	RecordSearch("tavily", 120*time.Millisecond, nil)
	after := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("tavily", "ok"))
	if after != before+1 {
		t.Errorf("ok counter: got %v, want %v", after, before+1)
	}

	beforeErr := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("tavily", "error"))
	RecordSearch("tavily", time.Second, errors.New("boom"))
	afterErr := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("tavily", "error"))
	if afterErr != beforeErr+1 {
		t.Errorf("error counter: got %v, want %v", afterErr, beforeErr+1)
	}
}

func TestRecordAudit(t *testing.T) {
	before := testutil.ToFloat64(AuditsTotal.WithLabelValues("chatgpt", "error"))
	RecordAudit("chatgpt", true)
	after := testutil.ToFloat64(AuditsTotal.WithLabelValues("chatgpt", "error"))
	if after != before+1 {
		t.Errorf("audit error counter: got %v, want %v", after, before+1)
	}
}

func TestRecordStageError(t *testing.T) {
	before := testutil.ToFloat64(StageErrorsTotal.WithLabelValues("search_executor"))
	RecordStageError("search_executor")
	after := testutil.ToFloat64(StageErrorsTotal.WithLabelValues("search_executor"))
	if after != before+1 {
		t.Errorf("stage error counter: got %v, want %v", after, before+1)
	}
}
