package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveChat(OutcomeSuccess, 120*time.Millisecond)
	m.ObserveChat(OutcomeSuccess, time.Second)
	m.ObserveChat(OutcomeInvalid, time.Millisecond)
	m.RecordMatch("keyword", true)
	m.RecordMatch("keyword", false)
	m.RecordMatch("keyword", true)
	m.ObserveHTTP("POST", 200)

	if got := testutil.ToFloat64(m.chatRequests.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Fatalf("success count: %v", got)
	}
	if got := testutil.ToFloat64(m.chatRequests.WithLabelValues(OutcomeInvalid)); got != 1 {
		t.Fatalf("invalid count: %v", got)
	}
	if got := testutil.ToFloat64(m.knowledgeMatches.WithLabelValues("keyword", "true")); got != 2 {
		t.Fatalf("match count: %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "200")); got != 1 {
		t.Fatalf("http count: %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordMatch("retrieval", false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(string(body), `oro_knowledge_matches_total{augmentation="retrieval",matched="false"} 1`) {
		t.Fatalf("exposition missing match counter:\n%s", body)
	}
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveHTTP("GET", 404)
	if got := testutil.ToFloat64(b.httpRequests.WithLabelValues("GET", "404")); got != 0 {
		t.Fatalf("registries share state: %v", got)
	}
}
