package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"oro/config"
	"oro/metrics"
	"oro/models"
	"oro/services"
)

type stubClient struct {
	configured bool
	reply      string
	err        error
	users      []string
}

func (s *stubClient) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	s.users = append(s.users, user)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubClient) Name() string {
	return "stub"
}

func (s *stubClient) Configured() bool {
	return s.configured
}

func (s *stubClient) GetStatus() map[string]interface{} {
	return map[string]interface{}{"provider": "stub"}
}

type testServer struct {
	handler http.Handler
	client  *stubClient
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, client *stubClient) *testServer {
	t.Helper()
	kb, err := services.LoadKnowledgeBase("")
	if err != nil {
		t.Fatalf("knowledge base: %v", err)
	}
	assistant, err := services.NewAssistant(kb, nil, client, services.AssistantOptions{
		Augmentation:    config.AugmentationKeyword,
		CondenseHistory: true,
	})
	if err != nil {
		t.Fatalf("assistant: %v", err)
	}
	m := metrics.New()
	return &testServer{handler: NewController(assistant, nil, m).Router(), client: client, metrics: m}
}

func (s *testServer) post(t *testing.T, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mental-health-chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not JSON: %q", rec.Body.String())
	}
	return rec, decoded
}

func (s *testServer) scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	return rec.Body.String()
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestChat_MatchedReplyWithSource(t *testing.T) {
	client := &stubClient{configured: true, reply: "Slow breathing before the exam can calm your body. You have prepared for this."}
	srv := newTestServer(t, client)

	rec, body := srv.post(t, `{"message":"I feel anxious about my exam"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %v", rec.Code, body)
	}
	if body["source"] != "ementalhealth.ca/anxiety" {
		t.Fatalf("unexpected source: %v", body["source"])
	}
	if reply, _ := body["reply"].(string); reply == "" || strings.Contains(reply, "ementalhealth.ca") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(client.users) != 1 || !strings.Contains(client.users[0], "Deep breathing can help reduce anxiety.") {
		t.Fatalf("knowledge not injected: %v", client.users)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
}

func TestChat_NoMatchOmitsSource(t *testing.T) {
	srv := newTestServer(t, &stubClient{configured: true, reply: "Hi there!"})

	rec, body := srv.post(t, `{"message":"hello"}`)
	if rec.Code != http.StatusOK || body["reply"] != "Hi there!" {
		t.Fatalf("unexpected response %d: %v", rec.Code, body)
	}
	if _, ok := body["source"]; ok {
		t.Fatalf("source should be omitted: %v", body)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	client := &stubClient{configured: true, reply: "x"}
	srv := newTestServer(t, client)

	for _, payload := range []string{`{"message":""}`, `{"message":"   "}`, `{}`} {
		rec, body := srv.post(t, payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", payload, rec.Code)
		}
		if body["error"] == "" || body["error"] == nil {
			t.Fatalf("%s: missing error description", payload)
		}
	}
	if len(client.users) != 0 {
		t.Fatal("provider called for empty message")
	}
}

func TestChat_InvalidJSON(t *testing.T) {
	srv := newTestServer(t, &stubClient{configured: true})

	rec, body := srv.post(t, `{"message":`)
	if rec.Code != http.StatusBadRequest || body["error"] != msgInvalidJSON {
		t.Fatalf("unexpected response %d: %v", rec.Code, body)
	}
}

func TestChat_NotConfigured(t *testing.T) {
	client := &stubClient{configured: false}
	srv := newTestServer(t, client)

	// even an unparsable body gets the configuration error
	for _, payload := range []string{`{"message":"I feel anxious"}`, `not json`} {
		rec, body := srv.post(t, payload)
		if rec.Code != http.StatusInternalServerError || body["error"] != msgNotConfigured {
			t.Fatalf("unexpected response %d: %v", rec.Code, body)
		}
	}
	if len(client.users) != 0 {
		t.Fatal("provider called without credential")
	}
}

func TestChat_ProviderTimeoutIsGeneric(t *testing.T) {
	logs := captureLog(t)
	client := &stubClient{
		configured: true,
		err:        &services.ProviderError{Provider: "openai", Transient: true, Err: context.DeadlineExceeded},
	}
	srv := newTestServer(t, client)

	rec, body := srv.post(t, `{"message":"hello"}`)
	if rec.Code != http.StatusInternalServerError || body["error"] != msgUnexpected {
		t.Fatalf("unexpected response %d: %v", rec.Code, body)
	}
	if strings.Contains(rec.Body.String(), "deadline") || strings.Contains(rec.Body.String(), "openai") {
		t.Fatalf("provider detail leaked: %s", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "provider failure") {
		t.Fatalf("provider failure not logged: %s", logs.String())
	}
	if exposition := srv.scrape(t); !strings.Contains(exposition, `oro_chat_requests_total{outcome="provider_error"} 1`) {
		t.Fatalf("provider outcome not counted:\n%s", exposition)
	}
}

func TestChat_InternalErrorIsGeneric(t *testing.T) {
	captureLog(t)
	srv := newTestServer(t, &stubClient{configured: true, err: errors.New("boom")})

	rec, body := srv.post(t, `{"message":"hello"}`)
	if rec.Code != http.StatusInternalServerError || body["error"] != msgUnexpected {
		t.Fatalf("unexpected response %d: %v", rec.Code, body)
	}
}

func TestChat_HistoryIsCondensed(t *testing.T) {
	client := &stubClient{configured: true, reply: "How can I sleep before my exam?"}
	srv := newTestServer(t, client)

	payload := models.MentalHealthChatRequest{
		Message: "any tips?",
		ChatHistory: []models.ChatMessage{
			{Text: "I have an exam", IsUser: true},
			{Text: "Good luck!", IsUser: false},
		},
	}
	raw, _ := json.Marshal(payload)

	rec, body := srv.post(t, string(raw))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %v", rec.Code, body)
	}
	if len(client.users) != 2 {
		t.Fatalf("expected condense and reply calls, got %d", len(client.users))
	}
	if !strings.Contains(client.users[0], "Human: I have an exam\nAssistant: Good luck!") {
		t.Fatalf("history not condensed: %q", client.users[0])
	}
}

func TestChat_RequestIDPropagated(t *testing.T) {
	srv := newTestServer(t, &stubClient{configured: true, reply: "ok"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mental-health-chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set(RequestIDHeader, "abc-123")
	srv.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id not echoed: %q", got)
	}
}

func TestChat_OversizedBodyRejected(t *testing.T) {
	client := &stubClient{configured: true, reply: "x"}
	srv := newTestServer(t, client)

	payload := `{"message":"` + strings.Repeat("a", maxChatBodyBytes) + `"}`
	rec, body := srv.post(t, payload)
	if rec.Code != http.StatusBadRequest || body["error"] != msgBodyTooLarge {
		t.Fatalf("unexpected response %d: %v", rec.Code, body)
	}
	if len(client.users) != 0 {
		t.Fatal("provider called for oversized body")
	}
}
