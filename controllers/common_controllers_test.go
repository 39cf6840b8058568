package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(t, &stubClient{configured: true})

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("unexpected status: %v", body["status"])
	}
	assistant, ok := body["assistant"].(map[string]interface{})
	if !ok || assistant["augmentation"] != "keyword" {
		t.Fatalf("assistant status missing: %v", body["assistant"])
	}
	if _, ok := body["discord"]; ok {
		t.Fatal("discord status without a discord service")
	}
}

func TestHealthHandler_Unconfigured(t *testing.T) {
	srv := newTestServer(t, &stubClient{configured: false})

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "degraded" {
		t.Fatalf("unexpected status: %v", body["status"])
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &stubClient{configured: true})

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mental-health-chat", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
