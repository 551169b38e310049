package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opensource-finance/scamsniper/internal/api"
	"github.com/opensource-finance/scamsniper/internal/domain"
)

func TestIssueAdminToken(t *testing.T) {
	cfg := domain.SecurityConfig{AdminSecret: "operator-secret"}

	token, err := issueAdminToken(cfg, "ops@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issueAdminToken failed: %v", err)
	}

	protected := api.AdminMiddleware(cfg.AdminSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sub, _ := r.Context().Value(api.AdminSubjectKey).(string); sub != "ops@example.com" {
			t.Errorf("unexpected subject %q", sub)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/report/all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with issued token, got %d", rec.Code)
	}
}

func TestIssueAdminToken_Errors(t *testing.T) {
	if _, err := issueAdminToken(domain.SecurityConfig{}, "ops", time.Hour); err == nil {
		t.Error("expected error without admin secret")
	}
	if _, err := issueAdminToken(domain.SecurityConfig{AdminSecret: "s"}, "ops", 0); err == nil {
		t.Error("expected error for non-positive ttl")
	}
}
