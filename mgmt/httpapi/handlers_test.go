package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/krisarmstrong/switchsim/pkg/portsim"
)

func TestHandlePortsReportsCarrierLossProbability(t *testing.T) {
	sub, err := portsim.NewSubstrate(1, 4)
	if err != nil {
		t.Fatalf("NewSubstrate: %v", err)
	}
	cfg := portsim.DefaultAdminConfig()
	cfg.CarrierLossProbability = 0.02
	if err := sub.SetConfig(0, cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	s := NewServer(Deps{Substrate: sub}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ports", nil)
	rec := httptest.NewRecorder()
	s.handlePorts(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !contains(body, "0.02") {
		t.Fatalf("expected carrier_loss_probability in response, got %s", body)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	sub, _ := portsim.NewSubstrate(1, 4)
	s := NewServer(Deps{Substrate: sub}, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ports", nil)
	rec := httptest.NewRecorder()
	s.auth(s.handlePorts)(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
