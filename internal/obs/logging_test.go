package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func TestRequestLoggerAddsRouteAndVoucherID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(RequestLogger{Logger: logger}.Middleware)
	r.Post("/apply-coupon/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	req := httptest.NewRequest(http.MethodPost, "/apply-coupon/abc", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["voucher_id"] != "abc" {
		t.Fatalf("expected voucher_id, got %#v", entry)
	}
	if entry["status"] != float64(http.StatusUnprocessableEntity) {
		t.Fatalf("unexpected status %#v", entry["status"])
	}
	if entry["route"] != "/apply-coupon/{id}" {
		t.Fatalf("unexpected route %#v", entry["route"])
	}
	if entry["client_ip"] != "203.0.113.9" {
		t.Fatalf("unexpected client ip %#v", entry["client_ip"])
	}
}
