package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/R3E-Network/model_layer/internal/errors"
	"github.com/R3E-Network/model_layer/internal/logging"
	"github.com/R3E-Network/model_layer/internal/metrics"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestTracing_GeneratesAndEchoes(t *testing.T) {
	var seen string
	h := NewTracingMiddleware().Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetTraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(TraceHeader) != seen {
		t.Fatalf("trace id = %q, header = %q", seen, rec.Header().Get(TraceHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get(TraceHeader) != "abc-123" {
		t.Fatalf("incoming trace id not propagated: %q", seen)
	}
}

func TestCORS(t *testing.T) {
	h := NewCORSMiddleware([]string{"https://app.example.com"}).Handler(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/rpc", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("credentials not allowed for a listed origin")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/rpc", nil)
	req.Header.Set("Origin", "https://evil-app.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin allowed: %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/rpc", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	var limited error
	rl := NewRateLimiter(1, 2, logging.NewDiscard(), func(w http.ResponseWriter, r *http.Request, err error) {
		limited = err
		w.WriteHeader(http.StatusTooManyRequests)
	})
	h := rl.Handler(okHandler)

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/api/rpc", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
	if !errors.IsKind(limited, errors.KindRateLimited) {
		t.Fatalf("limited with %v", limited)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/rpc", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other caller limited: %d", rec.Code)
	}

	rl.idle = 0
	rl.Cleanup()
	if len(rl.limiters) != 0 {
		t.Fatalf("cleanup kept %d limiters", len(rl.limiters))
	}
}

func TestMetricsMiddleware_LabelsByRoute(t *testing.T) {
	m := metrics.New("test")
	r := mux.NewRouter()
	r.Use(MetricsMiddleware(m))
	r.HandleFunc("/api/rpc", okHandler).Methods(http.MethodPost)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/rpc", nil))

	out, err := testutil.GatherAndCount(m.Registry, "test_http_requests_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if out != 1 {
		t.Fatalf("series = %d, want 1", out)
	}
	expected := `
# HELP test_http_requests_total Total number of HTTP requests handled.
# TYPE test_http_requests_total counter
test_http_requests_total{method="POST",path="/api/rpc",status="200"} 1
`
	if err := testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "test_http_requests_total"); err != nil {
		t.Fatal(err)
	}
}
