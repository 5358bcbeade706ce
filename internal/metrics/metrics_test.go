package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func TestMiddleware(t *testing.T) {
	HTTPRequestsTotal.Reset()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	wrapped := Middleware(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestMiddlewareWithChiRouter(t *testing.T) {
	HTTPRequestsTotal.Reset()

	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/v1/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	req := httptest.NewRequest("GET", "/api/v1/orders/123", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusCreated)
	if rw.statusCode != http.StatusCreated {
		t.Errorf("Expected status code 201, got %d", rw.statusCode)
	}

	data := []byte("Hello, World!")
	n, err := rw.Write(data)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}
	if rw.size != len(data) {
		t.Errorf("Expected size %d, got %d", len(data), rw.size)
	}
}

func TestHandler(t *testing.T) {
	handler := Handler()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if !strings.Contains(contentType, "text/plain") {
		t.Errorf("Expected text/plain content type, got %s", contentType)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "taller_http_requests_total") {
		t.Errorf("Expected body to contain taller_http_requests_total metric")
	}
}

func TestMetricsRegistration(t *testing.T) {
	metrics := []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		HTTPResponseSize,
		DBConnectionsOpen,
		DBConnectionsInUse,
		DBConnectionsIdle,
		DBConnectionsMaxOpen,
		DBQueryDuration,
		LoginsTotal,
		SessionsSwept,
		OrdersCreated,
		OrdersDeleted,
		ImagesUploaded,
		ImagesDeleted,
		OrphanFilesRemoved,
	}

	for _, m := range metrics {
		desc := make(chan *prometheus.Desc, 10)
		m.Describe(desc)
		close(desc)

		count := 0
		for range desc {
			count++
		}
		if count == 0 {
			t.Errorf("Metric has no descriptions")
		}
	}
}
