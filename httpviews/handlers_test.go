package httpviews

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DaviWei/reqrypt/transport"
	"github.com/DaviWei/reqrypt/tunnelpool"
)

func newTestPool(t *testing.T) *tunnelpool.Pool {
	t.Helper()
	stub := transport.NewStub()
	p := tunnelpool.New(stub, tunnelpool.Config{CacheDir: t.TempDir()})
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return p
}

func TestHealthNotReady(t *testing.T) {
	pool := newTestPool(t)
	r := New(pool)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestTunnelsAllHTML(t *testing.T) {
	pool := newTestPool(t)
	if err := pool.Add("wss://tunnel.example:443/t"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	r := New(pool)

	req := httptest.NewRequest(http.MethodGet, "/tunnels-all.html", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `<option value="wss://tunnel.example:443/t">`) {
		t.Errorf("body missing expected option, got %q", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	pool := newTestPool(t)
	r := New(pool)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tunnelpool_active_size") {
		t.Errorf("metrics body missing tunnelpool_active_size")
	}
}
