package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRoutePattern(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Get("/v1/libraries/{libraryID}/config", func(w http.ResponseWriter, req *http.Request) {
		got = routePattern(req)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/libraries/lib-1/config", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	if got != "/v1/libraries/{libraryID}/config" {
		t.Errorf("expected route pattern, got %q", got)
	}
}

func TestRoutePatternSeenByOuterMiddleware(t *testing.T) {
	// Middleware reads the pattern after routing; the route context is
	// shared, so the value set during matching is visible on the way out.
	var got string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			got = routePattern(req)
		})
	})
	r.Get("/v1/bookings", func(w http.ResponseWriter, req *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	if got != "/v1/bookings" {
		t.Errorf("expected route pattern after routing, got %q", got)
	}
}

func TestRoutePatternUnmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/does-not-exist/secret-path-4711", nil)
	if got := routePattern(req); got != "unmatched" {
		t.Errorf("expected constant fallback for unrouted request, got %q", got)
	}
}
