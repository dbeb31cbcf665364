package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAdminToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"valid token", "s3cret", "Bearer s3cret", http.StatusNoContent},
		{"wrong token", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"malformed header", "s3cret", "s3cret", http.StatusUnauthorized},
		{"disabled api", "", "Bearer anything", http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			AdminToken(tc.token)(next).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	RequestID(next).ServeHTTP(rec, req)

	if seen == "" {
		t.Fatal("request id should be generated")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Fatal("request id should be echoed in the response header")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = httptest.NewRecorder()
	RequestID(next).ServeHTTP(rec, req)
	if seen != "fixed-id" {
		t.Fatalf("incoming request id should be preserved, got %q", seen)
	}
}
