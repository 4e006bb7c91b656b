package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		origins    []string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
	}{
		{name: "allowed origin", origins: []string{"http://localhost:3000"}, origin: "http://localhost:3000", wantOrigin: "http://localhost:3000", wantStatus: http.StatusTeapot},
		{name: "unknown origin", origins: []string{"http://localhost:3000"}, origin: "http://evil.test", wantStatus: http.StatusTeapot},
		{name: "wildcard", origins: []string{"*"}, origin: "http://any.test", wantOrigin: "*", wantStatus: http.StatusTeapot},
		{name: "preflight", origins: []string{"http://localhost:3000"}, origin: "http://localhost:3000", preflight: true, wantOrigin: "http://localhost:3000", wantStatus: http.StatusNoContent},
		{name: "disabled", origin: "http://localhost:3000", wantStatus: http.StatusTeapot},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			method := http.MethodGet
			if tc.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/api/v1/festivals", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()

			CORS(tc.origins)(next).ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("allow origin = %q, want %q", got, tc.wantOrigin)
			}
		})
	}
}
