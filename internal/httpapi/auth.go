package httpapi

import (
	"net/http"
	"strings"

	"festivalhub/internal/access"
	"festivalhub/internal/apperr"
	"festivalhub/internal/logging"
)

// authedHandler is a handler that runs with a verified caller.
type authedHandler func(w http.ResponseWriter, r *http.Request, caller access.Caller)

// authed resolves the bearer token before calling next. Requests without a
// valid token are answered with 401.
func (s *Server) authed(next authedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := parseBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, r, apperr.Unauthenticated("missing bearer token"))
			return
		}

		caller, err := s.identity.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := logging.WithUserID(r.Context(), caller.ID)
		next(w, r.WithContext(ctx), caller)
	})
}

// optionalAuth passes an anonymous caller when no Authorization header is
// sent. A header that is present must carry a valid token.
func (s *Server) optionalAuth(next authedHandler) http.Handler {
	authed := s.authed(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next(w, r, access.Caller{})
			return
		}
		authed.ServeHTTP(w, r)
	})
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
