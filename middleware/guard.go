package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/acadbot/chatauth"
	"github.com/acadbot/chatauth/token"
)

type sessionClaimsContextKey struct{}

// ClaimsFromContext returns the verified session claims stored by
// [Guard] for the current request.
func ClaimsFromContext(ctx context.Context) (*token.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsContextKey{}).(*token.SessionClaims)
	return claims, ok
}

// Guard rejects requests without a valid bearer token. Validation is the
// full signature-and-claims check, not the conversational liveness
// probe. On success the claims are attached to the request context.
func Guard(engine *chatauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			bearer, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.ValidateToken(bearer)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	tok := value[len(bearer):]
	if tok == "" {
		return "", false
	}

	return tok, true
}
