package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"authline.org/internal/identity"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

type invalidTokenKey struct{}

// resolveSession attaches the principal to the context when a valid bearer
// token is presented. Requests without a usable token pass through untouched,
// so public routes (login, token refresh, signup) keep working even when the
// client sends a stale access token; requireAuth rejects them where a
// principal is mandatory.
func (a *API) resolveSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := a.identity.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrUnauthorized) {
				ctx := context.WithValue(r.Context(), invalidTokenKey{}, true)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		ctx := identity.ContextWithPrincipal(r.Context(), principal)
		ctx = identity.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects requests that did not resolve to a principal.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.PrincipalFromContext(r.Context()); !ok {
			if invalid, _ := r.Context().Value(invalidTokenKey{}).(bool); invalid {
				writeError(w, r, http.StatusUnauthorized, "invalid token")
				return
			}
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
