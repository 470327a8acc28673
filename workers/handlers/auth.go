package handlers

import (
	"context"
	"net/http"
	"strings"
)

type callerKey struct{}

func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the authenticated account of the request, or "".
func CallerFrom(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

// Authenticate maps "Authorization: Bearer <key>" to the account id the key
// belongs to. Requests without a known key go on anonymously and fail the
// bridge's own caller checks.
func Authenticate(keys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
			if account, ok := keys[token]; ok && token != "" {
				r = r.WithContext(WithCaller(r.Context(), account))
			}
			next.ServeHTTP(w, r)
		})
	}
}
