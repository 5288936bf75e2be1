package middlewares

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/buddy-ya/chat-engine/internal/auth"
	"github.com/buddy-ya/chat-engine/internal/contextkeys"
)

// writeAuthError writes JSON-formatted error responses for auth failures
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// RequireMemberAuth verifies the bearer credential before any pipeline work
// begins and stores the verified claims in the request context.
func RequireMemberAuth(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.VerifyRequest(r)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
				return
			}
			ctx := ContextWithMemberClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithMemberClaims returns a context carrying verified claims.
func ContextWithMemberClaims(ctx context.Context, claims *auth.MemberClaims) context.Context {
	return context.WithValue(ctx, contextkeys.MemberClaimsKey, claims)
}

// GetMemberClaims pulls the verified claims back out of the context. Nil when
// the middleware did not run.
func GetMemberClaims(ctx context.Context) *auth.MemberClaims {
	claims, _ := ctx.Value(contextkeys.MemberClaimsKey).(*auth.MemberClaims)
	return claims
}
