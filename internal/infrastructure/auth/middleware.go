package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/honeynil/AccountService/internal/models"
)

// TokenDecoder is satisfied by *JWTService.
type TokenDecoder interface {
	Decode(token string) (models.Claims, error)
}

type contextKey int

const (
	subjectKey contextKey = iota
	claimsKey
)

func AuthMiddleware(decoder TokenDecoder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Not authenticated")
				return
			}

			scheme, tokenStr, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenStr) == "" {
				unauthorized(w, "Not authenticated")
				return
			}

			claims, err := decoder.Decode(strings.TrimSpace(tokenStr))
			if err != nil {
				slog.Warn("rejected bearer token", "reason", failureReason(err), "path", r.URL.Path)
				unauthorized(w, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject())
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)
	return sub, ok && sub != ""
}

func ClaimsFromContext(ctx context.Context) (models.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(models.Claims)
	return claims, ok
}

// ContextWithClaims is used by tests and by callers that authenticate
// requests outside the HTTP middleware.
func ContextWithClaims(ctx context.Context, claims models.Claims) context.Context {
	ctx = context.WithValue(ctx, subjectKey, claims.Subject())
	return context.WithValue(ctx, claimsKey, claims)
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func failureReason(err error) string {
	for _, cause := range []error{ErrTokenMalformed, ErrTokenSignature, ErrTokenExpired, ErrTokenAlgorithm, ErrTokenClaims} {
		if errors.Is(err, cause) {
			return reasonLabel(cause)
		}
	}
	return "unknown"
}
