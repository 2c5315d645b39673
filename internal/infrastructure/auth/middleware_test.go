package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/honeynil/AccountService/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	svc := newTestJWTService(t, testSecret, "HS256")

	var gotSubject, gotEmail string
	protected := AuthMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = SubjectFromContext(r.Context())
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		gotEmail, _ = claims[models.ClaimEmail].(string)
		w.WriteHeader(http.StatusNoContent)
	}))

	valid, err := svc.Issue("42", map[string]any{"email": "a@b.com"}, time.Hour)
	require.NoError(t, err)
	expired, err := svc.Issue("42", nil, -time.Minute)
	require.NoError(t, err)

	t.Run("valid bearer token", func(t *testing.T) {
		gotSubject, gotEmail = "", ""
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+valid)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "42", gotSubject)
		assert.Equal(t, "a@b.com", gotEmail)
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.Header.Set("Authorization", "bearer "+valid)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	rejected := []struct {
		name   string
		header string
		detail string
	}{
		{"missing header", "", "Not authenticated"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "Not authenticated"},
		{"empty token", "Bearer ", "Not authenticated"},
		{"garbage token", "Bearer not.a.jwt", "Could not validate credentials"},
		{"expired token", "Bearer " + expired, "Could not validate credentials"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.detail, body["detail"])
		})
	}
}

func TestSubjectFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	sub, ok := SubjectFromContext(req.Context())
	assert.False(t, ok)
	assert.Empty(t, sub)
}
