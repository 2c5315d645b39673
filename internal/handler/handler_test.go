package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/AccountService/internal/infrastructure/auth"
	"github.com/honeynil/AccountService/internal/models"
	service "github.com/honeynil/AccountService/internal/services"
	servicemocks "github.com/honeynil/AccountService/internal/services/mocks"
	pkgerrors "github.com/honeynil/AccountService/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestRouter(t *testing.T) (*mux.Router, *servicemocks.MockAccountService) {
	t.Helper()
	svc := servicemocks.NewMockAccountService(gomock.NewController(t))
	r := mux.NewRouter()
	NewHandler(svc).RegisterPublicRoutes(r)
	return r, svc
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Detail
}

func TestHandler_Root(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(r, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Backend is running successfully!"}`, rec.Body.String())
}

func TestHandler_Signup(t *testing.T) {
	const valid = `{"first_name":"John","last_name":"Doe","email":"john@example.com","password":"ExamplePass123!"}`

	t.Run("created", func(t *testing.T) {
		r, svc := newTestRouter(t)
		created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		svc.EXPECT().Signup(gomock.Any(), service.SignupInput{
			FirstName: "John", LastName: "Doe", Email: "john@example.com", Password: "ExamplePass123!",
		}).Return(&models.User{
			ID: 1, FirstName: "John", LastName: "Doe", Email: "john@example.com",
			PasswordHash: "$2a$04$secret", CreatedAt: created,
		}, nil)

		rec := do(r, http.MethodPost, "/api/users/signup", valid)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"id":1,"first_name":"John","last_name":"Doe","email":"john@example.com","created_at":"2024-05-01T12:00:00Z"}`, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "secret")
	})

	t.Run("multi-byte names within limit", func(t *testing.T) {
		r, svc := newTestRouter(t)
		name := strings.Repeat("Ж", 100)
		svc.EXPECT().Signup(gomock.Any(), service.SignupInput{
			FirstName: name, LastName: "Иванов", Email: "ivan@example.com", Password: "ExamplePass123!",
		}).Return(&models.User{ID: 2, FirstName: name, LastName: "Иванов", Email: "ivan@example.com"}, nil)

		rec := do(r, http.MethodPost, "/api/users/signup",
			`{"first_name":"`+name+`","last_name":"Иванов","email":"ivan@example.com","password":"ExamplePass123!"}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("repository rejects input", func(t *testing.T) {
		r, svc := newTestRouter(t)
		svc.EXPECT().Signup(gomock.Any(), gomock.Any()).Return(nil, pkgerrors.ErrInvalidInput)

		rec := do(r, http.MethodPost, "/api/users/signup", valid)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		r, svc := newTestRouter(t)
		svc.EXPECT().Signup(gomock.Any(), gomock.Any()).Return(nil, pkgerrors.ErrUserAlreadyExists)

		rec := do(r, http.MethodPost, "/api/users/signup", valid)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "An account with this email already exists.", detailOf(t, rec))
	})

	t.Run("internal failure hides cause", func(t *testing.T) {
		r, svc := newTestRouter(t)
		svc.EXPECT().Signup(gomock.Any(), gomock.Any()).Return(nil, errors.New("pq: connection refused"))

		rec := do(r, http.MethodPost, "/api/users/signup", valid)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", detailOf(t, rec))
	})

	t.Run("hash failure", func(t *testing.T) {
		r, svc := newTestRouter(t)
		svc.EXPECT().Signup(gomock.Any(), gomock.Any()).Return(nil, pkgerrors.ErrHashFailure)

		rec := do(r, http.MethodPost, "/api/users/signup", valid)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	invalid := []struct {
		name   string
		body   string
		detail string
	}{
		{"malformed json", `{"first_name":`, "Request body must be valid JSON."},
		{"short password", `{"first_name":"J","last_name":"D","email":"j@example.com","password":"short"}`, "password must be at least 8 characters"},
		{"bad email", `{"first_name":"J","last_name":"D","email":"not-an-email","password":"ExamplePass123!"}`, "email must be a valid email address"},
		{"missing name", `{"last_name":"D","email":"j@example.com","password":"ExamplePass123!"}`, "first_name is required"},
		{"long name", `{"first_name":"` + strings.Repeat("a", 101) + `","last_name":"D","email":"j@example.com","password":"ExamplePass123!"}`, "first_name must be at most 100 characters"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t)

			rec := do(r, http.MethodPost, "/api/users/signup", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.detail, detailOf(t, rec))
		})
	}
}

func TestHandler_Login(t *testing.T) {
	const body = `{"email":"john@example.com","password":"ExamplePass123!"}`

	t.Run("token issued", func(t *testing.T) {
		r, svc := newTestRouter(t)
		svc.EXPECT().Login(gomock.Any(), "john@example.com", "ExamplePass123!").
			Return(&models.TokenResponse{AccessToken: "a.b.c", TokenType: "bearer"}, nil)

		rec := do(r, http.MethodPost, "/api/users/login", body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"access_token":"a.b.c","token_type":"bearer"}`, rec.Body.String())
	})

	t.Run("invalid credentials", func(t *testing.T) {
		r, svc := newTestRouter(t)
		svc.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, pkgerrors.ErrInvalidCredentials)

		rec := do(r, http.MethodPost, "/api/users/login", body)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "Invalid credentials. Check email or password.", detailOf(t, rec))
	})

	t.Run("internal failure", func(t *testing.T) {
		r, svc := newTestRouter(t)
		svc.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, pkgerrors.ErrInternal)

		rec := do(r, http.MethodPost, "/api/users/login", body)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("short password", func(t *testing.T) {
		r, _ := newTestRouter(t)

		rec := do(r, http.MethodPost, "/api/users/login", `{"email":"john@example.com","password":"short"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "password must be at least 8 characters", detailOf(t, rec))
	})

	t.Run("missing password", func(t *testing.T) {
		r, _ := newTestRouter(t)

		rec := do(r, http.MethodPost, "/api/users/login", `{"email":"john@example.com"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "password is required", detailOf(t, rec))
	})
}

func TestHandler_Me(t *testing.T) {
	meRequest := func(sub string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		if sub != "" {
			req = req.WithContext(auth.ContextWithClaims(req.Context(), models.Claims{models.ClaimSubject: sub}))
		}
		return req
	}

	t.Run("profile", func(t *testing.T) {
		svc := servicemocks.NewMockAccountService(gomock.NewController(t))
		svc.EXPECT().Profile(gomock.Any(), int64(5)).Return(&models.User{ID: 5, Email: "ada@example.com"}, nil)
		rec := httptest.NewRecorder()

		NewHandler(svc).Me(rec, meRequest("5"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var got models.UserResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, int64(5), got.ID)
		assert.Equal(t, "ada@example.com", got.Email)
	})

	t.Run("no subject", func(t *testing.T) {
		svc := servicemocks.NewMockAccountService(gomock.NewController(t))
		rec := httptest.NewRecorder()

		NewHandler(svc).Me(rec, meRequest(""))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non numeric subject", func(t *testing.T) {
		svc := servicemocks.NewMockAccountService(gomock.NewController(t))
		rec := httptest.NewRecorder()

		NewHandler(svc).Me(rec, meRequest("abc"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Could not validate credentials", detailOf(t, rec))
	})

	t.Run("deleted user", func(t *testing.T) {
		svc := servicemocks.NewMockAccountService(gomock.NewController(t))
		svc.EXPECT().Profile(gomock.Any(), int64(9)).Return(nil, pkgerrors.ErrUserNotFound)
		rec := httptest.NewRecorder()

		NewHandler(svc).Me(rec, meRequest("9"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "User not found", detailOf(t, rec))
	})
}
