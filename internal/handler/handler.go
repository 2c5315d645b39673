package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/honeynil/AccountService/internal/infrastructure/auth"
	"github.com/honeynil/AccountService/internal/infrastructure/observability"
	service "github.com/honeynil/AccountService/internal/services"
	pkgerrors "github.com/honeynil/AccountService/pkg/errors"
)

const (
	detailEmailTaken         = "An account with this email already exists."
	detailInvalidCredentials = "Invalid credentials. Check email or password."
	detailNotAuthenticated   = "Not authenticated"
	detailUserNotFound       = "User not found"
	detailInternal           = "Internal server error"
)

type Handler struct {
	service  service.AccountService
	validate *validator.Validate
}

func NewHandler(s service.AccountService) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{service: s, validate: v}
}

type signupRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Email     string `json:"email" validate:"required,email,max=120"`
	Password  string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/", h.Root).Methods(http.MethodGet)
	r.HandleFunc("/api/users/signup", h.Signup).Methods(http.MethodPost)
	r.HandleFunc("/api/users/login", h.Login).Methods(http.MethodPost)
}

// RegisterProtectedRoutes expects r to be mounted under /api/users behind
// the auth middleware.
func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.Me).Methods(http.MethodGet)
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Backend is running successfully!"})
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.Signup(r.Context(), service.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrUserAlreadyExists):
			writeError(w, http.StatusBadRequest, detailEmailTaken)
		case errors.Is(err, pkgerrors.ErrHashFailure):
			writeError(w, http.StatusBadRequest, "Password cannot be used. Choose a shorter password.")
		case errors.Is(err, pkgerrors.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Names, email and password must be non-empty and within length limits.")
		default:
			observability.WithContext(r.Context()).Error("signup failed", "error", err)
			writeError(w, http.StatusInternalServerError, detailInternal)
		}
		return
	}

	writeJSON(w, http.StatusCreated, user.Response())
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, detailInvalidCredentials)
		} else {
			observability.WithContext(r.Context()).Error("login failed", "error", err)
			writeError(w, http.StatusInternalServerError, detailInternal)
		}
		return
	}

	writeJSON(w, http.StatusOK, token)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, detailNotAuthenticated)
		return
	}
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, detailUserNotFound)
		} else {
			observability.WithContext(r.Context()).Error("profile lookup failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, detailInternal)
		}
		return
	}

	writeJSON(w, http.StatusOK, user.Response())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON.")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationDetail(err))
		return false
	}
	return true
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request."
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
