package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/honeynil/AccountService/internal/infrastructure/observability"
	"github.com/honeynil/AccountService/internal/models"
	pkgerrors "github.com/honeynil/AccountService/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxNameLength  = 100
	maxEmailLength = 120

	uniqueViolation = "23505"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, span := otel.Tracer("user-repository").Start(ctx, "CreateUser")
	defer span.End()
	defer observe(span, "CreateUser", time.Now(), &err)

	if err = validateUser(user); err != nil {
		slog.Error("invalid user", "method", "Create", "error", err)
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `INSERT INTO users (first_name, last_name, email, hashed_password) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err = dbTx.QueryRowContext(ctx, query, user.FirstName, user.LastName, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			err = pkgerrors.ErrUserAlreadyExists
		}
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "Create", "error", rbErr)
			err = fmt.Errorf("rollback failed: %v; original error: %w", rbErr, err)
			return err
		}
		if stderrors.Is(err, pkgerrors.ErrUserAlreadyExists) {
			slog.Warn("email already registered", "method", "Create")
			return err
		}
		slog.Error("failed to create user", "method", "Create", "error", err)
		err = fmt.Errorf("failed to create user: %w", err)
		return err
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Create", "error", err)
		err = fmt.Errorf("failed to commit transaction: %w", err)
		return err
	}

	span.SetAttributes(attribute.Int64("user_id", user.ID))
	slog.Info("user created", "method", "Create", "user_id", user.ID)
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (user *models.User, err error) {
	ctx, span := otel.Tracer("user-repository").Start(ctx, "GetUserByID")
	span.SetAttributes(attribute.Int64("user_id", id))
	defer span.End()
	defer observe(span, "GetUserByID", time.Now(), &err)

	query := `SELECT id, first_name, last_name, email, hashed_password, created_at FROM users WHERE id = $1`
	user, err = scanUser(r.db.QueryRowContext(ctx, query, id))
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		err = pkgerrors.ErrUserNotFound
		return nil, err
	case err != nil:
		slog.Error("failed to get user by id", "method", "GetByID", "user_id", id, "error", err)
		err = fmt.Errorf("failed to get user by id: %w", err)
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (user *models.User, err error) {
	ctx, span := otel.Tracer("user-repository").Start(ctx, "GetUserByEmail")
	defer span.End()
	defer observe(span, "GetUserByEmail", time.Now(), &err)

	if email == "" {
		err = fmt.Errorf("%w: email cannot be empty", pkgerrors.ErrInvalidInput)
		return nil, err
	}

	query := `SELECT id, first_name, last_name, email, hashed_password, created_at FROM users WHERE email = $1`
	user, err = scanUser(r.db.QueryRowContext(ctx, query, email))
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		err = pkgerrors.ErrUserNotFound
		return nil, err
	case err != nil:
		slog.Error("failed to get user by email", "method", "GetByEmail", "error", err)
		err = fmt.Errorf("failed to get user by email: %w", err)
		return nil, err
	}
	return user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func validateUser(user *models.User) error {
	switch {
	case user == nil:
		return pkgerrors.ErrNilUser
	case user.FirstName == "" || user.LastName == "":
		return fmt.Errorf("%w: first_name and last_name are required", pkgerrors.ErrInvalidInput)
	case utf8.RuneCountInString(user.FirstName) > maxNameLength || utf8.RuneCountInString(user.LastName) > maxNameLength:
		return fmt.Errorf("%w: name too long", pkgerrors.ErrInvalidInput)
	case user.Email == "":
		return fmt.Errorf("%w: email is required", pkgerrors.ErrInvalidInput)
	case utf8.RuneCountInString(user.Email) > maxEmailLength:
		return fmt.Errorf("%w: email too long", pkgerrors.ErrInvalidInput)
	case user.PasswordHash == "":
		return fmt.Errorf("%w: hashed_password is required", pkgerrors.ErrInvalidInput)
	}
	return nil
}

// observe records the call outcome on the span and in the repository metrics.
// A missing row is an expected outcome, not an error.
func observe(span trace.Span, method string, start time.Time, errp *error) {
	status := "success"
	if err := *errp; err != nil && !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.RepositoryCalls.WithLabelValues(method, status).Inc()
	observability.RepositoryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
