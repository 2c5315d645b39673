package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	stderrors "errors"

	"github.com/honeynil/AccountService/internal/infrastructure/kafka"
	"github.com/honeynil/AccountService/internal/infrastructure/redis"
	"github.com/honeynil/AccountService/internal/models"
	"github.com/honeynil/AccountService/internal/repository"
	pkgerrors "github.com/honeynil/AccountService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TokenTypeBearer = "bearer"

	publishRetries = 3
	publishTimeout = 5 * time.Second
)

//go:generate mockgen -destination=mocks/mock_account_service.go -package=mocks . AccountService

type AccountService interface {
	Signup(ctx context.Context, in SignupInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.TokenResponse, error)
	Profile(ctx context.Context, userID int64) (*models.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenIssuer interface {
	Issue(subject string, extra map[string]any, expiresIn time.Duration) (string, error)
	DefaultExpiry(minutes ...int) time.Duration
}

type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type accountService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	cache    redis.RedisClient
	producer kafka.KafkaProducer
	cacheTTL time.Duration

	retryDelay time.Duration
	pending    sync.WaitGroup

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	cache redis.RedisClient,
	producer kafka.KafkaProducer,
	cacheTTL time.Duration,
) *accountService {
	return &accountService{
		userRepo:   userRepo,
		hasher:     hasher,
		tokens:     tokens,
		cache:      cache,
		producer:   producer,
		cacheTTL:   cacheTTL,
		retryDelay: time.Second,
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *accountService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	ctx, span := otel.Tracer("account-service").Start(ctx, "Signup")
	defer span.End()

	user := &models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     NormalizeEmail(in.Email),
	}
	if user.FirstName == "" || user.LastName == "" || user.Email == "" || in.Password == "" {
		span.SetStatus(codes.Error, "empty signup field")
		return nil, pkgerrors.ErrInvalidInput
	}

	existing, err := s.userRepo.GetByEmail(ctx, user.Email)
	if existing != nil {
		span.SetStatus(codes.Error, "email already registered")
		slog.Warn("email already registered", "existing_id", existing.ID)
		return nil, pkgerrors.ErrUserAlreadyExists
	}
	if err != nil && !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user check failed")
		slog.Error("failed to check user existence", "error", err)
		return nil, fmt.Errorf("%w: failed to check user existence", pkgerrors.ErrInternal)
	}

	user.PasswordHash, err = s.hasher.Hash(in.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		slog.Error("failed to hash password", "error", err)
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user creation failed")
		if stderrors.Is(err, pkgerrors.ErrUserAlreadyExists) {
			return nil, pkgerrors.ErrUserAlreadyExists
		}
		if stderrors.Is(err, pkgerrors.ErrInvalidInput) {
			return nil, err
		}
		slog.Error("failed to create user in DB", "error", err)
		return nil, fmt.Errorf("%w: failed to create user", pkgerrors.ErrInternal)
	}

	span.SetAttributes(attribute.Int64("user_id", user.ID))
	s.publishRegistered(user)

	slog.Info("user registered successfully", "user_id", user.ID)
	return user, nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	ctx, span := otel.Tracer("account-service").Start(ctx, "Login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrUserNotFound) || stderrors.Is(err, pkgerrors.ErrInvalidInput) {
			// Burn a comparable amount of CPU so unknown emails are not
			// distinguishable by response time.
			s.hasher.Verify(password, s.timingHash())
			span.SetStatus(codes.Error, "invalid credentials")
			return nil, pkgerrors.ErrInvalidCredentials
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("failed to look up user", "error", err)
		return nil, fmt.Errorf("%w: failed to look up user", pkgerrors.ErrInternal)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		span.SetStatus(codes.Error, "invalid credentials")
		slog.Warn("invalid password", "user_id", user.ID)
		return nil, pkgerrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(
		strconv.FormatInt(user.ID, 10),
		map[string]any{models.ClaimEmail: user.Email},
		s.tokens.DefaultExpiry(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token issue failed")
		slog.Error("failed to issue access token", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: failed to issue token", pkgerrors.ErrInternal)
	}

	slog.Info("user logged in", "user_id", user.ID)
	return &models.TokenResponse{AccessToken: token, TokenType: TokenTypeBearer}, nil
}

func (s *accountService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	ctx, span := otel.Tracer("account-service").Start(ctx, "Profile")
	span.SetAttributes(attribute.Int64("user_id", userID))
	defer span.End()

	key := models.ProfileCacheKey(userID)
	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var user models.User
		if err := json.Unmarshal([]byte(cached), &user); err == nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return &user, nil
		}
		slog.Warn("discarding corrupt profile cache entry", "user_id", userID)
	case !stderrors.Is(err, redis.ErrKeyNotFound):
		span.RecordError(err)
		slog.Error("failed to read profile cache", "user_id", userID, "error", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrUserNotFound) {
			span.SetStatus(codes.Error, "user not found")
			return nil, pkgerrors.ErrUserNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, fmt.Errorf("%w: failed to load profile", pkgerrors.ErrInternal)
	}

	if payload, err := json.Marshal(user); err == nil {
		if err := s.cache.Set(ctx, key, string(payload), s.cacheTTL); err != nil {
			span.RecordError(err)
			slog.Error("failed to cache profile", "user_id", userID, "error", err)
		}
	}
	return user, nil
}

// Wait blocks until in-flight event publications finish.
func (s *accountService) Wait() {
	s.pending.Wait()
}

func (s *accountService) publishRegistered(user *models.User) {
	eventBytes, err := json.Marshal(models.NewUserRegisteredEvent(user))
	if err != nil {
		slog.Error("failed to marshal kafka event", "user_id", user.ID, "error", err)
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		for i := 0; i < publishRetries; i++ {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			err := s.producer.Send(ctx, models.TopicUsers, user.ID, eventBytes)
			cancel()
			if err == nil {
				slog.Info("user registration event sent", "user_id", user.ID)
				return
			}
			time.Sleep(s.retryDelay * time.Duration(i+1))
		}
		slog.Error("failed to send user registration event after retries", "user_id", user.ID)
	}()
}

func (s *accountService) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("timing-equalization-placeholder")
		if err != nil {
			slog.Error("failed to prepare timing hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
