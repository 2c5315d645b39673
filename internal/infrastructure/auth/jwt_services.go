package auth

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/honeynil/AccountService/internal/config"
	"github.com/honeynil/AccountService/internal/infrastructure/observability"
	"github.com/honeynil/AccountService/internal/models"
	pkgerrors "github.com/honeynil/AccountService/pkg/errors"
)

// Internal causes behind pkgerrors.ErrInvalidToken. Decode wraps both, so
// callers can match the public kind while tests and logs see the reason.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenAlgorithm = errors.New("token algorithm mismatch")
	ErrTokenClaims    = errors.New("token claims invalid")
)

type JWTService struct {
	secret     []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
	now        func() time.Time
}

type Option func(*JWTService)

// WithClock replaces the wall clock used for exp, iat and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		s.now = now
	}
}

func NewJWTService(cfg config.AuthConfig, opts ...Option) (*JWTService, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: secret key", pkgerrors.ErrMissingConfig)
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("%w: access token ttl must be positive", pkgerrors.ErrInvalidConfig)
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", pkgerrors.ErrInvalidConfig, cfg.Algorithm)
	}

	s := &JWTService{
		secret:     []byte(cfg.SecretKey),
		method:     method,
		defaultTTL: cfg.AccessTokenTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for subject. A zero expiresIn selects the default TTL.
// Extra claims may not use the sub or exp keys.
func (s *JWTService) Issue(subject string, extra map[string]any, expiresIn time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", pkgerrors.ErrInvalidInput)
	}
	for _, key := range []string{models.ClaimSubject, models.ClaimExpiresAt} {
		if _, ok := extra[key]; ok {
			return "", fmt.Errorf("%w: %q cannot be set as an extra claim", pkgerrors.ErrReservedClaim, key)
		}
	}

	if expiresIn == 0 {
		expiresIn = s.defaultTTL
	}
	now := s.now().UTC()

	claims := jwt.MapClaims{}
	maps.Copy(claims, extra)
	claims[models.ClaimSubject] = subject
	claims[models.ClaimIssuedAt] = jwt.NewNumericDate(now)
	claims[models.ClaimExpiresAt] = jwt.NewNumericDate(now.Add(expiresIn))

	token, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	observability.TokensIssued.Inc()
	return token, nil
}

// Decode verifies signature, algorithm and expiry, and returns the claims.
// Every failure matches pkgerrors.ErrInvalidToken.
func (s *JWTService) Decode(tokenString string) (models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, s.keyFunc,
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, s.invalid(classify(err), err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, s.invalid(ErrTokenClaims, errors.New("unexpected claims type"))
	}
	if sub, ok := claims[models.ClaimSubject].(string); !ok || sub == "" {
		return nil, s.invalid(ErrTokenClaims, errors.New("missing subject"))
	}
	return models.Claims(claims), nil
}

// DefaultExpiry returns the configured TTL, or minutes[0] minutes when given.
func (s *JWTService) DefaultExpiry(minutes ...int) time.Duration {
	if len(minutes) == 0 {
		return s.defaultTTL
	}
	return time.Duration(minutes[0]) * time.Minute
}

func (s *JWTService) keyFunc(token *jwt.Token) (any, error) {
	if token.Method == nil || token.Method.Alg() != s.method.Alg() {
		return nil, ErrTokenAlgorithm
	}
	return s.secret, nil
}

func (s *JWTService) invalid(cause, detail error) error {
	observability.TokenFailures.WithLabelValues(reasonLabel(cause)).Inc()
	return fmt.Errorf("%w: %w: %v", pkgerrors.ErrInvalidToken, cause, detail)
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrTokenAlgorithm), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenAlgorithm
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenClaims
	}
}

func reasonLabel(cause error) string {
	switch cause {
	case ErrTokenMalformed:
		return "malformed"
	case ErrTokenSignature:
		return "signature"
	case ErrTokenExpired:
		return "expired"
	case ErrTokenAlgorithm:
		return "algorithm"
	default:
		return "claims"
	}
}
