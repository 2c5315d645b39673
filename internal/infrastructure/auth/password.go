package auth

import (
	"fmt"
	"time"

	"github.com/honeynil/AccountService/internal/infrastructure/observability"
	pkgerrors "github.com/honeynil/AccountService/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes passwords into self-describing bcrypt strings
// ($2a$<cost>$<salt><digest>). It holds no mutable state.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: empty password", pkgerrors.ErrHashFailure)
	}

	start := time.Now()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	observability.PasswordHashDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %v", pkgerrors.ErrHashFailure, err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A malformed hash never matches.
func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
