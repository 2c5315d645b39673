package repository

import (
	"context"

	"github.com/honeynil/AccountService/internal/models"
)

//go:generate mockgen -destination=mocks/mock_user_repository.go -package=mocks . UserRepository

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
