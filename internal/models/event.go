package models

import (
	"fmt"
	"time"
)

const (
	TopicUsers             = "users"
	EventUserRegistered    = "user_registered"
	profileCacheKeyPattern = "user:%d:profile"
)

type UserRegisteredEvent struct {
	EventType string    `json:"event_type"`
	UserID    int64     `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserRegisteredEvent(u *User) UserRegisteredEvent {
	return UserRegisteredEvent{
		EventType: EventUserRegistered,
		UserID:    u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC(),
	}
}

func (e UserRegisteredEvent) User() *User {
	return &User{
		ID:        e.UserID,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Email:     e.Email,
		CreatedAt: e.CreatedAt,
	}
}

// ProfileCacheKey is the Redis key holding the JSON profile of a user.
func ProfileCacheKey(userID int64) string {
	return fmt.Sprintf(profileCacheKeyPattern, userID)
}
