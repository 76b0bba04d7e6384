package repository

import (
	"context"
	"errors"

	"panel-auth/internal/domain"
)

var (
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrNotFound is returned when no user matches the query.
	ErrNotFound = errors.New("user not found")
)

// UserRepository defines persistence operations for User entities.
// Implementations must make changes durable before returning success.
type UserRepository interface {
	Init(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateUsername(ctx context.Context, id int64, username string) error
	List(ctx context.Context) ([]domain.User, error)
}
