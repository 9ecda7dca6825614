package biz

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/kevinliu948/storeit-backend/internal/pkg/errors"
)

// User represents the domain model
type User struct {
	ID        string
	AccountID string
	FullName  string
	Email     string
	Avatar    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserRepo defines the interface for user data operations
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// UserUseCase contains business logic for user operations
type UserUseCase struct {
	repo UserRepo
}

func NewUserUseCase(repo UserRepo) *UserUseCase {
	return &UserUseCase{repo: repo}
}

// GetCurrentUser resolves the signed-in user from the session's user ID.
func (uc *UserUseCase) GetCurrentUser(ctx context.Context, userID string) (*User, error) {
	user, err := uc.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUserNotFound)
	}

	if user.Avatar == "" {
		user.Avatar = AvatarURL(user.FullName)
	}

	return user, nil
}

// AvatarURL builds an initials-avatar URL for the given display name.
func AvatarURL(fullName string) string {
	name := strings.TrimSpace(fullName)
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s", url.QueryEscape(name))
}
