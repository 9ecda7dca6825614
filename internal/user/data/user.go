package data

import (
	"context"
	"fmt"
	"time"

	"github.com/kevinliu948/storeit-backend/internal/user/biz"
	"gorm.io/gorm"
)

// UserPO is the user database model
type UserPO struct {
	ID        string    `gorm:"type:uuid;primarykey"`
	AccountID string    `gorm:"column:account_id;size:64;not null;uniqueIndex:idx_user_account_id"`
	FullName  string    `gorm:"column:full_name;size:255;not null"`
	Email     string    `gorm:"column:email;size:255;not null;uniqueIndex:idx_user_email"`
	Avatar    string    `gorm:"column:avatar;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (UserPO) TableName() string {
	return "users"
}

// UserRepo implements biz.UserRepo on PostgreSQL
type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*biz.User, error) {
	var po UserPO
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toDomain(&po), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*biz.User, error) {
	var po UserPO
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&po).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return toDomain(&po), nil
}

func toDomain(po *UserPO) *biz.User {
	return &biz.User{
		ID:        po.ID,
		AccountID: po.AccountID,
		FullName:  po.FullName,
		Email:     po.Email,
		Avatar:    po.Avatar,
		CreatedAt: po.CreatedAt,
		UpdatedAt: po.UpdatedAt,
	}
}
