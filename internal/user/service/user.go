package service

import (
	"github.com/gin-gonic/gin"
	"github.com/kevinliu948/storeit-backend/internal/auth/middleware"
	"github.com/kevinliu948/storeit-backend/internal/pkg/response"
	"github.com/kevinliu948/storeit-backend/internal/user/biz"
	"go.uber.org/zap"
)

type UserService struct {
	uc     *biz.UserUseCase
	logger *zap.Logger
}

func NewUserService(uc *biz.UserUseCase, logger *zap.Logger) *UserService {
	return &UserService{
		uc:     uc,
		logger: logger,
	}
}

type UserResponse struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
	CreatedAt string `json:"created_at"`
}

// GetCurrentUser returns the signed-in user's profile.
func (s *UserService) GetCurrentUser(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return
	}

	user, err := s.uc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("failed to resolve current user", zap.String("user_id", userID), zap.Error(err))
		response.NotFound(c, "user not found")
		return
	}

	response.Success(c, s.toResponse(user))
}

func (s *UserService) toResponse(user *biz.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		AccountID: user.AccountID,
		FullName:  user.FullName,
		Email:     user.Email,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func (s *UserService) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("/me", s.GetCurrentUser)
	}
}
