package service

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kevinliu948/storeit-backend/internal/auth/middleware"
	"github.com/kevinliu948/storeit-backend/internal/file/biz"
	apperrors "github.com/kevinliu948/storeit-backend/internal/pkg/errors"
	"github.com/kevinliu948/storeit-backend/internal/pkg/response"
	userbiz "github.com/kevinliu948/storeit-backend/internal/user/biz"
)

type FileService struct {
	uc            *biz.FileUseCase
	userUC        *userbiz.UserUseCase
	maxUploadSize int64
	logger        *zap.Logger
}

func NewFileService(uc *biz.FileUseCase, userUC *userbiz.UserUseCase, maxUploadSize int64, logger *zap.Logger) *FileService {
	return &FileService{
		uc:            uc,
		userUC:        userUC,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

type FileResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Extension    string   `json:"extension"`
	URL          string   `json:"url"`
	Size         int64    `json:"size"`
	OwnerID      string   `json:"owner_id"`
	AccountID    string   `json:"account_id"`
	Users        []string `json:"users"`
	BucketFileID string   `json:"bucket_file_id"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

func toFileResponse(f *biz.File) *FileResponse {
	users := f.Users
	if users == nil {
		users = []string{}
	}
	return &FileResponse{
		ID:           f.ID,
		Name:         f.Name,
		Type:         string(f.Type),
		Extension:    f.Extension,
		URL:          f.URL,
		Size:         f.Size,
		OwnerID:      f.OwnerID,
		AccountID:    f.AccountID,
		Users:        users,
		BucketFileID: f.BucketFileID,
		CreatedAt:    f.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:    f.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// UploadFile accepts a multipart form with fields:
//
//	file     the payload (required)
//	path     view path to revalidate after the upload
//	file_id  existing incomplete record to resume (optional)
func (s *FileService) UploadFile(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file field")
		return
	}

	if s.maxUploadSize > 0 && fh.Size > s.maxUploadSize {
		response.ErrorWithCode(c, apperrors.ErrFileTooLarge,
			fmt.Sprintf("file exceeds the %d byte upload limit", s.maxUploadSize))
		return
	}

	src, err := fh.Open()
	if err != nil {
		response.InternalError(c, "failed to read upload")
		return
	}
	defer src.Close()

	file, err := s.uc.UploadFile(c.Request.Context(), user, &biz.UploadRequest{
		Name:         fh.Filename,
		Size:         fh.Size,
		Data:         src,
		OwnerID:      user.ID,
		AccountID:    user.AccountID,
		Path:         c.PostForm("path"),
		ResumeFileID: c.PostForm("file_id"),
	})
	if err != nil {
		s.logger.Error("upload failed",
			zap.String("user_id", user.ID),
			zap.String("file_name", fh.Filename),
			zap.Error(err))
		response.HandleError(c, err)
		return
	}

	response.Created(c, toFileResponse(file))
}

// ListFiles returns the files visible to the caller.
// Query: types (comma-separated), search, sort ("column-direction"), limit.
func (s *FileService) ListFiles(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	req := &biz.ListFilesRequest{
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
	}

	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				req.Types = append(req.Types, t)
			}
		}
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "limit must be an integer")
			return
		}
		req.Limit = limit
	}

	files, err := s.uc.ListFiles(c.Request.Context(), user, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]*FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	response.Success(c, gin.H{"total": len(out), "files": out})
}

type RenameFileRequest struct {
	Name      string `json:"name" binding:"required"`
	Extension string `json:"extension"`
	Path      string `json:"path"`
}

func (s *FileService) RenameFile(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	var req RenameFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	file, err := s.uc.RenameFile(c.Request.Context(), user, c.Param("id"), req.Name, req.Extension, req.Path)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toFileResponse(file))
}

type UpdateFileUsersRequest struct {
	Emails []string `json:"emails"`
	Path   string   `json:"path"`
}

// UpdateFileUsers replaces the file's share list with the request's emails.
func (s *FileService) UpdateFileUsers(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	var req UpdateFileUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	file, err := s.uc.UpdateFileUsers(c.Request.Context(), user, c.Param("id"), req.Emails, req.Path)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toFileResponse(file))
}

func (s *FileService) DeleteFile(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	if err := s.uc.DeleteFile(c.Request.Context(), user, c.Param("id"), c.Query("path")); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

type CategoryUsageResponse struct {
	Size       int64  `json:"size"`
	LatestDate string `json:"latest_date,omitempty"`
}

type SpaceUsageResponse struct {
	Document CategoryUsageResponse `json:"document"`
	Image    CategoryUsageResponse `json:"image"`
	Video    CategoryUsageResponse `json:"video"`
	Audio    CategoryUsageResponse `json:"audio"`
	Other    CategoryUsageResponse `json:"other"`
	Used     int64                 `json:"used"`
	All      int64                 `json:"all"`
}

func toCategoryUsage(u biz.CategoryUsage) CategoryUsageResponse {
	out := CategoryUsageResponse{Size: u.Size}
	if !u.LatestDate.IsZero() {
		out.LatestDate = u.LatestDate.Format("2006-01-02 15:04:05")
	}
	return out
}

// GetUsage returns the caller's per-category quota summary.
func (s *FileService) GetUsage(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	usage, err := s.uc.TotalSpaceUsed(c.Request.Context(), user)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, &SpaceUsageResponse{
		Document: toCategoryUsage(usage.Document),
		Image:    toCategoryUsage(usage.Image),
		Video:    toCategoryUsage(usage.Video),
		Audio:    toCategoryUsage(usage.Audio),
		Other:    toCategoryUsage(usage.Other),
		Used:     usage.Used,
		All:      usage.All,
	})
}

// Download streams the stored object with the file's original name.
func (s *FileService) Download(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	rc, file, err := s.uc.Download(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Length", strconv.FormatInt(file.Size, 10))
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, rc); err != nil {
		s.logger.Warn("download stream interrupted",
			zap.String("file_id", file.ID),
			zap.Error(err))
	}
}

// currentUser resolves the session subject into a full user record. Writes
// the error response itself when resolution fails.
func (s *FileService) currentUser(c *gin.Context) (*userbiz.User, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing session")
		return nil, false
	}

	user, err := s.userUC.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("failed to resolve current user", zap.String("user_id", userID), zap.Error(err))
		response.HandleError(c, err)
		return nil, false
	}
	return user, true
}

func (s *FileService) RegisterRoutes(r *gin.RouterGroup) {
	files := r.Group("/files")
	{
		files.POST("", s.UploadFile)
		files.GET("", s.ListFiles)
		files.GET("/usage", s.GetUsage)
		files.GET("/:id/download", s.Download)
		files.PATCH("/:id/rename", s.RenameFile)
		files.PATCH("/:id/users", s.UpdateFileUsers)
		files.DELETE("/:id", s.DeleteFile)
	}
}
