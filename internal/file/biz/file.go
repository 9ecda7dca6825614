package biz

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kevinliu948/storeit-backend/internal/file/filetype"
	apperrors "github.com/kevinliu948/storeit-backend/internal/pkg/errors"
	"github.com/kevinliu948/storeit-backend/internal/pkg/logger"
	userbiz "github.com/kevinliu948/storeit-backend/internal/user/biz"
	"go.uber.org/zap"
)

// File is the metadata record for one stored file.
type File struct {
	ID           string
	Name         string
	Type         filetype.Category
	Extension    string
	URL          string // empty while the upload is in flight
	Size         int64
	OwnerID      string
	AccountID    string
	Users        []string // emails granted access; replaced wholesale on share
	BucketFileID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SharedWith reports whether the given email is on the file's share list.
func (f *File) SharedWith(email string) bool {
	for _, e := range f.Users {
		if e == email {
			return true
		}
	}
	return false
}

// VisibleTo implements the visibility rule: owner or shared-with.
func (f *File) VisibleTo(user *userbiz.User) bool {
	return f.OwnerID == user.ID || f.SharedWith(user.Email)
}

// FileRepo is the metadata store.
type FileRepo interface {
	Create(ctx context.Context, file *File) error
	GetByID(ctx context.Context, id string) (*File, error)
	List(ctx context.Context, q *ListQuery) ([]*File, error)
	ListOwnedBy(ctx context.Context, ownerID string) ([]*File, error)
	UpdateURL(ctx context.Context, id, url string) error
	UpdateName(ctx context.Context, id, name string) error
	UpdateUsers(ctx context.Context, id string, users []string) error
	Delete(ctx context.Context, id string) error
}

// ChunkState is one confirmed chunk of an in-flight upload.
type ChunkState struct {
	BucketFileID string
	Index        int
	Size         int64
	ETag         string
	ConfirmedAt  time.Time
}

// ChunkRepo persists per-chunk completion state so interrupted uploads can
// be resumed instead of restarted.
type ChunkRepo interface {
	Confirm(ctx context.Context, chunk *ChunkState) error
	ListConfirmed(ctx context.Context, bucketFileID string) ([]*ChunkState, error)
	DeleteByBucketFileID(ctx context.Context, bucketFileID string) error
}

// ChunkStore is the object storage boundary.
type ChunkStore interface {
	// PutChunk stores one chunk under the upload's bucket file ID.
	PutChunk(ctx context.Context, bucketFileID string, index int, r io.Reader, size int64) (etag string, err error)
	// Compose merges the uploaded chunks into the final object.
	Compose(ctx context.Context, bucketFileID string, totalChunks int) error
	// Remove deletes the final object and any leftover chunk parts.
	Remove(ctx context.Context, bucketFileID string) error
	// Open streams the composed object.
	Open(ctx context.Context, bucketFileID string) (io.ReadCloser, error)
	// ObjectURL derives the access URL for a completed upload.
	ObjectURL(bucketFileID string) string
}

// Revalidator invalidates a cached rendered view after a mutation.
type Revalidator interface {
	Revalidate(ctx context.Context, path string) error
}

// Notifier tells users a file was shared with them. Implementations must be
// safe to skip: a nil Notifier disables notifications.
type Notifier interface {
	NotifyShared(ctx context.Context, fileName, ownerName string, emails []string) error
}

// FileUseCase carries the business logic for every file operation.
type FileUseCase struct {
	repo     FileRepo
	chunks   ChunkRepo
	store    ChunkStore
	cache    Revalidator
	notifier Notifier
	capacity int64
	logger   *logger.Logger
}

func NewFileUseCase(
	repo FileRepo,
	chunks ChunkRepo,
	store ChunkStore,
	cache Revalidator,
	notifier Notifier,
	capacity int64,
	log *logger.Logger,
) *FileUseCase {
	return &FileUseCase{
		repo:     repo,
		chunks:   chunks,
		store:    store,
		cache:    cache,
		notifier: notifier,
		capacity: capacity,
		logger:   log,
	}
}

// ListFilesRequest carries the caller-supplied listing options.
type ListFilesRequest struct {
	Types  []string
	Search string
	Sort   string // "column-direction", e.g. "created_at-desc"
	Limit  int
}

// ListQuery is the composed, validated query handed verbatim to the
// metadata store. The visibility predicate always comes first and cannot be
// disabled.
type ListQuery struct {
	OwnerID     string
	SharedEmail string
	Types       []filetype.Category
	Search      string
	Limit       int
	SortColumn  string
	SortDesc    bool
}

// DefaultSort orders by newest first.
const DefaultSort = "created_at-desc"

var sortableColumns = map[string]bool{
	"name":       true,
	"size":       true,
	"created_at": true,
	"updated_at": true,
}

// ComposeListQuery validates and normalizes a listing request into the
// query the data layer executes. It performs no filtering itself.
func ComposeListQuery(user *userbiz.User, req *ListFilesRequest) (*ListQuery, error) {
	q := &ListQuery{
		OwnerID:     user.ID,
		SharedEmail: user.Email,
		Search:      req.Search,
	}

	for _, t := range req.Types {
		if !filetype.Valid(t) {
			return nil, apperrors.New(apperrors.ErrFileInvalidParams, fmt.Sprintf("unknown file type %q", t))
		}
		q.Types = append(q.Types, filetype.Category(t))
	}

	if req.Limit < 0 {
		return nil, apperrors.New(apperrors.ErrFileInvalidParams, "limit must not be negative")
	}
	q.Limit = req.Limit

	sort := req.Sort
	if sort == "" {
		sort = DefaultSort
	}
	column, direction, _ := strings.Cut(sort, "-")
	if !sortableColumns[column] {
		return nil, apperrors.New(apperrors.ErrFileInvalidParams, fmt.Sprintf("cannot sort by %q", column))
	}
	q.SortColumn = column
	q.SortDesc = direction != "asc"

	return q, nil
}

// ListFiles returns the files visible to the user, filtered and sorted per
// the request.
func (uc *FileUseCase) ListFiles(ctx context.Context, user *userbiz.User, req *ListFilesRequest) ([]*File, error) {
	q, err := ComposeListQuery(user, req)
	if err != nil {
		return nil, err
	}

	files, err := uc.repo.List(ctx, q)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to fetch files")
	}
	return files, nil
}

// RenameFile sets name to "{base}.{extension}". Owner only.
func (uc *FileUseCase) RenameFile(ctx context.Context, user *userbiz.User, fileID, base, extension, path string) (*File, error) {
	file, err := uc.authorizeOwner(ctx, user, fileID)
	if err != nil {
		return nil, err
	}

	newName := base
	if extension != "" {
		newName = fmt.Sprintf("%s.%s", base, extension)
	}

	if err := uc.repo.UpdateName(ctx, file.ID, newName); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to rename file")
	}
	file.Name = newName

	uc.revalidate(ctx, path)
	return file, nil
}

// UpdateFileUsers replaces the file's share list with emails. Owner only.
// The list is not merged: the caller computes the desired final set.
func (uc *FileUseCase) UpdateFileUsers(ctx context.Context, user *userbiz.User, fileID string, emails []string, path string) (*File, error) {
	file, err := uc.authorizeOwner(ctx, user, fileID)
	if err != nil {
		return nil, err
	}

	if emails == nil {
		emails = []string{}
	}

	added := newlyShared(file.Users, emails)

	if err := uc.repo.UpdateUsers(ctx, file.ID, emails); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to share file")
	}
	file.Users = emails

	if uc.notifier != nil && len(added) > 0 {
		if err := uc.notifier.NotifyShared(ctx, file.Name, user.FullName, added); err != nil {
			uc.logger.Warn("share notification failed",
				zap.String("file_id", file.ID),
				zap.Strings("emails", added),
				zap.Error(err))
		}
	}

	uc.revalidate(ctx, path)
	return file, nil
}

// DeleteFile removes the metadata record, then the backing object. Owner
// only. Record deletion is committed first: if object deletion fails, the
// operation reports failure while the record stays deleted (the object is
// orphaned, matching the documented lifecycle).
func (uc *FileUseCase) DeleteFile(ctx context.Context, user *userbiz.User, fileID, path string) error {
	file, err := uc.authorizeOwner(ctx, user, fileID)
	if err != nil {
		return err
	}

	if err := uc.repo.Delete(ctx, file.ID); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to delete file")
	}

	if err := uc.chunks.DeleteByBucketFileID(ctx, file.BucketFileID); err != nil {
		uc.logger.Warn("failed to clear chunk state", zap.String("bucket_file_id", file.BucketFileID), zap.Error(err))
	}

	if err := uc.store.Remove(ctx, file.BucketFileID); err != nil {
		uc.logger.Error("record deleted but object removal failed",
			zap.String("file_id", file.ID),
			zap.String("bucket_file_id", file.BucketFileID),
			zap.Error(err))
		return apperrors.Wrap(err, apperrors.ErrFileStorageFailed, "failed to delete stored object")
	}

	uc.revalidate(ctx, path)
	return nil
}

// Download streams the composed object for a file visible to the user.
func (uc *FileUseCase) Download(ctx context.Context, user *userbiz.User, fileID string) (io.ReadCloser, *File, error) {
	file, err := uc.repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrFileNotFound)
	}

	if !file.VisibleTo(user) {
		return nil, nil, apperrors.New(apperrors.ErrFileUnauthorized)
	}

	if file.URL == "" {
		return nil, nil, apperrors.New(apperrors.ErrFileIncomplete)
	}

	rc, err := uc.store.Open(ctx, file.BucketFileID)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrFileStorageFailed, "failed to open stored object")
	}
	return rc, file, nil
}

// authorizeOwner loads the record and verifies the caller owns it. The
// elevated storage credential grants network access only; per-record
// authority is checked here.
func (uc *FileUseCase) authorizeOwner(ctx context.Context, user *userbiz.User, fileID string) (*File, error) {
	file, err := uc.repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrFileNotFound)
	}

	if file.OwnerID != user.ID {
		return nil, apperrors.New(apperrors.ErrFileUnauthorized)
	}
	return file, nil
}

func (uc *FileUseCase) revalidate(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := uc.cache.Revalidate(ctx, path); err != nil {
		uc.logger.Warn("cache revalidation failed", zap.String("path", path), zap.Error(err))
	}
}

// newlyShared returns the emails present in next but not in prev.
func newlyShared(prev, next []string) []string {
	seen := make(map[string]bool, len(prev))
	for _, e := range prev {
		seen[e] = true
	}

	var added []string
	for _, e := range next {
		if !seen[e] {
			added = append(added, e)
		}
	}
	return added
}
