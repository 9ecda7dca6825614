package biz

import (
	"context"
	"time"

	"github.com/kevinliu948/storeit-backend/internal/file/filetype"
	apperrors "github.com/kevinliu948/storeit-backend/internal/pkg/errors"
	userbiz "github.com/kevinliu948/storeit-backend/internal/user/biz"
)

// CategoryUsage accumulates one category's share of the quota.
type CategoryUsage struct {
	Size       int64
	LatestDate time.Time // max updated_at among the category's files
}

// SpaceUsage is the quota summary. One fixed field per category: a file
// with an unknown category cannot be dropped silently, it simply cannot
// exist (filetype.Detect is total over the five categories).
type SpaceUsage struct {
	Document CategoryUsage
	Image    CategoryUsage
	Video    CategoryUsage
	Audio    CategoryUsage
	Other    CategoryUsage
	Used     int64
	All      int64
}

// Bucket returns the accumulator for a category.
func (s *SpaceUsage) Bucket(c filetype.Category) *CategoryUsage {
	switch c {
	case filetype.Document:
		return &s.Document
	case filetype.Image:
		return &s.Image
	case filetype.Video:
		return &s.Video
	case filetype.Audio:
		return &s.Audio
	default:
		return &s.Other
	}
}

// TotalSpaceUsed folds the user's owned files into a quota summary.
// Shared-with-me files never count; only ownership does. Zero files leaves
// every bucket at its zero value.
func (uc *FileUseCase) TotalSpaceUsed(ctx context.Context, user *userbiz.User) (*SpaceUsage, error) {
	files, err := uc.repo.ListOwnedBy(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to fetch owned files")
	}

	usage := &SpaceUsage{All: uc.capacity}
	for _, f := range files {
		bucket := usage.Bucket(f.Type)
		bucket.Size += f.Size
		usage.Used += f.Size

		if f.UpdatedAt.After(bucket.LatestDate) {
			bucket.LatestDate = f.UpdatedAt
		}
	}

	return usage, nil
}
