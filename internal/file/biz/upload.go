package biz

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/kevinliu948/storeit-backend/internal/file/filetype"
	apperrors "github.com/kevinliu948/storeit-backend/internal/pkg/errors"
	userbiz "github.com/kevinliu948/storeit-backend/internal/user/biz"
	"go.uber.org/zap"
)

// ChunkSize is the fixed transfer unit of the upload pipeline. 10 MiB also
// clears the object store's 5 MiB minimum part size for server-side compose.
const ChunkSize int64 = 10 << 20

// UploadRequest carries one upload attempt.
type UploadRequest struct {
	Name      string
	Size      int64
	Data      io.Reader
	OwnerID   string
	AccountID string
	Path      string
	// ResumeFileID names an existing incomplete record whose remaining
	// chunks should be uploaded. Empty for a fresh upload.
	ResumeFileID string
}

// ChunkCount returns how many chunks a file of the given size needs.
func ChunkCount(size int64) int {
	if size <= 0 {
		return 0
	}
	return int((size + ChunkSize - 1) / ChunkSize)
}

// ChunkRange returns the byte range [start, end) of chunk i for a file of
// the given size. Ranges are contiguous, non-overlapping, and cover [0, size).
func ChunkRange(size int64, i int) (start, end int64) {
	start = int64(i) * ChunkSize
	end = start + ChunkSize
	if end > size {
		end = size
	}
	return start, end
}

// UploadFile runs the whole pipeline: create the metadata record (url="")
// before any bytes move, upload chunks strictly sequentially under one
// bucket file ID, compose the final object, then patch the record with the
// access URL. Any chunk failure aborts the attempt; the record and already
// stored chunks are left in place so the upload can be resumed.
func (uc *FileUseCase) UploadFile(ctx context.Context, user *userbiz.User, req *UploadRequest) (*File, error) {
	if req.Name == "" {
		return nil, apperrors.New(apperrors.ErrFileInvalidParams, "file name is required")
	}
	if req.Size <= 0 {
		return nil, apperrors.New(apperrors.ErrFileInvalidParams, "file size must be positive")
	}

	file, confirmed, err := uc.prepareUpload(ctx, user, req)
	if err != nil {
		return nil, err
	}

	totalChunks := ChunkCount(req.Size)
	uc.logger.Info("starting chunked upload",
		zap.String("file_id", file.ID),
		zap.String("bucket_file_id", file.BucketFileID),
		zap.Int64("size", req.Size),
		zap.Int("total_chunks", totalChunks),
		zap.Int("already_confirmed", len(confirmed)))

	for i := 0; i < totalChunks; i++ {
		start, end := ChunkRange(req.Size, i)
		chunkLen := end - start

		if confirmed[i] {
			// Chunk already stored by a previous attempt; skip its bytes.
			if _, err := io.CopyN(io.Discard, req.Data, chunkLen); err != nil {
				return nil, apperrors.Wrapf(err, apperrors.ErrFileUploadFailed, "failed to skip chunk %d", i)
			}
			continue
		}

		etag, err := uc.store.PutChunk(ctx, file.BucketFileID, i, io.LimitReader(req.Data, chunkLen), chunkLen)
		if err != nil {
			uc.logger.Error("chunk upload failed",
				zap.String("bucket_file_id", file.BucketFileID),
				zap.Int("chunk", i),
				zap.Int("total_chunks", totalChunks),
				zap.Error(err))
			return nil, apperrors.Wrapf(err, apperrors.ErrFileUploadFailed, "chunk %d/%d", i+1, totalChunks)
		}

		if err := uc.chunks.Confirm(ctx, &ChunkState{
			BucketFileID: file.BucketFileID,
			Index:        i,
			Size:         chunkLen,
			ETag:         etag,
			ConfirmedAt:  time.Now(),
		}); err != nil {
			// The chunk is stored; losing its completion row only costs a
			// re-upload on resume.
			uc.logger.Warn("failed to persist chunk state",
				zap.String("bucket_file_id", file.BucketFileID),
				zap.Int("chunk", i),
				zap.Error(err))
		}
	}

	if err := uc.store.Compose(ctx, file.BucketFileID, totalChunks); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrFileUploadFailed, "failed to assemble uploaded chunks")
	}

	if err := uc.chunks.DeleteByBucketFileID(ctx, file.BucketFileID); err != nil {
		uc.logger.Warn("failed to clear chunk state", zap.String("bucket_file_id", file.BucketFileID), zap.Error(err))
	}

	url := uc.store.ObjectURL(file.BucketFileID)
	if err := uc.repo.UpdateURL(ctx, file.ID, url); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to finalize file record")
	}
	file.URL = url

	uc.revalidate(ctx, req.Path)
	return file, nil
}

// prepareUpload either creates a fresh metadata record or, when resuming,
// loads the existing incomplete one. It returns the record and the set of
// chunk indexes already confirmed.
func (uc *FileUseCase) prepareUpload(ctx context.Context, user *userbiz.User, req *UploadRequest) (*File, map[int]bool, error) {
	if req.ResumeFileID != "" {
		file, err := uc.authorizeOwner(ctx, user, req.ResumeFileID)
		if err != nil {
			return nil, nil, err
		}
		if file.URL != "" {
			return nil, nil, apperrors.New(apperrors.ErrConflict, "file upload already completed")
		}
		if file.Size != req.Size {
			return nil, nil, apperrors.New(apperrors.ErrFileInvalidParams,
				fmt.Sprintf("size mismatch: record has %d, request has %d", file.Size, req.Size))
		}

		states, err := uc.chunks.ListConfirmed(ctx, file.BucketFileID)
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to load chunk state")
		}
		confirmed := make(map[int]bool, len(states))
		for _, s := range states {
			confirmed[s.Index] = true
		}
		return file, confirmed, nil
	}

	if err := uc.checkQuota(ctx, req.OwnerID, req.Size); err != nil {
		return nil, nil, err
	}

	category, extension := filetype.Detect(req.Name)
	file := &File{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Type:         category,
		Extension:    extension,
		URL:          "",
		Size:         req.Size,
		OwnerID:      req.OwnerID,
		AccountID:    req.AccountID,
		Users:        []string{},
		BucketFileID: uuid.NewString(),
	}

	if err := uc.repo.Create(ctx, file); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to create file record")
	}

	return file, map[int]bool{}, nil
}

// checkQuota rejects uploads that would push the owner past the capacity
// ceiling. Runs before the record is created so failed checks leave no
// trace.
func (uc *FileUseCase) checkQuota(ctx context.Context, ownerID string, size int64) error {
	files, err := uc.repo.ListOwnedBy(ctx, ownerID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to check quota")
	}

	var used int64
	for _, f := range files {
		used += f.Size
	}

	if used+size > uc.capacity {
		return apperrors.New(apperrors.ErrFileQuotaExceeded,
			fmt.Sprintf("%d bytes used of %d", used, uc.capacity))
	}
	return nil
}
