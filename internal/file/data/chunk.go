package data

import (
	"context"
	"fmt"
	"time"

	"github.com/kevinliu948/storeit-backend/internal/file/biz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UploadChunkPO records one confirmed chunk of an in-flight upload. Rows
// exist only between the first chunk of an upload and its final compose;
// they let a retried upload skip chunks the store already holds.
type UploadChunkPO struct {
	BucketFileID string    `gorm:"column:bucket_file_id;type:uuid;primarykey"`
	ChunkIndex   int       `gorm:"column:chunk_index;primarykey"`
	Size         int64     `gorm:"column:size;not null"`
	ETag         string    `gorm:"column:etag;size:64;not null"`
	ConfirmedAt  time.Time `gorm:"column:confirmed_at;not null;default:CURRENT_TIMESTAMP"`
}

func (UploadChunkPO) TableName() string {
	return "upload_chunks"
}

// ChunkRepo implements biz.ChunkRepo on PostgreSQL.
type ChunkRepo struct {
	db *gorm.DB
}

func NewChunkRepo(db *gorm.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) Confirm(ctx context.Context, chunk *biz.ChunkState) error {
	po := &UploadChunkPO{
		BucketFileID: chunk.BucketFileID,
		ChunkIndex:   chunk.Index,
		Size:         chunk.Size,
		ETag:         chunk.ETag,
		ConfirmedAt:  chunk.ConfirmedAt,
	}

	// A re-uploaded chunk overwrites its previous confirmation.
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bucket_file_id"}, {Name: "chunk_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"size", "etag", "confirmed_at"}),
	}).Create(po).Error
	if err != nil {
		return fmt.Errorf("failed to confirm chunk: %w", err)
	}
	return nil
}

func (r *ChunkRepo) ListConfirmed(ctx context.Context, bucketFileID string) ([]*biz.ChunkState, error) {
	var pos []UploadChunkPO
	err := r.db.WithContext(ctx).
		Where("bucket_file_id = ?", bucketFileID).
		Order("chunk_index ASC").
		Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed chunks: %w", err)
	}

	states := make([]*biz.ChunkState, len(pos))
	for i, po := range pos {
		states[i] = &biz.ChunkState{
			BucketFileID: po.BucketFileID,
			Index:        po.ChunkIndex,
			Size:         po.Size,
			ETag:         po.ETag,
			ConfirmedAt:  po.ConfirmedAt,
		}
	}
	return states, nil
}

func (r *ChunkRepo) DeleteByBucketFileID(ctx context.Context, bucketFileID string) error {
	err := r.db.WithContext(ctx).
		Where("bucket_file_id = ?", bucketFileID).
		Delete(&UploadChunkPO{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete chunk state: %w", err)
	}
	return nil
}
