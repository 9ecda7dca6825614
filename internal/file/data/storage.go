package data

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// MinIOChunkStore implements biz.ChunkStore on a MinIO/S3 bucket. Chunks
// live under chunks/{bucketFileID}/{index}; the composed object under
// files/{bucketFileID}. The access URL is derived from the bucket file ID
// alone, so it is stable across retries of the same upload.
type MinIOChunkStore struct {
	client  *minio.Client
	bucket  string
	baseURL string // scheme://host, used for access URLs
}

func NewMinIOChunkStore(client *minio.Client, bucket, publicEndpoint string, useSSL bool) *MinIOChunkStore {
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return &MinIOChunkStore{
		client:  client,
		bucket:  bucket,
		baseURL: fmt.Sprintf("%s://%s", scheme, publicEndpoint),
	}
}

func chunkObjectName(bucketFileID string, index int) string {
	return fmt.Sprintf("chunks/%s/%05d", bucketFileID, index)
}

func finalObjectName(bucketFileID string) string {
	return fmt.Sprintf("files/%s", bucketFileID)
}

func (s *MinIOChunkStore) PutChunk(ctx context.Context, bucketFileID string, index int, r io.Reader, size int64) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, chunkObjectName(bucketFileID, index), r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("failed to store chunk %d: %w", index, err)
	}
	return info.ETag, nil
}

// Compose merges the chunk objects into files/{bucketFileID} server-side,
// then removes the parts.
func (s *MinIOChunkStore) Compose(ctx context.Context, bucketFileID string, totalChunks int) error {
	srcs := make([]minio.CopySrcOptions, totalChunks)
	for i := 0; i < totalChunks; i++ {
		srcs[i] = minio.CopySrcOptions{
			Bucket: s.bucket,
			Object: chunkObjectName(bucketFileID, i),
		}
	}

	dst := minio.CopyDestOptions{
		Bucket: s.bucket,
		Object: finalObjectName(bucketFileID),
	}

	if _, err := s.client.ComposeObject(ctx, dst, srcs...); err != nil {
		return fmt.Errorf("failed to compose object: %w", err)
	}

	return s.removeParts(ctx, bucketFileID)
}

// Remove deletes the composed object and any leftover chunk parts.
func (s *MinIOChunkStore) Remove(ctx context.Context, bucketFileID string) error {
	err := s.client.RemoveObject(ctx, s.bucket, finalObjectName(bucketFileID), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return s.removeParts(ctx, bucketFileID)
}

func (s *MinIOChunkStore) removeParts(ctx context.Context, bucketFileID string) error {
	prefix := fmt.Sprintf("chunks/%s/", bucketFileID)

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list chunk parts: %w", obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove chunk part %s: %w", obj.Key, err)
		}
	}
	return nil
}

func (s *MinIOChunkStore) Open(ctx context.Context, bucketFileID string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, finalObjectName(bucketFileID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return obj, nil
}

func (s *MinIOChunkStore) ObjectURL(bucketFileID string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, finalObjectName(bucketFileID))
}
