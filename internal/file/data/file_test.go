package data

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/kevinliu948/storeit-backend/internal/file/biz"
	"github.com/kevinliu948/storeit-backend/internal/file/filetype"
)

func TestFileMappingRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	file := &biz.File{
		ID:           "9b1a9e58-0000-4000-8000-000000000001",
		Name:         "quarterly-report.pdf",
		Type:         filetype.Document,
		Extension:    "pdf",
		URL:          "http://minio.local/storeit/files/abc",
		Size:         1 << 20,
		OwnerID:      "9b1a9e58-0000-4000-8000-000000000002",
		AccountID:    "acct-1",
		Users:        []string{"ada@example.com", "grace@example.com"},
		BucketFileID: "abc",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	got := toDomain(toPO(file))
	assert.Equal(t, file, got)
}

func TestToPONilUsersBecomesEmptyArray(t *testing.T) {
	po := toPO(&biz.File{ID: "f1"})
	assert.NotNil(t, po.Users)
	assert.Equal(t, pq.StringArray{}, po.Users)
}

func TestObjectNames(t *testing.T) {
	assert.Equal(t, "chunks/abc/00000", chunkObjectName("abc", 0))
	assert.Equal(t, "chunks/abc/00012", chunkObjectName("abc", 12))
	assert.Equal(t, "files/abc", finalObjectName("abc"))
}

func TestObjectURL(t *testing.T) {
	plain := NewMinIOChunkStore(nil, "storeit", "cdn.example.com", false)
	assert.Equal(t, "http://cdn.example.com/storeit/files/abc", plain.ObjectURL("abc"))

	tls := NewMinIOChunkStore(nil, "storeit", "cdn.example.com", true)
	assert.Equal(t, "https://cdn.example.com/storeit/files/abc", tls.ObjectURL("abc"))
}

func TestViewKey(t *testing.T) {
	assert.Equal(t, "view:/documents", viewKey("/documents"))
}
