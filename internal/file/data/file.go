package data

import (
	"context"
	"fmt"
	"time"

	"github.com/kevinliu948/storeit-backend/internal/file/biz"
	"github.com/kevinliu948/storeit-backend/internal/file/filetype"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// FilePO is the file metadata database model.
type FilePO struct {
	ID           string         `gorm:"type:uuid;primarykey"`
	Name         string         `gorm:"column:name;size:255;not null"`
	Type         string         `gorm:"column:type;size:20;not null;index:idx_file_type"`
	Extension    string         `gorm:"column:extension;size:20;not null"`
	URL          string         `gorm:"column:url;type:text;not null;default:''"`
	Size         int64          `gorm:"column:size;not null"`
	OwnerID      string         `gorm:"column:owner_id;type:uuid;not null;index:idx_file_owner"`
	AccountID    string         `gorm:"column:account_id;size:64;not null"`
	Users        pq.StringArray `gorm:"column:users;type:text[];not null"`
	BucketFileID string         `gorm:"column:bucket_file_id;type:uuid;not null;uniqueIndex:idx_file_bucket_id"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (FilePO) TableName() string {
	return "files"
}

// FileRepo implements biz.FileRepo on PostgreSQL.
type FileRepo struct {
	db *gorm.DB
}

func NewFileRepo(db *gorm.DB) *FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) Create(ctx context.Context, file *biz.File) error {
	po := toPO(file)
	po.CreatedAt = time.Now()
	po.UpdatedAt = po.CreatedAt

	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}

	file.CreatedAt = po.CreatedAt
	file.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *FileRepo) GetByID(ctx context.Context, id string) (*biz.File, error) {
	var po FilePO
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		return nil, fmt.Errorf("failed to get file record: %w", err)
	}
	return toDomain(&po), nil
}

// List executes a composed query. The visibility predicate is applied
// unconditionally; everything else is optional. No filtering or sorting
// happens in process.
func (r *FileRepo) List(ctx context.Context, q *biz.ListQuery) ([]*biz.File, error) {
	db := r.db.WithContext(ctx).Model(&FilePO{}).
		Where("owner_id = ? OR ? = ANY(users)", q.OwnerID, q.SharedEmail)

	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		db = db.Where("type IN ?", types)
	}

	if q.Search != "" {
		db = db.Where("name ILIKE ?", "%"+q.Search+"%")
	}

	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}
	db = db.Order(fmt.Sprintf("%s %s", q.SortColumn, direction))

	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var pos []FilePO
	if err := db.Find(&pos).Error; err != nil {
		return nil, fmt.Errorf("failed to list file records: %w", err)
	}

	files := make([]*biz.File, len(pos))
	for i := range pos {
		files[i] = toDomain(&pos[i])
	}
	return files, nil
}

func (r *FileRepo) ListOwnedBy(ctx context.Context, ownerID string) ([]*biz.File, error) {
	var pos []FilePO
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list owned files: %w", err)
	}

	files := make([]*biz.File, len(pos))
	for i := range pos {
		files[i] = toDomain(&pos[i])
	}
	return files, nil
}

func (r *FileRepo) UpdateURL(ctx context.Context, id, url string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"url": url})
}

func (r *FileRepo) UpdateName(ctx context.Context, id, name string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"name": name})
}

func (r *FileRepo) UpdateUsers(ctx context.Context, id string, users []string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"users": pq.StringArray(users)})
}

func (r *FileRepo) updateColumns(ctx context.Context, id string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&FilePO{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update file record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *FileRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&FilePO{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete file record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func toPO(file *biz.File) *FilePO {
	users := file.Users
	if users == nil {
		users = []string{}
	}
	return &FilePO{
		ID:           file.ID,
		Name:         file.Name,
		Type:         string(file.Type),
		Extension:    file.Extension,
		URL:          file.URL,
		Size:         file.Size,
		OwnerID:      file.OwnerID,
		AccountID:    file.AccountID,
		Users:        pq.StringArray(users),
		BucketFileID: file.BucketFileID,
		CreatedAt:    file.CreatedAt,
		UpdatedAt:    file.UpdatedAt,
	}
}

func toDomain(po *FilePO) *biz.File {
	return &biz.File{
		ID:           po.ID,
		Name:         po.Name,
		Type:         filetype.Category(po.Type),
		Extension:    po.Extension,
		URL:          po.URL,
		Size:         po.Size,
		OwnerID:      po.OwnerID,
		AccountID:    po.AccountID,
		Users:        []string(po.Users),
		BucketFileID: po.BucketFileID,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
}
