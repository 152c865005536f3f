package store

import (
	"context"
	"errors"
	"time"

	driver "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/batch-hub/batch-hub/internal/entity"
)

// Store 是组织与批次记录的持久层。
type Store struct {
	db *gorm.DB
}

// New 打开（或创建）SQLite 元数据库并完成建表。
func New(path string) (*Store, error) {
	db, err := gorm.Open(driver.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, newStorageError("open", err)
	}

	// SQLite 单写者约束，串行化连接避免并发下载时的 SQLITE_BUSY
	sqlDB, err := db.DB()
	if err != nil {
		return nil, newStorageError("open", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.autoMigrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) autoMigrate() error {
	models := []any{
		&orgRecord{},
		&batchRecord{},
	}

	if err := s.db.AutoMigrate(models...); err != nil {
		return newStorageError("migrate", err)
	}
	return nil
}

// GetOrg 按组织码查找记录；不存在时 found=false 而非错误。
func (s *Store) GetOrg(ctx context.Context, orgCode string) (*entity.Org, bool, error) {
	var dbo orgRecord

	err := s.db.WithContext(ctx).First(&dbo, "org_code = ?", orgCode).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, newStorageError("get_org", err)
	}

	return dbo.toEntity(), true, nil
}

// UpsertOrg 创建或整体覆盖组织记录。
func (s *Store) UpsertOrg(ctx context.Context, org *entity.Org) error {
	dbo := orgRecordFromEntity(org)

	if err := s.db.WithContext(ctx).Save(&dbo).Error; err != nil {
		return newStorageError("upsert_org", err)
	}
	return nil
}

// DeleteOrg 删除组织记录，返回是否确实删除了一行。
func (s *Store) DeleteOrg(ctx context.Context, orgCode string) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&orgRecord{}, "org_code = ?", orgCode)
	if result.Error != nil {
		return false, newStorageError("delete_org", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetBatch 按批次 ID 查找记录。
func (s *Store) GetBatch(ctx context.Context, batchID string) (*entity.Batch, bool, error) {
	var dbo batchRecord

	err := s.db.WithContext(ctx).First(&dbo, "batch_id = ?", batchID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, newStorageError("get_batch", err)
	}

	return dbo.toEntity(), true, nil
}

// GetBatchesByOrg 返回组织下的全部批次记录，按创建时间排序。
func (s *Store) GetBatchesByOrg(ctx context.Context, orgCode string) ([]*entity.Batch, error) {
	var dbos []batchRecord

	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&dbos, "org_code = ?", orgCode).Error
	if err != nil {
		return nil, newStorageError("get_batches_by_org", err)
	}

	batches := make([]*entity.Batch, len(dbos))
	for i := range dbos {
		batches[i] = dbos[i].toEntity()
	}
	return batches, nil
}

// UpsertBatch 创建或整体覆盖批次记录。
func (s *Store) UpsertBatch(ctx context.Context, batch *entity.Batch) error {
	dbo := batchRecordFromEntity(batch)

	if err := s.db.WithContext(ctx).Save(&dbo).Error; err != nil {
		return newStorageError("upsert_batch", err)
	}
	return nil
}

// BatchUpdate 描述一次部分更新：nil 字段保持原值，按字段 last-write-wins。
type BatchUpdate struct {
	BlobRef      *string
	FileSize     *int64
	ContentType  *string
	DownloadedAt *time.Time
}

// UpdateBatchFields 仅更新 BatchUpdate 中显式给出的列，绝不覆盖其余字段。
// 记录不存在时返回 (false, nil)。
func (s *Store) UpdateBatchFields(ctx context.Context, batchID string, update BatchUpdate) (bool, error) {
	columns := map[string]any{}
	if update.BlobRef != nil {
		columns["blob_ref"] = *update.BlobRef
	}
	if update.FileSize != nil {
		columns["file_size"] = *update.FileSize
	}
	if update.ContentType != nil {
		columns["content_type"] = *update.ContentType
	}
	if update.DownloadedAt != nil {
		columns["downloaded_at"] = *update.DownloadedAt
	}
	if len(columns) == 0 {
		return false, nil
	}

	result := s.db.WithContext(ctx).Model(&batchRecord{}).
		Where("batch_id = ?", batchID).
		Updates(columns)
	if result.Error != nil {
		return false, newStorageError("update_batch_fields", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteBatch 删除单个批次记录。
func (s *Store) DeleteBatch(ctx context.Context, batchID string) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&batchRecord{}, "batch_id = ?", batchID)
	if result.Error != nil {
		return false, newStorageError("delete_batch", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteBatchesByOrg 批量删除组织下的批次记录，返回删除行数。
func (s *Store) DeleteBatchesByOrg(ctx context.Context, orgCode string) (int64, error) {
	result := s.db.WithContext(ctx).Delete(&batchRecord{}, "org_code = ?", orgCode)
	if result.Error != nil {
		return 0, newStorageError("delete_batches_by_org", result.Error)
	}
	return result.RowsAffected, nil
}
