package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/batch-hub/batch-hub/internal/entity"
)

type orgRecord struct {
	OrgCode    string      `gorm:"column:org_code;primaryKey"`
	OrgName    string      `gorm:"column:org_name;not null"`
	BatchCount int         `gorm:"column:batch_count;not null"`
	CreatedAt  time.Time   `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time   `gorm:"column:updated_at;not null"`
	Metadata   metadataMap `gorm:"column:metadata;type:blob"`
}

func (orgRecord) TableName() string {
	return "org_codes"
}

func (r *orgRecord) toEntity() *entity.Org {
	return &entity.Org{
		OrgCode:    r.OrgCode,
		OrgName:    r.OrgName,
		BatchCount: r.BatchCount,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Metadata:   map[string]any(r.Metadata),
	}
}

func orgRecordFromEntity(org *entity.Org) orgRecord {
	return orgRecord{
		OrgCode:    org.OrgCode,
		OrgName:    org.OrgName,
		BatchCount: org.BatchCount,
		CreatedAt:  org.CreatedAt,
		UpdatedAt:  org.UpdatedAt,
		Metadata:   metadataMap(org.Metadata),
	}
}

type batchRecord struct {
	BatchID      string      `gorm:"column:batch_id;primaryKey"`
	OrgCode      string      `gorm:"column:org_code;not null;index"`
	BatchName    string      `gorm:"column:batch_name;not null"`
	Filename     string      `gorm:"column:filename;not null"`
	FileSize     int64       `gorm:"column:file_size;not null"`
	ContentType  string      `gorm:"column:content_type;not null"`
	BlobRef      string      `gorm:"column:blob_ref"`
	CreatedAt    time.Time   `gorm:"column:created_at;not null"`
	DownloadedAt *time.Time  `gorm:"column:downloaded_at"`
	Metadata     metadataMap `gorm:"column:metadata;type:blob"`
}

func (batchRecord) TableName() string {
	return "batch_files"
}

func (r *batchRecord) toEntity() *entity.Batch {
	return &entity.Batch{
		BatchID:      r.BatchID,
		OrgCode:      r.OrgCode,
		BatchName:    r.BatchName,
		Filename:     r.Filename,
		FileSize:     r.FileSize,
		ContentType:  r.ContentType,
		BlobRef:      r.BlobRef,
		CreatedAt:    r.CreatedAt,
		DownloadedAt: r.DownloadedAt,
		Metadata:     map[string]any(r.Metadata),
	}
}

func batchRecordFromEntity(batch *entity.Batch) batchRecord {
	return batchRecord{
		BatchID:      batch.BatchID,
		OrgCode:      batch.OrgCode,
		BatchName:    batch.BatchName,
		Filename:     batch.Filename,
		FileSize:     batch.FileSize,
		ContentType:  batch.ContentType,
		BlobRef:      batch.BlobRef,
		CreatedAt:    batch.CreatedAt,
		DownloadedAt: batch.DownloadedAt,
		Metadata:     metadataMap(batch.Metadata),
	}
}

// metadataMap 以 JSON 形式存档自由格式的远端描述。
type metadataMap map[string]any

func (m *metadataMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}

	result := map[string]any{}
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*m = metadataMap(result)

	return nil
}

func (m metadataMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}

	return json.Marshal(m)
}
