package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/batch-hub/batch-hub/internal/config"
)

func init() {
	MustRegister(config.BlobBackendFS, func(cfg config.StorageConfig) (Store, error) {
		return NewFSStore(cfg.BlobPath)
	})
}

// FSStore 基于本地文件系统的 Blob 后端。每个对象以 UUID 命名，
// 按 ID 前两位散列到子目录，旁边的 .meta 文件保存原始文件名与元数据。
type FSStore struct {
	basePath string
}

type fsMeta struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewFSStore 创建文件系统后端并确保根目录存在。
func NewFSStore(basePath string) (*FSStore, error) {
	if basePath == "" {
		return nil, newStorageError("init", fmt.Errorf("blob path is required"))
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, newStorageError("init", err)
	}
	return &FSStore{basePath: basePath}, nil
}

func (s *FSStore) dataPath(id string) string {
	return filepath.Join(s.basePath, id[:2], id)
}

func (s *FSStore) metaPath(id string) string {
	return s.dataPath(id) + ".meta"
}

func validID(id string) bool {
	if len(id) < 3 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Put 原子写入对象内容与元数据旁文件，返回新分配的 ID。
func (s *FSStore) Put(ctx context.Context, data []byte, name string, metadata map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", newStorageError("put", err)
	}

	id := uuid.NewString()
	dataPath := s.dataPath(id)
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return "", newStorageError("put", err)
	}

	if err := atomicWrite(dataPath, data); err != nil {
		return "", newStorageError("put", err)
	}

	metaBytes, err := json.Marshal(fsMeta{Name: name, Metadata: metadata})
	if err != nil {
		os.Remove(dataPath)
		return "", newStorageError("put", err)
	}
	if err := atomicWrite(s.metaPath(id), metaBytes); err != nil {
		os.Remove(dataPath)
		return "", newStorageError("put", err)
	}

	return id, nil
}

// Get 读取对象内容，对象不存在时返回 found=false 而非错误。
func (s *FSStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, newStorageError("get", err)
	}
	if !validID(id) {
		return nil, false, nil
	}

	data, err := os.ReadFile(s.dataPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, newStorageError("get", err)
	}
	return data, true, nil
}

// Delete 删除对象及其元数据旁文件，对象不存在时返回 false。
func (s *FSStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, newStorageError("delete", err)
	}
	if !validID(id) {
		return false, nil
	}

	err := os.Remove(s.dataPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, newStorageError("delete", err)
	}

	// 元数据旁文件尽力清理，缺失不视为失败
	_ = os.Remove(s.metaPath(id))
	return true, nil
}

// Exists 报告对象是否存在。
func (s *FSStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, newStorageError("exists", err)
	}
	if !validID(id) {
		return false, nil
	}

	_, err := os.Stat(s.dataPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, newStorageError("exists", err)
	}
	return true, nil
}

// Meta 返回对象的原始文件名与元数据。
func (s *FSStore) Meta(ctx context.Context, id string) (string, map[string]string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, false, newStorageError("meta", err)
	}
	if !validID(id) {
		return "", nil, false, nil
	}

	raw, err := os.ReadFile(s.metaPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, newStorageError("meta", err)
	}

	var meta fsMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", nil, false, newStorageError("meta", err)
	}
	return meta.Name, meta.Metadata, true, nil
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".blob-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
