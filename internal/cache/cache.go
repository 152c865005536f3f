package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/batch-hub/batch-hub/internal/config"
)

const fileSuffix = ".cache"

// Store 是批次正文的磁盘缓存层。磁盘布局遵循：
//
//	<Dir>/<batchID>.cache    # 实际正文
//
// 文件的 ModTime 即写入时间，读取时与 TTL 比较判断新鲜度；
// 过期条目在读取路径上惰性删除。
type Store struct {
	enabled bool
	dir     string
	ttl     time.Duration

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore 按缓存配置构建磁盘缓存。禁用时返回的实例所有读取
// 都视为未命中，写入为空操作。
func NewStore(cfg config.CacheConfig) (*Store, error) {
	if !cfg.Enabled {
		return &Store{enabled: false}, nil
	}

	if cfg.Dir == "" {
		return nil, errors.New("cache dir required")
	}

	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	ttl := cfg.TTL.DurationValue()
	if ttl <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}

	return &Store{
		enabled: true,
		dir:     abs,
		ttl:     ttl,
		locks:   make(map[string]*entryLock),
	}, nil
}

// Enabled 报告缓存层是否生效。
func (s *Store) Enabled() bool {
	return s.enabled
}

// Get 返回批次正文。未命中、已过期或缓存被禁用时 found 为 false。
// 过期条目会在此处被删除。
func (s *Store) Get(ctx context.Context, batchID string) ([]byte, bool, error) {
	if !s.enabled {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	filePath, err := s.path(batchID)
	if err != nil {
		return nil, false, err
	}

	info, err := os.Stat(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if time.Since(info.ModTime()) >= s.ttl {
		unlock := s.lockEntry(batchID)
		if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			unlock()
			return nil, false, err
		}
		unlock()
		return nil, false, nil
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put 写入批次正文并刷新条目时间戳。缓存被禁用时为空操作。
func (s *Store) Put(ctx context.Context, batchID string, data []byte) error {
	if !s.enabled {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := s.path(batchID)
	if err != nil {
		return err
	}

	unlock := s.lockEntry(batchID)
	defer unlock()

	tempFile, err := os.CreateTemp(s.dir, ".cache-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, writeErr := tempFile.Write(data)
	closeErr := tempFile.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tempName)
		return writeErr
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}

	now := time.Now()
	return os.Chtimes(filePath, now, now)
}

// Remove 删除批次对应的缓存条目，条目不存在不视为错误。
func (s *Store) Remove(ctx context.Context, batchID string) error {
	if !s.enabled {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := s.path(batchID)
	if err != nil {
		return err
	}

	unlock := s.lockEntry(batchID)
	defer unlock()

	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) path(batchID string) (string, error) {
	if batchID == "" {
		return "", errors.New("batch id required")
	}
	if strings.ContainsAny(batchID, "/\\") || strings.Contains(batchID, "..") {
		return "", errors.New("invalid batch id")
	}
	return filepath.Join(s.dir, batchID+fileSuffix), nil
}

func (s *Store) lockEntry(batchID string) func() {
	s.mu.Lock()
	lock := s.locks[batchID]
	if lock == nil {
		lock = &entryLock{}
		s.locks[batchID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, batchID)
		}
		s.mu.Unlock()
	}
}
