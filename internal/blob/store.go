package blob

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/batch-hub/batch-hub/internal/config"
)

// Store 是持久 Blob 层的统一契约。Put 返回后端分配的不透明 ID；
// Get/Delete/Exists 以 found 布尔值表达“不存在”，错误仅表示后端故障。
type Store interface {
	Put(ctx context.Context, data []byte, name string, metadata map[string]string) (string, error)
	Get(ctx context.Context, id string) ([]byte, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// StorageError 表示 Blob 后端不可用或操作失败。
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("blob operation %q failed: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(op string, cause error) error {
	return &StorageError{Op: op, Cause: cause}
}

// Factory 按存储配置构造具体后端。
type Factory func(cfg config.StorageConfig) (Store, error)

var globalRegistry = newRegistry()

type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func newRegistry() *registry {
	return &registry{factories: make(map[string]Factory)}
}

// Register 将后端工厂加入全局注册表，重复键会返回错误。
func Register(key string, factory Factory) error {
	return globalRegistry.register(key, factory)
}

// MustRegister 在注册失败时 panic，适合后端 init() 中调用。
func MustRegister(key string, factory Factory) {
	if err := Register(key, factory); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的后端工厂。
func Resolve(key string) (Factory, bool) {
	return globalRegistry.resolve(key)
}

// Open 根据配置中的 BlobBackend 构造后端实例。
func Open(cfg config.StorageConfig) (Store, error) {
	factory, ok := Resolve(cfg.BlobBackend)
	if !ok {
		return nil, fmt.Errorf("blob backend %s is not registered", cfg.BlobBackend)
	}
	return factory(cfg)
}

func (r *registry) normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *registry) register(key string, factory Factory) error {
	normalized := r.normalizeKey(key)
	if normalized == "" {
		return fmt.Errorf("blob backend key is required")
	}
	if factory == nil {
		return fmt.Errorf("blob backend %s has no factory", normalized)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[normalized]; exists {
		return fmt.Errorf("blob backend %s already registered", normalized)
	}
	r.factories[normalized] = factory
	return nil
}

func (r *registry) resolve(key string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[r.normalizeKey(key)]
	return factory, ok
}
