package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/batch-hub/batch-hub/internal/config"
)

func newTestCache(t *testing.T, ttl time.Duration) *Store {
	t.Helper()

	store, err := NewStore(config.CacheConfig{
		Enabled: true,
		Dir:     filepath.Join(t.TempDir(), "cache"),
		TTL:     config.Duration(ttl),
	})
	if err != nil {
		t.Fatalf("创建缓存失败: %v", err)
	}
	return store
}

func TestCachePutGetRoundtrip(t *testing.T) {
	store := newTestCache(t, time.Hour)
	ctx := context.Background()
	payload := []byte("cached batch body")

	if err := store.Put(ctx, "batch-001", payload); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	data, found, err := store.Get(ctx, "batch-001")
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if !found {
		t.Fatal("刚写入的条目应命中")
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("读回内容不一致: got %q, want %q", data, payload)
	}
}

func TestCacheMiss(t *testing.T) {
	store := newTestCache(t, time.Hour)

	_, found, err := store.Get(context.Background(), "no-such-batch")
	if err != nil {
		t.Fatalf("未命中不应返回错误: %v", err)
	}
	if found {
		t.Error("未写入的条目不应命中")
	}
}

func TestCacheExpiryLazyReap(t *testing.T) {
	store := newTestCache(t, time.Hour)
	ctx := context.Background()

	if err := store.Put(ctx, "batch-old", []byte("stale")); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	// 将文件时间回拨到 TTL 之外
	filePath := filepath.Join(store.dir, "batch-old"+fileSuffix)
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(filePath, past, past); err != nil {
		t.Fatalf("回拨文件时间失败: %v", err)
	}

	_, found, err := store.Get(ctx, "batch-old")
	if err != nil {
		t.Fatalf("过期读取不应返回错误: %v", err)
	}
	if found {
		t.Error("过期条目应视为未命中")
	}

	if _, statErr := os.Stat(filePath); !os.IsNotExist(statErr) {
		t.Error("过期条目应在读取路径上被删除")
	}
}

func TestCachePutRefreshesTimestamp(t *testing.T) {
	store := newTestCache(t, time.Hour)
	ctx := context.Background()

	if err := store.Put(ctx, "batch-002", []byte("v1")); err != nil {
		t.Fatalf("第一次 Put 失败: %v", err)
	}

	filePath := filepath.Join(store.dir, "batch-002"+fileSuffix)
	past := time.Now().Add(-50 * time.Minute)
	if err := os.Chtimes(filePath, past, past); err != nil {
		t.Fatalf("回拨文件时间失败: %v", err)
	}

	if err := store.Put(ctx, "batch-002", []byte("v2")); err != nil {
		t.Fatalf("第二次 Put 失败: %v", err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		t.Fatalf("Stat 失败: %v", err)
	}
	if time.Since(info.ModTime()) > time.Minute {
		t.Error("重写后应刷新文件时间戳")
	}

	data, found, err := store.Get(ctx, "batch-002")
	if err != nil || !found {
		t.Fatalf("重写后应命中: found=%v err=%v", found, err)
	}
	if string(data) != "v2" {
		t.Errorf("应读到最新内容: got %q", data)
	}
}

func TestCacheRemove(t *testing.T) {
	store := newTestCache(t, time.Hour)
	ctx := context.Background()

	if err := store.Put(ctx, "batch-003", []byte("x")); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}
	if err := store.Remove(ctx, "batch-003"); err != nil {
		t.Fatalf("Remove 失败: %v", err)
	}

	if _, found, _ := store.Get(ctx, "batch-003"); found {
		t.Error("删除后不应命中")
	}

	// 幂等
	if err := store.Remove(ctx, "batch-003"); err != nil {
		t.Errorf("重复删除不应返回错误: %v", err)
	}
}

func TestCacheDisabled(t *testing.T) {
	store, err := NewStore(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("禁用缓存构造失败: %v", err)
	}
	if store.Enabled() {
		t.Error("Enabled 应为 false")
	}

	ctx := context.Background()
	if err := store.Put(ctx, "batch-004", []byte("ignored")); err != nil {
		t.Fatalf("禁用时 Put 应为空操作: %v", err)
	}
	if _, found, err := store.Get(ctx, "batch-004"); err != nil || found {
		t.Errorf("禁用时 Get 应始终未命中: found=%v err=%v", found, err)
	}
	if err := store.Remove(ctx, "batch-004"); err != nil {
		t.Errorf("禁用时 Remove 应为空操作: %v", err)
	}
}

func TestCacheRejectsPathTraversal(t *testing.T) {
	store := newTestCache(t, time.Hour)

	if err := store.Put(context.Background(), "../escape", []byte("x")); err == nil {
		t.Error("含路径分隔符的 ID 应被拒绝")
	}
	if _, _, err := store.Get(context.Background(), "a/b"); err == nil {
		t.Error("含路径分隔符的 ID 应被拒绝")
	}
}

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore(config.CacheConfig{Enabled: true, Dir: ""}); err == nil {
		t.Error("启用缓存但缺少目录应返回错误")
	}
	if _, err := NewStore(config.CacheConfig{Enabled: true, Dir: t.TempDir(), TTL: 0}); err == nil {
		t.Error("非正 TTL 应返回错误")
	}
}
