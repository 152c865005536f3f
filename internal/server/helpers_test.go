package server

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/batch-hub/batch-hub/internal/blob"
	"github.com/batch-hub/batch-hub/internal/cache"
	"github.com/batch-hub/batch-hub/internal/config"
	"github.com/batch-hub/batch-hub/internal/remote"
	"github.com/batch-hub/batch-hub/internal/service"
	"github.com/batch-hub/batch-hub/internal/store"
)

func newQuietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestService 组装一个不触达网络的编排层，供路由器测试使用。
func newTestService(t *testing.T) *service.Service {
	t.Helper()

	root := t.TempDir()

	metaStore, err := store.New(filepath.Join(root, "meta.db"))
	if err != nil {
		t.Fatalf("创建元数据库失败: %v", err)
	}
	blobs, err := blob.NewFSStore(filepath.Join(root, "blobs"))
	if err != nil {
		t.Fatalf("创建 Blob 后端失败: %v", err)
	}
	cacheStore, err := cache.NewStore(config.CacheConfig{
		Enabled: true,
		Dir:     filepath.Join(root, "cache"),
		TTL:     config.Duration(time.Hour),
	})
	if err != nil {
		t.Fatalf("创建缓存失败: %v", err)
	}

	remoteCfg := config.RemoteConfig{
		BaseURL:        "http://remote.invalid",
		RequestTimeout: config.Duration(time.Second),
		MaxRetries:     1,
		BackoffFactor:  1,
	}
	client := remote.NewClient(remoteCfg, newQuietLogger())

	return service.New(client, metaStore, blobs, cacheStore, newQuietLogger(), remoteCfg)
}
