package service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/batch-hub/batch-hub/internal/blob"
	"github.com/batch-hub/batch-hub/internal/cache"
	"github.com/batch-hub/batch-hub/internal/config"
	"github.com/batch-hub/batch-hub/internal/remote"
	"github.com/batch-hub/batch-hub/internal/store"
)

// fakeUpstream 模拟远端批次 API，记录各端点的调用次数。
type fakeUpstream struct {
	server *httptest.Server

	listCalls    atomic.Int32
	resolveCalls atomic.Int32
	contentCalls atomic.Int32

	mu          sync.Mutex
	orgName     string
	batches     []map[string]any
	content     map[string][]byte
	failContent map[string]bool
	listStatus  int
	retryAfter  string
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()

	up := &fakeUpstream{
		orgName:     "Acme Corp",
		batches:     []map[string]any{},
		content:     make(map[string][]byte),
		failContent: make(map[string]bool),
	}
	up.server = httptest.NewServer(http.HandlerFunc(up.handle))
	t.Cleanup(up.server.Close)
	return up
}

// addBatch 注册一个批次及其可下载内容。
func (u *fakeUpstream) addBatch(id, filename string, body []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.batches = append(u.batches, map[string]any{
		"batch_id":   id,
		"batch_name": "batch " + id,
		"filename":   filename,
		"file_size":  float64(len(body)),
		"org_name":   u.orgName,
	})
	u.content[id] = body
}

func (u *fakeUpstream) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(parts) == 4 && parts[0] == "api" && parts[1] == "org" && parts[3] == "batches":
		u.listCalls.Add(1)
		u.mu.Lock()
		status, retryAfter := u.listStatus, u.retryAfter
		batches := u.batches
		u.mu.Unlock()
		if status != 0 {
			if retryAfter != "" {
				w.Header().Set("Retry-After", retryAfter)
			}
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"org_name": u.orgName,
			"batches":  batches,
		})

	case len(parts) == 6 && parts[0] == "api" && parts[3] == "batch" && parts[5] == "download":
		u.resolveCalls.Add(1)
		batchID := parts[4]
		u.mu.Lock()
		_, known := u.content[batchID]
		u.mu.Unlock()
		if !known {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"download_url": fmt.Sprintf("http://%s/content/%s", r.Host, batchID),
		})

	case len(parts) == 2 && parts[0] == "content":
		u.contentCalls.Add(1)
		batchID := parts[1]
		u.mu.Lock()
		body, fail := u.content[batchID], u.failContent[batchID]
		u.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(body)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testEnv struct {
	svc      *Service
	store    *store.Store
	blobs    *blob.FSStore
	cache    *cache.Store
	cacheDir string
}

func newQuietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEnv(t *testing.T, up *fakeUpstream) *testEnv {
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

	cacheDir := filepath.Join(root, "cache")
	cacheStore, err := cache.NewStore(config.CacheConfig{
		Enabled: true,
		Dir:     cacheDir,
		TTL:     config.Duration(time.Hour),
	})
	if err != nil {
		t.Fatalf("创建缓存失败: %v", err)
	}

	remoteCfg := config.RemoteConfig{
		BaseURL:                up.server.URL,
		RequestTimeout:         config.Duration(5 * time.Second),
		MaxRetries:             1,
		BackoffFactor:          1,
		RateLimitWindow:        config.Duration(time.Minute),
		MaxConcurrentDownloads: 2,
	}
	client := remote.NewClient(remoteCfg, newQuietLogger())

	return &testEnv{
		svc:      New(client, metaStore, blobs, cacheStore, newQuietLogger(), remoteCfg),
		store:    metaStore,
		blobs:    blobs,
		cache:    cacheStore,
		cacheDir: cacheDir,
	}
}
