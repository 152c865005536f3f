package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// upstreamStub 模拟远端批次 API：批次列表、下载地址换取与内容端点，
// 并记录各端点的调用次数，便于断言分层读取行为。
type upstreamStub struct {
	server *httptest.Server

	ListCalls    atomic.Int32
	ResolveCalls atomic.Int32
	ContentCalls atomic.Int32

	mu          sync.Mutex
	orgName     string
	batches     []map[string]any
	content     map[string][]byte
	failContent map[string]bool
	rateLimited bool
	retryAfter  string
}

func newUpstreamStub(t *testing.T) *upstreamStub {
	t.Helper()

	stub := &upstreamStub{
		orgName:     "Acme Corp",
		content:     make(map[string][]byte),
		failContent: make(map[string]bool),
	}
	stub.server = httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(stub.server.Close)
	return stub
}

func (u *upstreamStub) URL() string {
	return u.server.URL
}

func (u *upstreamStub) addBatch(id, filename, contentType string, body []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.batches = append(u.batches, map[string]any{
		"batch_id":     id,
		"batch_name":   "batch " + id,
		"filename":     filename,
		"file_size":    float64(len(body)),
		"content_type": contentType,
		"org_name":     u.orgName,
	})
	u.content[id] = body
}

func (u *upstreamStub) failBatch(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failContent[id] = true
}

func (u *upstreamStub) rateLimit(retryAfter string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rateLimited = true
	u.retryAfter = retryAfter
}

func (u *upstreamStub) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(parts) == 4 && parts[0] == "api" && parts[1] == "org" && parts[3] == "batches":
		u.ListCalls.Add(1)
		u.mu.Lock()
		limited, retryAfter, batches := u.rateLimited, u.retryAfter, u.batches
		u.mu.Unlock()
		if limited {
			if retryAfter != "" {
				w.Header().Set("Retry-After", retryAfter)
			}
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"org_name": u.orgName,
			"batches":  batches,
		})

	case len(parts) == 6 && parts[0] == "api" && parts[3] == "batch" && parts[5] == "download":
		u.ResolveCalls.Add(1)
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
		u.ContentCalls.Add(1)
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
