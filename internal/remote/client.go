package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/batch-hub/batch-hub/internal/config"
)

// Client 是远端批次 API 的弹性客户端。所有请求共用同一个 http.Client，
// 并经过统一的重试包装；实例一次构造、显式传递，不存在包级单例。
type Client struct {
	baseURL         string
	httpClient      *http.Client
	logger          *logrus.Logger
	maxRetries      int
	backoffFactor   float64
	rateLimitWindow time.Duration
}

// NewClient 根据配置构造客户端。
func NewClient(cfg config.RemoteConfig, logger *logrus.Logger) *Client {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := cfg.BackoffFactor
	if backoff < 1 {
		backoff = 2.0
	}
	window := cfg.RateLimitWindow.DurationValue()
	if window <= 0 {
		window = 60 * time.Second
	}

	return &Client{
		baseURL:         cfg.BaseURL,
		httpClient:      NewHTTPClient(cfg),
		logger:          logger,
		maxRetries:      maxRetries,
		backoffFactor:   backoff,
		rateLimitWindow: window,
	}
}

// FetchBatchList 拉取组织码下的全部批次描述。404 映射为 OrgNotFoundError；
// 载荷缺少 batches 字段或结构不符映射为 ParseError；结构完整的空列表
// 是合法结果，按零批次组织返回。
func (c *Client) FetchBatchList(ctx context.Context, orgCode string) ([]BatchDescriptor, error) {
	endpoint := fmt.Sprintf("%s/api/org/%s/batches", c.baseURL, url.PathEscape(orgCode))

	resp, err := c.getWithRetry(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &OrgNotFoundError{OrgCode: orgCode}
	default:
		return nil, &DownloadError{URL: endpoint, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	rawBatches, ok := payload["batches"]
	if !ok {
		return nil, &ParseError{Reason: "missing required field batches"}
	}
	list, ok := rawBatches.([]any)
	if !ok {
		return nil, &ParseError{Reason: "field batches is not a list"}
	}

	descriptors := make([]BatchDescriptor, 0, len(list))
	for i, element := range list {
		raw, ok := element.(map[string]any)
		if !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("batches[%d] is not an object", i)}
		}
		desc, err := parseDescriptor(i, raw)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, desc)
	}

	return descriptors, nil
}

// ResolveDownloadURL 向批次下载端点换取真实内容地址。
func (c *Client) ResolveDownloadURL(ctx context.Context, batchID, orgCode string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/org/%s/batch/%s/download",
		c.baseURL, url.PathEscape(orgCode), url.PathEscape(batchID))

	resp, err := c.getWithRetry(ctx, endpoint)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", &BatchNotFoundError{BatchID: batchID, OrgCode: orgCode}
	default:
		return "", &DownloadError{URL: endpoint, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	downloadURL, ok := stringField(payload, "download_url")
	if !ok || downloadURL == "" {
		return "", &ParseError{Reason: "missing required field download_url"}
	}
	return downloadURL, nil
}

// StreamContent 下载内容并整体返回。本层不设大小上限，如需限额由上游组件叠加。
func (c *Client) StreamContent(ctx context.Context, contentURL string) ([]byte, error) {
	resp, err := c.getWithRetry(ctx, contentURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadError{URL: contentURL, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DownloadError{URL: contentURL, Cause: err}
	}
	return data, nil
}

// getWithRetry 是所有网络调用的统一重试包装：瞬时失败（连接错误、超时、5xx）
// 按 backoffFactor^attempt 秒退避后重试；429 不重试，立即携带 Retry-After 返回；
// 重试耗尽后以 DownloadError 收尾。退避等待可被 ctx 取消打断。
func (c *Client) getWithRetry(ctx context.Context, rawURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.doGet(ctx, rawURL)
		if err == nil {
			return resp, nil
		}

		var rateLimited *RateLimitError
		if errors.As(err, &rateLimited) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, &DownloadError{URL: rawURL, Cause: ctx.Err()}
		}

		lastErr = err
		if attempt == c.maxRetries {
			break
		}

		wait := time.Duration(math.Pow(c.backoffFactor, float64(attempt)) * float64(time.Second))
		c.logger.WithFields(logrus.Fields{
			"action":  "remote_retry",
			"url":     rawURL,
			"attempt": attempt,
			"wait":    wait.String(),
		}).Warn(err.Error())

		select {
		case <-ctx.Done():
			return nil, &DownloadError{URL: rawURL, Cause: ctx.Err()}
		case <-time.After(wait):
		}
	}

	return nil, &DownloadError{URL: rawURL, Cause: lastErr}
}

// doGet 执行单次请求。429 与 5xx 转换为 error 交由重试层分类，
// 其余状态码原样返回给调用方判定。
func (c *Client) doGet(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), c.rateLimitWindow)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &RateLimitError{RetryAfter: retryAfter}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	return resp, nil
}

// parseRetryAfter 解析 Retry-After 秒值，缺失或非法时回退到配置窗口。
func parseRetryAfter(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
