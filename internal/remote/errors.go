package remote

import (
	"fmt"
	"time"
)

// OrgNotFoundError 表示远端不认识该组织码，属于调用方可直接处理的终态错误。
type OrgNotFoundError struct {
	OrgCode string
}

func (e *OrgNotFoundError) Error() string {
	return fmt.Sprintf("organization code %q not found", e.OrgCode)
}

// BatchNotFoundError 表示远端不存在该批次。
type BatchNotFoundError struct {
	BatchID string
	OrgCode string
}

func (e *BatchNotFoundError) Error() string {
	if e.OrgCode != "" {
		return fmt.Sprintf("batch %q not found for organization %q", e.BatchID, e.OrgCode)
	}
	return fmt.Sprintf("batch %q not found", e.BatchID)
}

// RateLimitError 携带服务端建议的等待时长。Fetcher 层遇到 429 立即返回，
// 不做静默重试，由上层决定何时再次尝试。
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// DownloadError 表示重试耗尽后的网络或内容错误，保留目标 URL 与根因。
type DownloadError struct {
	URL   string
	Cause error
}

func (e *DownloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to download from %q: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("failed to download from %q", e.URL)
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}

// ParseError 表示远端返回的载荷缺少必要字段或结构不符。
// 它与空列表严格区分：真正的空列表是合法结果，不会产生本错误。
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse remote payload: %s", e.Reason)
}
