package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Blob 后端标识。注册表见 internal/blob。
const (
	BlobBackendFS = "fs"
	BlobBackendS3 = "s3"
)

const supportedBlobBackendList = "fs|s3"

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}

	r := c.Remote
	if err := validateBaseURL(r.BaseURL); err != nil {
		return fmt.Errorf("Remote.BaseURL: %w", err)
	}
	if r.RequestTimeout.DurationValue() <= 0 {
		return newFieldError("Remote.RequestTimeout", "必须大于 0")
	}
	if r.MaxRetries < 0 {
		return newFieldError("Remote.MaxRetries", "不能为负数")
	}
	if r.BackoffFactor < 1 {
		return newFieldError("Remote.BackoffFactor", "必须不小于 1")
	}
	if r.RateLimitWindow.DurationValue() <= 0 {
		return newFieldError("Remote.RateLimitWindow", "必须大于 0")
	}
	if r.MaxConcurrentDownloads < 1 {
		return newFieldError("Remote.MaxConcurrentDownloads", "必须不小于 1")
	}

	s := c.Storage
	if s.MetadataDBPath == "" {
		return newFieldError("Storage.MetadataDBPath", "不能为空")
	}
	backend := strings.ToLower(strings.TrimSpace(s.BlobBackend))
	switch backend {
	case BlobBackendFS:
		if s.BlobPath == "" {
			return newFieldError("Storage.BlobPath", "fs 后端需要存储目录")
		}
	case BlobBackendS3:
		if s.S3Bucket == "" {
			return newFieldError("Storage.S3Bucket", "s3 后端需要 Bucket")
		}
		if s.S3Region == "" {
			return newFieldError("Storage.S3Region", "s3 后端需要 Region")
		}
		if (s.S3AccessKey == "") != (s.S3SecretKey == "") {
			return newFieldError("Storage.S3AccessKey/S3SecretKey", "必须同时提供或同时留空")
		}
	default:
		return newFieldError("Storage.BlobBackend", "仅支持 "+supportedBlobBackendList)
	}
	c.Storage.BlobBackend = backend

	if c.Cache.Enabled {
		if c.Cache.Dir == "" {
			return newFieldError("Cache.Dir", "启用缓存时不能为空")
		}
		if c.Cache.TTL.DurationValue() <= 0 {
			return newFieldError("Cache.TTL", "必须大于 0")
		}
	}

	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("缺少远端 API 地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，远端: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("远端缺少 Host: %s", raw)
	}
	return nil
}
