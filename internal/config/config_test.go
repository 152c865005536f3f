package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Global.ListenPort != 5000 {
		t.Fatalf("默认端口错误: %d", cfg.Global.ListenPort)
	}
	if cfg.Remote.MaxRetries != 3 {
		t.Fatalf("默认重试次数错误: %d", cfg.Remote.MaxRetries)
	}
	if cfg.Remote.BackoffFactor != 2.0 {
		t.Fatalf("默认退避因子错误: %f", cfg.Remote.BackoffFactor)
	}
	if cfg.Remote.RequestTimeout.DurationValue() != 30*time.Second {
		t.Fatalf("默认超时错误: %v", cfg.Remote.RequestTimeout.DurationValue())
	}
	if cfg.Remote.RateLimitWindow.DurationValue() != 60*time.Second {
		t.Fatalf("默认限流窗口错误: %v", cfg.Remote.RateLimitWindow.DurationValue())
	}
	if cfg.Storage.BlobBackend != BlobBackendFS {
		t.Fatalf("默认 Blob 后端错误: %s", cfg.Storage.BlobBackend)
	}
	if !cfg.Cache.Enabled {
		t.Fatalf("缓存默认应开启")
	}
	if cfg.Cache.TTL.DurationValue() != time.Hour {
		t.Fatalf("默认缓存 TTL 错误: %v", cfg.Cache.TTL.DurationValue())
	}
}

func TestLoadParsesDurationSeconds(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+`
[Cache]
Enabled = true
Dir = "./cache"
TTL = 120
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Cache.TTL.DurationValue() != 2*time.Minute {
		t.Fatalf("秒值 TTL 解析错误: %v", cfg.Cache.TTL.DurationValue())
	}
}

func TestValidateRejectsMissingBaseURL(t *testing.T) {
	path := writeTempConfig(t, `
LogLevel = "info"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("缺少 BaseURL 应失败")
	}
}

func TestValidateRejectsUnknownBlobBackend(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+`
[Storage]
BlobBackend = "tape"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("未知 Blob 后端应失败")
	}
}

func TestValidateRejectsPartialS3Credentials(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+`
[Storage]
BlobBackend = "s3"
S3Bucket = "batches"
S3Region = "eu-west-1"
S3AccessKey = "only-access"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("不完整的 S3 凭证应失败")
	}
}

func TestValidateRejectsBadBackoffFactor(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+`
[Remote]
BaseURL = "https://api.example.com"
BackoffFactor = 0.5
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("退避因子小于 1 应失败")
	}
}
