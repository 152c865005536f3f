package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述进程级行为：监听端口与日志输出。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
}

// RemoteConfig 决定与远端批次 API 的交互方式。超时、重试与退避参数
// 均作用于单次请求，而非整个批量下载。
type RemoteConfig struct {
	BaseURL                string   `mapstructure:"BaseURL"`
	RequestTimeout         Duration `mapstructure:"RequestTimeout"`
	MaxRetries             int      `mapstructure:"MaxRetries"`
	BackoffFactor          float64  `mapstructure:"BackoffFactor"`
	RateLimitWindow        Duration `mapstructure:"RateLimitWindow"`
	MaxConcurrentDownloads int      `mapstructure:"MaxConcurrentDownloads"`
}

// StorageConfig 描述元数据库与 Blob 持久层。BlobBackend 可选 fs 或 s3。
type StorageConfig struct {
	MetadataDBPath string `mapstructure:"MetadataDBPath"`
	BlobBackend    string `mapstructure:"BlobBackend"`
	BlobPath       string `mapstructure:"BlobPath"`
	S3Bucket       string `mapstructure:"S3Bucket"`
	S3Region       string `mapstructure:"S3Region"`
	S3AccessKey    string `mapstructure:"S3AccessKey"`
	S3SecretKey    string `mapstructure:"S3SecretKey"`
}

// CacheConfig 控制批次内容的 TTL 磁盘缓存。Enabled=false 时所有缓存操作
// 都是 no-op，读取永远 miss，强制回退到 Blob 存储或网络。
type CacheConfig struct {
	Enabled bool     `mapstructure:"Enabled"`
	Dir     string   `mapstructure:"Dir"`
	TTL     Duration `mapstructure:"TTL"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global  GlobalConfig  `mapstructure:",squash"`
	Remote  RemoteConfig  `mapstructure:"Remote"`
	Storage StorageConfig `mapstructure:"Storage"`
	Cache   CacheConfig   `mapstructure:"Cache"`
}
