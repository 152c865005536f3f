package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absDB, err := filepath.Abs(cfg.Storage.MetadataDBPath)
	if err != nil {
		return nil, fmt.Errorf("无法解析元数据库路径: %w", err)
	}
	cfg.Storage.MetadataDBPath = absDB

	if cfg.Storage.BlobBackend == BlobBackendFS {
		absBlob, err := filepath.Abs(cfg.Storage.BlobPath)
		if err != nil {
			return nil, fmt.Errorf("无法解析 Blob 目录: %w", err)
		}
		cfg.Storage.BlobPath = absBlob
	}

	if cfg.Cache.Enabled {
		absCache, err := filepath.Abs(cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("无法解析缓存目录: %w", err)
		}
		cfg.Cache.Dir = absCache
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("Remote.RequestTimeout", "30s")
	v.SetDefault("Remote.MaxRetries", 3)
	v.SetDefault("Remote.BackoffFactor", 2.0)
	v.SetDefault("Remote.RateLimitWindow", "60s")
	v.SetDefault("Remote.MaxConcurrentDownloads", 1)
	v.SetDefault("Storage.MetadataDBPath", "./data/batch-hub.db")
	v.SetDefault("Storage.BlobBackend", BlobBackendFS)
	v.SetDefault("Storage.BlobPath", "./data/blobs")
	v.SetDefault("Cache.Enabled", true)
	v.SetDefault("Cache.Dir", "./cache/batch_files")
	v.SetDefault("Cache.TTL", 3600)
}

func applyDefaults(cfg *Config) {
	g := &cfg.Global
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}

	r := &cfg.Remote
	if r.RequestTimeout.DurationValue() == 0 {
		r.RequestTimeout = Duration(30 * time.Second)
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = 3
	}
	if r.BackoffFactor == 0 {
		r.BackoffFactor = 2.0
	}
	if r.RateLimitWindow.DurationValue() == 0 {
		r.RateLimitWindow = Duration(60 * time.Second)
	}
	if r.MaxConcurrentDownloads == 0 {
		r.MaxConcurrentDownloads = 1
	}

	s := &cfg.Storage
	if s.BlobBackend == "" {
		s.BlobBackend = BlobBackendFS
	}

	c := &cfg.Cache
	if c.TTL.DurationValue() == 0 {
		c.TTL = Duration(time.Hour)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
