package service

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

const fallbackFilename = "unnamed_file"

// SanitizeFilename 清理远端提供的文件名：去除文件系统保留字符与
// 首尾的点和空白，超长时保留扩展名截断，空结果回退到占位名。
func SanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return -1
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)

	cleaned = strings.Trim(cleaned, ". \t")
	if cleaned == "" {
		return fallbackFilename
	}

	if len(cleaned) > 255 {
		ext := filepath.Ext(cleaned)
		if len(ext) >= 255 {
			ext = ""
		}
		cleaned = cleaned[:255-len(ext)] + ext
	}
	return cleaned
}

// ContentTypeForFilename 按文件扩展名推断 MIME 类型，
// 无法识别时回退到 application/octet-stream。
func ContentTypeForFilename(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ValidateOrgCode 校验组织码形状：3 到 20 位字母或数字。
func ValidateOrgCode(orgCode string) error {
	if len(orgCode) < 3 || len(orgCode) > 20 {
		return &ValidationError{Field: "org_code", Reason: "must be 3-20 characters"}
	}
	for _, r := range orgCode {
		if !isAlnum(r) {
			return &ValidationError{Field: "org_code", Reason: "must be alphanumeric"}
		}
	}
	return nil
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// FormatFileSize 返回人类可读的大小表示，用于 API 响应。
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
