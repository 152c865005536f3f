package remote

import "fmt"

// BatchDescriptor 是远端批次列表元素的显式模型。除 BatchID 外其余字段均可缺省，
// Raw 保留原始载荷，供元数据层完整存档。
type BatchDescriptor struct {
	BatchID     string
	BatchName   string
	Filename    string
	FileSize    int64
	ContentType string
	OrgName     string
	Raw         map[string]any
}

// parseDescriptor 在解析边界校验必填字段，缺失 batch_id 直接判定为 ParseError，
// 避免缺键错误渗透到管道深处。
func parseDescriptor(index int, raw map[string]any) (BatchDescriptor, error) {
	id, ok := stringField(raw, "batch_id")
	if !ok || id == "" {
		return BatchDescriptor{}, &ParseError{
			Reason: fmt.Sprintf("batches[%d] missing required field batch_id", index),
		}
	}

	desc := BatchDescriptor{
		BatchID: id,
		Raw:     raw,
	}

	if name, ok := stringField(raw, "batch_name"); ok {
		desc.BatchName = name
	}
	if filename, ok := stringField(raw, "filename"); ok {
		desc.Filename = filename
	}
	if contentType, ok := stringField(raw, "content_type"); ok {
		desc.ContentType = contentType
	}
	if orgName, ok := stringField(raw, "org_name"); ok {
		desc.OrgName = orgName
	}
	if size, ok := intField(raw, "file_size"); ok {
		desc.FileSize = size
	}

	return desc, nil
}

func stringField(raw map[string]any, key string) (string, bool) {
	value, ok := raw[key]
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

func intField(raw map[string]any, key string) (int64, bool) {
	value, ok := raw[key]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}
