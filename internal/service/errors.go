package service

import "fmt"

// ValidationError 表示调用方输入不满足形状约束，映射为客户端错误。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
