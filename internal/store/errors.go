package store

import "fmt"

// StorageError 表示底层存储不可用或操作失败，保留操作名与根因。
// “记录不存在”不属于本错误，由 found 布尔值表达。
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %q failed: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(op string, cause error) error {
	return &StorageError{Op: op, Cause: cause}
}
