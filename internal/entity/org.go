package entity

import "time"

// Org 表示一个组织码对应的远端批次集合的本地记录。
// OrgCode 全局唯一，由首次成功的远端同步创建。
type Org struct {
	OrgCode    string
	OrgName    string
	BatchCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Metadata   map[string]any
}

// NewOrg 构造带有当前时间戳的组织记录。
func NewOrg(code, name string, batchCount int) *Org {
	now := time.Now().UTC()
	return &Org{
		OrgCode:    code,
		OrgName:    name,
		BatchCount: batchCount,
		CreatedAt:  now,
		UpdatedAt:  now,
		Metadata:   map[string]any{},
	}
}
