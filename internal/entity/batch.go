package entity

import "time"

// Batch 表示单个可下载批次及其元数据。BatchID 由远端系统分配，全局唯一。
// BlobRef 在首次成功下载前为空字符串；一旦写入即指向 Blob 存储中的唯一副本。
type Batch struct {
	BatchID      string
	OrgCode      string
	BatchName    string
	Filename     string
	FileSize     int64
	ContentType  string
	BlobRef      string
	CreatedAt    time.Time
	DownloadedAt *time.Time
	Metadata     map[string]any
}

// Downloaded 表示批次内容是否至少成功下载过一次。
func (b *Batch) Downloaded() bool {
	return b.BlobRef != ""
}
