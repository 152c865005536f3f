package entity

import (
	"sync"
	"time"
)

// Progress 汇总一次批量下载的执行结果。计数器由互斥锁保护，
// 允许多个下载 worker 并发累加；EndTime 在所有批次尝试完毕后仅设置一次。
type Progress struct {
	mu sync.Mutex

	total           int
	succeeded       int
	failed          int
	downloadedBytes int64
	startTime       time.Time
	endTime         *time.Time
}

// NewProgress 按固定的批次总数初始化进度记录。
func NewProgress(total int) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now().UTC(),
	}
}

// IncrSucceeded 记录一次成功下载及其字节数。
func (p *Progress) IncrSucceeded(bytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.succeeded++
	p.downloadedBytes += bytes
}

// IncrFailed 记录一次失败下载。
func (p *Progress) IncrFailed() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed++
}

// Finish 设置结束时间。重复调用不覆盖首次结果。
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.endTime == nil {
		now := time.Now().UTC()
		p.endTime = &now
	}
}

// Snapshot 返回当前计数的一致性快照。
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressSnapshot{
		Total:           p.total,
		Succeeded:       p.succeeded,
		Failed:          p.failed,
		DownloadedBytes: p.downloadedBytes,
		StartTime:       p.startTime,
		EndTime:         p.endTime,
	}
}

// ProgressSnapshot 是 Progress 的不可变视图，直接供 API 层序列化。
type ProgressSnapshot struct {
	Total           int
	Succeeded       int
	Failed          int
	DownloadedBytes int64
	StartTime       time.Time
	EndTime         *time.Time
}

// Percentage 返回成功比例（0-100）。总数为 0 时返回 0。
func (s ProgressSnapshot) Percentage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// IsComplete 表示所有批次是否都已尝试完毕。
func (s ProgressSnapshot) IsComplete() bool {
	return s.Succeeded+s.Failed >= s.Total
}

// Duration 返回整次批量下载耗时；未结束时以当前时间计算。
func (s ProgressSnapshot) Duration() time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}
