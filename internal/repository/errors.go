package repository

import "errors"

// 通用的存储库错误
var (
	// ErrNotFound 表示请求的记录未找到
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示尝试插入或更新的数据违反了唯一约束
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrStaleState 表示条件更新 (CAS) 未命中任何行，说明记录状态已被并发修改
	ErrStaleState = errors.New("repository: stale state, no rows matched")
	// ErrTimeout 表示存储调用超过了限定时间，调用方可安全重试
	ErrTimeout = errors.New("repository: store call timed out")
)

// 特定资源的错误 (基于通用错误创建，方便 errors.Is 按资源判断)
var (
	ErrUserNotFound          = ErrNotFound
	ErrScoreNotFound         = ErrNotFound
	ErrCollaborationNotFound = ErrNotFound
	ErrElementNotFound       = ErrNotFound
)
