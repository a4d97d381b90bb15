package repository

import (
	"context"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
)

// HistoryRepository 定义了变更历史账本的查询操作。
// 写入总是与被审计的变更在同一事务中发生 (见 Score/Collaboration/Element
// Repository 的 WithHistory 方法)，因此这里只有读取。
type HistoryRepository interface {
	// ListByScore 返回某乐谱的全部变更记录，按 (Timestamp, ID) 升序。
	ListByScore(ctx context.Context, scoreID uint) ([]domain.ChangeRecord, error)
}
