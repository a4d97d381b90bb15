package repository

import (
	"context"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
)

// ElementRepository 定义了音乐元素的存储和检索操作。
type ElementRepository interface {
	// FindByID 根据元素 ID 查找。
	// 如果元素不存在，应返回 ErrElementNotFound。
	FindByID(ctx context.Context, id uint) (*domain.MusicalElement, error)

	// ListByScore 返回某乐谱的全部元素，按 Order 升序。
	ListByScore(ctx context.Context, scoreID uint) ([]domain.MusicalElement, error)

	// CreateWithHistory 创建元素并在同一事务中追加变更记录。
	// Order 在乐谱内重复时返回 ErrDuplicateEntry (唯一索引强制)。
	CreateWithHistory(ctx context.Context, element *domain.MusicalElement, record *domain.ChangeRecord) error

	// UpdateWithHistory 保存元素并在同一事务中追加变更记录。
	// Order 冲突同样返回 ErrDuplicateEntry。
	UpdateWithHistory(ctx context.Context, element *domain.MusicalElement, record *domain.ChangeRecord) error

	// DeleteWithHistory 删除元素并在同一事务中追加变更记录。
	DeleteWithHistory(ctx context.Context, id uint, record *domain.ChangeRecord) error
}
