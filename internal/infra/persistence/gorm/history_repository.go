package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
)

// GormHistoryRepository 是 HistoryRepository 接口的 GORM 实现
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository 创建 GormHistoryRepository 实例
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	if db == nil {
		panic("database connection cannot be nil for GormHistoryRepository")
	}
	return &GormHistoryRepository{db: db}
}

// ListByScore 实现返回某乐谱的全部变更记录。
// 按 (timestamp, id) 升序: 同一时间戳的记录用自增主键充当插入序。
func (r *GormHistoryRepository) ListByScore(ctx context.Context, scoreID uint) ([]domain.ChangeRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var records []domain.ChangeRecord
	err := r.db.WithContext(ctx).
		Where("score_id = ?", scoreID).
		Order("timestamp ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list change records for score %d: %w", scoreID, mapStoreError(err))
	}
	return records, nil
}
