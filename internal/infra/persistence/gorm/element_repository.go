package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
)

// GormElementRepository 是 ElementRepository 接口的 GORM 实现
type GormElementRepository struct {
	db *gorm.DB
}

// NewGormElementRepository 创建 GormElementRepository 实例
func NewGormElementRepository(db *gorm.DB) *GormElementRepository {
	if db == nil {
		panic("database connection cannot be nil for GormElementRepository")
	}
	return &GormElementRepository{db: db}
}

// FindByID 实现根据元素 ID 查找
func (r *GormElementRepository) FindByID(ctx context.Context, id uint) (*domain.MusicalElement, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var element domain.MusicalElement
	err := r.db.WithContext(ctx).First(&element, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrElementNotFound
		}
		return nil, fmt.Errorf("gorm: find element by id %d: %w", id, mapStoreError(err))
	}
	return &element, nil
}

// ListByScore 实现返回某乐谱的全部元素，按顺序号升序
func (r *GormElementRepository) ListByScore(ctx context.Context, scoreID uint) ([]domain.MusicalElement, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var elements []domain.MusicalElement
	err := r.db.WithContext(ctx).
		Where("score_id = ?", scoreID).
		Order("position ASC").
		Find(&elements).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list elements for score %d: %w", scoreID, mapStoreError(err))
	}
	return elements, nil
}

// CreateWithHistory 实现创建元素并追加变更记录，同一事务。
// (score_id, position) 的唯一索引把顺序号冲突变成 ErrDuplicateEntry，
// 而不是悄悄接受两个同序元素。
func (r *GormElementRepository) CreateWithHistory(ctx context.Context, element *domain.MusicalElement, record *domain.ChangeRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(element).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	if err != nil {
		if mapped := mapStoreError(err); errors.Is(mapped, repository.ErrDuplicateEntry) || errors.Is(mapped, repository.ErrTimeout) {
			return mapped
		}
		return fmt.Errorf("gorm: create element for score %d with history: %w", element.ScoreID, err)
	}
	return nil
}

// UpdateWithHistory 实现保存元素并追加变更记录，同一事务
func (r *GormElementRepository) UpdateWithHistory(ctx context.Context, element *domain.MusicalElement, record *domain.ChangeRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(element).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	if err != nil {
		if mapped := mapStoreError(err); errors.Is(mapped, repository.ErrDuplicateEntry) || errors.Is(mapped, repository.ErrTimeout) {
			return mapped
		}
		return fmt.Errorf("gorm: update element %d with history: %w", element.ID, err)
	}
	return nil
}

// DeleteWithHistory 实现删除元素并追加变更记录，同一事务
func (r *GormElementRepository) DeleteWithHistory(ctx context.Context, id uint, record *domain.ChangeRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.MusicalElement{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrElementNotFound
		}
		return tx.Create(record).Error
	})
	if err != nil {
		if errors.Is(err, repository.ErrElementNotFound) {
			return err
		}
		if mapped := mapStoreError(err); errors.Is(mapped, repository.ErrTimeout) {
			return mapped
		}
		return fmt.Errorf("gorm: delete element %d: %w", id, err)
	}
	return nil
}
