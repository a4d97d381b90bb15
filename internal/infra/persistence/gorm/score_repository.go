package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
)

// GormScoreRepository 是 ScoreRepository 接口的 GORM 实现
type GormScoreRepository struct {
	db *gorm.DB
}

// NewGormScoreRepository 创建 GormScoreRepository 实例
func NewGormScoreRepository(db *gorm.DB) *GormScoreRepository {
	if db == nil {
		panic("database connection cannot be nil for GormScoreRepository")
	}
	return &GormScoreRepository{db: db}
}

// FindByID 实现根据乐谱 ID 查找乐谱
func (r *GormScoreRepository) FindByID(ctx context.Context, id uint) (*domain.Score, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var score domain.Score
	err := r.db.WithContext(ctx).First(&score, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrScoreNotFound
		}
		return nil, fmt.Errorf("gorm: find score by id %d: %w", id, mapStoreError(err))
	}
	return &score, nil
}

// visibleScope 构建 "userID 可见" 的查询谓词。
// 同一个 scope 同时用于 Count 和分页查询，保证总数和切片不漂移。
func (r *GormScoreRepository) visibleScope(userID uint, filter repository.ScoreFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if filter.PublicOnly {
			tx = tx.Where("scores.is_public = ?", true)
		} else {
			// 自己拥有的、公开的、或通过已接受协作共享的
			tx = tx.Where(
				"scores.owner_id = ? OR scores.is_public = ? OR scores.id IN (?)",
				userID, true,
				r.db.Model(&domain.Collaboration{}).
					Select("score_id").
					Where("invitee_id = ? AND state = ?", userID, domain.CollabStateAccepted),
			)
		}
		if filter.Kind != "" {
			tx = tx.Where("scores.kind = ?", filter.Kind)
		}
		return tx
	}
}

// ListVisible 实现可见乐谱的分页查询
func (r *GormScoreRepository) ListVisible(ctx context.Context, userID uint, filter repository.ScoreFilter, page repository.Page) ([]domain.Score, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	scope := r.visibleScope(userID, filter)

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Score{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("gorm: count visible scores for user %d: %w", userID, mapStoreError(err))
	}

	var scores []domain.Score
	err := r.db.WithContext(ctx).Model(&domain.Score{}).
		Scopes(scope).
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&scores).Error
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: list visible scores for user %d: %w", userID, mapStoreError(err))
	}
	// 超出最后一页时 Find 自然返回空切片，不是错误
	return scores, total, nil
}

// CreateWithHistory 实现创建乐谱并在同一事务中追加变更记录
func (r *GormScoreRepository) CreateWithHistory(ctx context.Context, score *domain.Score, record *domain.ChangeRecord) error {
	return r.CreateWithElements(ctx, score, nil, record)
}

// CreateWithElements 实现创建乐谱及其元素并追加变更记录，同一事务
func (r *GormScoreRepository) CreateWithElements(ctx context.Context, score *domain.Score, elements []domain.MusicalElement, record *domain.ChangeRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(score).Error; err != nil {
			return err
		}
		for i := range elements {
			elements[i].ID = 0
			elements[i].ScoreID = score.ID
		}
		if len(elements) > 0 {
			if err := tx.Create(&elements).Error; err != nil {
				return err
			}
		}
		record.ScoreID = score.ID
		// 历史写入失败会让整个事务回滚: 审计缺口视为正确性错误
		return tx.Create(record).Error
	})
	if err != nil {
		if mapped := mapStoreError(err); errors.Is(mapped, repository.ErrDuplicateEntry) || errors.Is(mapped, repository.ErrTimeout) {
			return mapped
		}
		return fmt.Errorf("gorm: create score '%s' with history: %w", score.Title, err)
	}
	return nil
}

// UpdateWithHistory 实现保存乐谱并在同一事务中追加变更记录
func (r *GormScoreRepository) UpdateWithHistory(ctx context.Context, score *domain.Score, record *domain.ChangeRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(score).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	if err != nil {
		if mapped := mapStoreError(err); errors.Is(mapped, repository.ErrTimeout) {
			return mapped
		}
		return fmt.Errorf("gorm: update score %d with history: %w", score.ID, err)
	}
	return nil
}

// Delete 实现删除乐谱。协作和元素记录在同一事务中一并清理，
// 变更历史保留 (只追加账本，绝不删除)。
func (r *GormScoreRepository) Delete(ctx context.Context, id uint) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("score_id = ?", id).Delete(&domain.MusicalElement{}).Error; err != nil {
			return err
		}
		if err := tx.Where("score_id = ?", id).Delete(&domain.Collaboration{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Score{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrScoreNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrScoreNotFound) {
			return err
		}
		if mapped := mapStoreError(err); errors.Is(mapped, repository.ErrTimeout) {
			return mapped
		}
		return fmt.Errorf("gorm: delete score %d: %w", id, err)
	}
	return nil
}

// ListFilePaths 返回所有带文件的乐谱引用的路径
func (r *GormScoreRepository) ListFilePaths(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var paths []string
	err := r.db.WithContext(ctx).Model(&domain.Score{}).
		Where("file_path <> ''").
		Pluck("file_path", &paths).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list score file paths: %w", mapStoreError(err))
	}
	return paths, nil
}
