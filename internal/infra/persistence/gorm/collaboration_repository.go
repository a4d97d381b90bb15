package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
)

// GormCollaborationRepository 是 CollaborationRepository 接口的 GORM 实现
type GormCollaborationRepository struct {
	db *gorm.DB
}

// NewGormCollaborationRepository 创建 GormCollaborationRepository 实例
func NewGormCollaborationRepository(db *gorm.DB) *GormCollaborationRepository {
	if db == nil {
		panic("database connection cannot be nil for GormCollaborationRepository")
	}
	return &GormCollaborationRepository{db: db}
}

// FindByID 实现根据协作记录 ID 查找
func (r *GormCollaborationRepository) FindByID(ctx context.Context, id uint) (*domain.Collaboration, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var collab domain.Collaboration
	err := r.db.WithContext(ctx).First(&collab, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCollaborationNotFound
		}
		return nil, fmt.Errorf("gorm: find collaboration by id %d: %w", id, mapStoreError(err))
	}
	return &collab, nil
}

// FindByScore 实现返回某乐谱的全部协作记录
func (r *GormCollaborationRepository) FindByScore(ctx context.Context, scoreID uint) ([]domain.Collaboration, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var collabs []domain.Collaboration
	err := r.db.WithContext(ctx).Where("score_id = ?", scoreID).Find(&collabs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find collaborations for score %d: %w", scoreID, mapStoreError(err))
	}
	return collabs, nil
}

// FindPendingByInvitee 实现返回某用户收到的全部待处理邀请
func (r *GormCollaborationRepository) FindPendingByInvitee(ctx context.Context, inviteeID uint) ([]domain.Collaboration, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var collabs []domain.Collaboration
	err := r.db.WithContext(ctx).
		Where("invitee_id = ? AND state = ?", inviteeID, domain.CollabStatePending).
		Order("created_at DESC").
		Find(&collabs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find pending invitations for user %d: %w", inviteeID, mapStoreError(err))
	}
	return collabs, nil
}

// CreateInvite 实现在锁定乐谱行的事务内创建 pending 邀请。
// SELECT ... FOR UPDATE 拿住乐谱行后再做唯一性检查，两个并发邀请
// 只有一个能通过，另一个看到 ErrDuplicateEntry。
func (r *GormCollaborationRepository) CreateInvite(ctx context.Context, collab *domain.Collaboration) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var score domain.Score
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&score, collab.ScoreID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrScoreNotFound
			}
			return err
		}

		var count int64
		err := tx.Model(&domain.Collaboration{}).
			Where("score_id = ? AND invitee_id = ? AND state <> ?",
				collab.ScoreID, collab.InviteeID, domain.CollabStateRejected).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return repository.ErrDuplicateEntry
		}

		return tx.Create(collab).Error
	})
	if err != nil {
		if errors.Is(err, repository.ErrScoreNotFound) || errors.Is(err, repository.ErrDuplicateEntry) {
			return err
		}
		if mapped := mapStoreError(err); errors.Is(mapped, repository.ErrTimeout) || errors.Is(mapped, repository.ErrDuplicateEntry) {
			return mapped
		}
		return fmt.Errorf("gorm: create invite (score %d, invitee %d): %w", collab.ScoreID, collab.InviteeID, err)
	}
	return nil
}

// TransitionState 实现原子状态迁移 (CAS)。
// UPDATE ... WHERE id = ? AND state = fromState 是单条原子语句:
// 两个并发的 respond 只有一个能命中行，落败方得到 ErrStaleState。
func (r *GormCollaborationRepository) TransitionState(ctx context.Context, id uint, fromState, toState string, respondedAt time.Time, record *domain.ChangeRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Collaboration{}).
			Where("id = ? AND state = ?", id, fromState).
			Updates(map[string]interface{}{
				"state":        toState,
				"responded_at": respondedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrStaleState
		}
		if record != nil {
			return tx.Create(record).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return err
		}
		if mapped := mapStoreError(err); errors.Is(mapped, repository.ErrTimeout) {
			return mapped
		}
		return fmt.Errorf("gorm: transition collaboration %d (%s -> %s): %w", id, fromState, toState, err)
	}
	return nil
}

// UpdateRoleCAS 实现仅当记录处于 accepted 状态时更新角色
func (r *GormCollaborationRepository) UpdateRoleCAS(ctx context.Context, id uint, newRole string, record *domain.ChangeRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Collaboration{}).
			Where("id = ? AND state = ?", id, domain.CollabStateAccepted).
			Update("role", newRole)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrStaleState
		}
		if record != nil {
			return tx.Create(record).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return err
		}
		if mapped := mapStoreError(err); errors.Is(mapped, repository.ErrTimeout) {
			return mapped
		}
		return fmt.Errorf("gorm: update role of collaboration %d to '%s': %w", id, newRole, err)
	}
	return nil
}

// DeleteWithHistory 实现物理删除协作记录并追加撤销记录，同一事务
func (r *GormCollaborationRepository) DeleteWithHistory(ctx context.Context, id uint, record *domain.ChangeRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.Collaboration{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrCollaborationNotFound
		}
		if record != nil {
			return tx.Create(record).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrCollaborationNotFound) {
			return err
		}
		if mapped := mapStoreError(err); errors.Is(mapped, repository.ErrTimeout) {
			return mapped
		}
		return fmt.Errorf("gorm: delete collaboration %d: %w", id, err)
	}
	return nil
}
