package repository

import (
	"context"
	"time"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
)

// CollaborationRepository 定义了协作邀请数据的存储和检索操作。
type CollaborationRepository interface {
	// FindByID 根据协作记录 ID 查找。
	// 如果记录不存在，应返回 ErrCollaborationNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Collaboration, error)

	// FindByScore 返回某乐谱的全部协作记录 (含 pending/rejected)。
	FindByScore(ctx context.Context, scoreID uint) ([]domain.Collaboration, error)

	// FindPendingByInvitee 返回某用户收到的全部待处理邀请。
	FindPendingByInvitee(ctx context.Context, inviteeID uint) ([]domain.Collaboration, error)

	// CreateInvite 在锁定乐谱行的事务内创建 pending 邀请:
	// 若同一 (scoreID, inviteeID) 已存在非 rejected 记录，返回 ErrDuplicateEntry。
	// 行锁保证两个并发邀请不会同时通过唯一性检查。
	CreateInvite(ctx context.Context, collab *domain.Collaboration) error

	// TransitionState 以原子比较交换把记录从 fromState 迁移到 toState，
	// 同时写入 respondedAt 和变更记录 (record 可为 nil 表示无需审计)。
	// CAS 未命中 (状态已被并发修改) 返回 ErrStaleState。
	TransitionState(ctx context.Context, id uint, fromState, toState string, respondedAt time.Time, record *domain.ChangeRecord) error

	// UpdateRoleCAS 仅当记录处于 accepted 状态时更新角色，并在同一事务中
	// 追加变更记录。CAS 未命中返回 ErrStaleState。
	UpdateRoleCAS(ctx context.Context, id uint, newRole string, record *domain.ChangeRecord) error

	// DeleteWithHistory 物理删除协作记录并在同一事务中追加撤销记录。
	// 删除是真正的状态机出口，不做软删除。
	DeleteWithHistory(ctx context.Context, id uint, record *domain.ChangeRecord) error
}
