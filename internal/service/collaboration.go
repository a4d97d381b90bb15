package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/dto"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
)

// CollaborationService 封装协作邀请的状态机:
// 邀请 -> 接受/拒绝，角色变更，移除协作者。
// 每个生效/撤销都写入乐谱的变更历史，并通过 Notifier 推送给相关用户。
type CollaborationService struct {
	collabRepo repository.CollaborationRepository
	scoreRepo  repository.ScoreRepository
	userRepo   repository.UserRepository
	notifier   repository.Notifier
}

// NewCollaborationService 创建 CollaborationService 实例。
// notifier 可为 nil (例如测试场景)，此时跳过事件推送。
func NewCollaborationService(
	collabRepo repository.CollaborationRepository,
	scoreRepo repository.ScoreRepository,
	userRepo repository.UserRepository,
	notifier repository.Notifier,
) *CollaborationService {
	if collabRepo == nil || scoreRepo == nil || userRepo == nil {
		panic("repositories cannot be nil for CollaborationService")
	}
	return &CollaborationService{
		collabRepo: collabRepo,
		scoreRepo:  scoreRepo,
		userRepo:   userRepo,
		notifier:   notifier,
	}
}

// ListInvitations 返回 userID 收到的全部待处理邀请。
func (s *CollaborationService) ListInvitations(ctx context.Context, userID uint) ([]domain.Collaboration, error) {
	invites, err := s.collabRepo.FindPendingByInvitee(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list pending invitations")
		return nil, mapRepoError(err)
	}
	return invites, nil
}

// ListCollaborators 返回某乐谱的全部协作记录。
// 仅所有者和已接受的协作者可以查看名单。
func (s *CollaborationService) ListCollaborators(ctx context.Context, userID, scoreID uint) ([]domain.Collaboration, error) {
	score, err := s.loadScore(ctx, scoreID)
	if err != nil {
		return nil, err
	}
	collabs, err := s.collabRepo.FindByScore(ctx, scoreID)
	if err != nil {
		logrus.WithError(err).WithField("score_id", scoreID).Error("Failed to list collaborators")
		return nil, mapRepoError(err)
	}
	if userID != score.OwnerID && domain.EffectiveAccess(userID, score, collabs) < domain.AccessRead {
		return nil, ErrScoreNotFound
	}
	return collabs, nil
}

// Invite 向 inviteeUsername 发出协作邀请。邀请需要对乐谱的写权限
// (所有者或已接受的 editor)。邀请所有者本人或已有 pending/accepted
// 记录时返回 ErrConflict。
func (s *CollaborationService) Invite(ctx context.Context, inviterID, scoreID uint, inviteeUsername, role string) (*domain.Collaboration, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"inviter_id": inviterID,
		"score_id":   scoreID,
		"invitee":    inviteeUsername,
		"role":       role,
	})

	// 1. 验证角色
	if !domain.IsValidRole(role) {
		return nil, fmt.Errorf("%w: role must be %q or %q", ErrValidation, domain.RoleViewer, domain.RoleEditor)
	}

	// 2. 邀请需要写权限
	score, err := s.loadScore(ctx, scoreID)
	if err != nil {
		return nil, err
	}
	access, err := resolveAccess(ctx, s.collabRepo, inviterID, score)
	if err != nil {
		return nil, err
	}
	if access < domain.AccessRead {
		// 不可见的乐谱不应得知其存在
		return nil, ErrScoreNotFound
	}
	if access < domain.AccessWrite {
		return nil, ErrForbidden
	}

	// 3. 解析被邀请者
	invitee, err := s.userRepo.FindByUsername(ctx, inviteeUsername)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		logCtx.WithError(err).Error("Failed to look up invitee")
		return nil, mapRepoError(err)
	}
	if invitee.ID == score.OwnerID {
		// 所有者本就拥有完全访问权
		return nil, ErrConflict
	}
	if invitee.ID == inviterID {
		return nil, fmt.Errorf("%w: cannot invite yourself", ErrValidation)
	}

	// 4. 创建 pending 邀请 (重复检查在仓库事务内完成)
	collab := &domain.Collaboration{
		ScoreID:   scoreID,
		InviteeID: invitee.ID,
		InviterID: inviterID,
		Role:      role,
		State:     domain.CollabStatePending,
	}
	if err := s.collabRepo.CreateInvite(ctx, collab); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrConflict
		}
		if errors.Is(err, repository.ErrScoreNotFound) {
			return nil, ErrScoreNotFound
		}
		logCtx.WithError(err).Error("Failed to create invitation")
		return nil, mapRepoError(err)
	}

	// 5. 通知被邀请者
	s.publish(ctx, invitee.ID, dto.CollabEvent{
		Type:     "invited",
		ScoreID:  scoreID,
		CollabID: collab.ID,
		ActorID:  inviterID,
		Role:     role,
	})

	logCtx.WithField("collab_id", collab.ID).Info("Collaboration invitation created")
	return collab, nil
}

// Accept 让被邀请者接受一个 pending 邀请。
// 仅被邀请者本人可操作；非 pending 状态返回 ErrInvalidState。
func (s *CollaborationService) Accept(ctx context.Context, userID, collabID uint) (*domain.Collaboration, error) {
	return s.respond(ctx, userID, collabID, domain.CollabStateAccepted)
}

// Reject 让被邀请者拒绝一个 pending 邀请。
func (s *CollaborationService) Reject(ctx context.Context, userID, collabID uint) (*domain.Collaboration, error) {
	return s.respond(ctx, userID, collabID, domain.CollabStateRejected)
}

// respond 实现 pending -> accepted/rejected 的状态迁移。
// 迁移用仓库层的 CAS 完成，两个并发响应只有一个成功。
func (s *CollaborationService) respond(ctx context.Context, userID, collabID uint, toState string) (*domain.Collaboration, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "collab_id": collabID, "to_state": toState})

	// 1. 加载并校验身份
	collab, err := s.collabRepo.FindByID(ctx, collabID)
	if err != nil {
		if errors.Is(err, repository.ErrCollaborationNotFound) {
			return nil, ErrCollaborationNotFound
		}
		return nil, mapRepoError(err)
	}
	if collab.InviteeID != userID {
		// 只有被邀请者本人可以响应
		return nil, ErrForbidden
	}
	if collab.State != domain.CollabStatePending {
		return nil, ErrInvalidState
	}

	// 2. 接受时在乐谱历史中落账，拒绝不产生访问权变化、不落账
	var record *domain.ChangeRecord
	if toState == domain.CollabStateAccepted {
		record, err = s.collabRecord(collab, userID, domain.ChangeCollabGranted, nil, collab.Role)
		if err != nil {
			return nil, ErrInternalServer
		}
	}

	// 3. CAS 迁移状态
	now := time.Now()
	if err := s.collabRepo.TransitionState(ctx, collabID, domain.CollabStatePending, toState, now, record); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			// 并发响应抢先完成了迁移
			return nil, ErrInvalidState
		}
		logCtx.WithError(err).Error("Failed to transition invitation state")
		return nil, mapRepoError(err)
	}
	collab.State = toState
	collab.RespondedAt = &now

	// 4. 通知邀请者结果
	eventType := "accepted"
	if toState == domain.CollabStateRejected {
		eventType = "rejected"
	}
	s.publish(ctx, collab.InviterID, dto.CollabEvent{
		Type:     eventType,
		ScoreID:  collab.ScoreID,
		CollabID: collab.ID,
		ActorID:  userID,
		Role:     collab.Role,
	})

	logCtx.Info("Invitation responded")
	return collab, nil
}

// ChangeRole 修改一个已接受协作者的角色。仅乐谱所有者可操作。
// 角色相同为幂等空操作，不落账。
func (s *CollaborationService) ChangeRole(ctx context.Context, ownerID, collabID uint, newRole string) (*domain.Collaboration, error) {
	logCtx := logrus.WithFields(logrus.Fields{"owner_id": ownerID, "collab_id": collabID, "new_role": newRole})

	if !domain.IsValidRole(newRole) {
		return nil, fmt.Errorf("%w: role must be %q or %q", ErrValidation, domain.RoleViewer, domain.RoleEditor)
	}

	collab, _, err := s.loadCollabForOwner(ctx, ownerID, collabID)
	if err != nil {
		return nil, err
	}
	if collab.State != domain.CollabStateAccepted {
		return nil, ErrInvalidState
	}
	if collab.Role == newRole {
		return collab, nil
	}

	// 角色变更记录为一次协作权生效: before 是旧角色，after 是新角色
	record, err := s.collabRecord(collab, ownerID, domain.ChangeCollabGranted, &collab.Role, newRole)
	if err != nil {
		return nil, ErrInternalServer
	}
	if err := s.collabRepo.UpdateRoleCAS(ctx, collabID, newRole, record); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrInvalidState
		}
		logCtx.WithError(err).Error("Failed to change collaborator role")
		return nil, mapRepoError(err)
	}
	collab.Role = newRole

	s.publish(ctx, collab.InviteeID, dto.CollabEvent{
		Type:     "roleChanged",
		ScoreID:  collab.ScoreID,
		CollabID: collab.ID,
		ActorID:  ownerID,
		Role:     newRole,
	})

	logCtx.Info("Collaborator role changed")
	return collab, nil
}

// Remove 移除一条协作记录 (物理删除)。
// 所有者可移除任何协作者；协作者本人也可以退出。
func (s *CollaborationService) Remove(ctx context.Context, userID, collabID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "collab_id": collabID})

	collab, err := s.collabRepo.FindByID(ctx, collabID)
	if err != nil {
		if errors.Is(err, repository.ErrCollaborationNotFound) {
			return ErrCollaborationNotFound
		}
		return mapRepoError(err)
	}

	score, err := s.loadScore(ctx, collab.ScoreID)
	if err != nil {
		return err
	}
	if userID != score.OwnerID && userID != collab.InviteeID {
		return ErrForbidden
	}

	// 已接受的协作被移除时撤销访问权要落账；pending/rejected 无访问权可撤销
	var record *domain.ChangeRecord
	if collab.State == domain.CollabStateAccepted {
		record, err = s.collabRecord(collab, userID, domain.ChangeCollabRevoked, &collab.Role, "")
		if err != nil {
			return ErrInternalServer
		}
	}
	if err := s.collabRepo.DeleteWithHistory(ctx, collabID, record); err != nil {
		if errors.Is(err, repository.ErrCollaborationNotFound) {
			return ErrCollaborationNotFound
		}
		logCtx.WithError(err).Error("Failed to remove collaboration")
		return mapRepoError(err)
	}

	// 通知被移除的一方 (自己退出时通知所有者)
	target := collab.InviteeID
	if userID == collab.InviteeID {
		target = score.OwnerID
	}
	s.publish(ctx, target, dto.CollabEvent{
		Type:     "removed",
		ScoreID:  collab.ScoreID,
		CollabID: collab.ID,
		ActorID:  userID,
	})

	logCtx.Info("Collaboration removed")
	return nil
}

// --- 私有辅助函数 ---

func (s *CollaborationService) loadScore(ctx context.Context, scoreID uint) (*domain.Score, error) {
	score, err := s.scoreRepo.FindByID(ctx, scoreID)
	if err != nil {
		if errors.Is(err, repository.ErrScoreNotFound) {
			return nil, ErrScoreNotFound
		}
		return nil, mapRepoError(err)
	}
	return score, nil
}

// loadCollabForOwner 加载协作记录并校验 ownerID 是乐谱所有者。
func (s *CollaborationService) loadCollabForOwner(ctx context.Context, ownerID, collabID uint) (*domain.Collaboration, *domain.Score, error) {
	collab, err := s.collabRepo.FindByID(ctx, collabID)
	if err != nil {
		if errors.Is(err, repository.ErrCollaborationNotFound) {
			return nil, nil, ErrCollaborationNotFound
		}
		return nil, nil, mapRepoError(err)
	}
	score, err := s.loadScore(ctx, collab.ScoreID)
	if err != nil {
		return nil, nil, err
	}
	if score.OwnerID != ownerID {
		return nil, nil, ErrForbidden
	}
	return collab, score, nil
}

// collabRecord 构造协作变更的历史记录。
// before/after 快照存角色快照 JSON，空角色表示无访问权。
func (s *CollaborationService) collabRecord(collab *domain.Collaboration, actorID uint, kind string, beforeRole *string, afterRole string) (*domain.ChangeRecord, error) {
	type collabSnapshot struct {
		CollabID  uint   `json:"collab_id"`
		InviteeID uint   `json:"invitee_id"`
		Role      string `json:"role"`
	}
	record := &domain.ChangeRecord{
		ScoreID:   collab.ScoreID,
		ActorID:   actorID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
	if beforeRole != nil {
		b, err := json.Marshal(collabSnapshot{CollabID: collab.ID, InviteeID: collab.InviteeID, Role: *beforeRole})
		if err != nil {
			return nil, err
		}
		record.Before = string(b)
	}
	if afterRole != "" {
		a, err := json.Marshal(collabSnapshot{CollabID: collab.ID, InviteeID: collab.InviteeID, Role: afterRole})
		if err != nil {
			return nil, err
		}
		record.After = string(a)
	}
	return record, nil
}

// publish 推送协作事件，失败不影响主流程。
func (s *CollaborationService) publish(ctx context.Context, userID uint, event dto.CollabEvent) {
	if s.notifier == nil {
		return
	}
	event.Timestamp = time.Now().Unix()
	if err := s.notifier.PublishUserEvent(ctx, userID, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID,
			"event_type": event.Type,
		}).Warn("Failed to publish collaboration event")
	}
}
