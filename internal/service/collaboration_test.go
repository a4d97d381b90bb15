package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/dto"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository/mocks"
	"github.com/aitor-glitch-blde/app-partituras/internal/service"
)

// collabServiceFixture 把 CollaborationService 及其全部 Mock 依赖打包
type collabServiceFixture struct {
	svc        *service.CollaborationService
	collabRepo *mocks.CollaborationRepository
	scoreRepo  *mocks.ScoreRepository
	userRepo   *mocks.UserRepository
	notifier   *mocks.Notifier
}

func newCollabServiceFixture(t *testing.T) *collabServiceFixture {
	t.Helper()
	f := &collabServiceFixture{
		collabRepo: new(mocks.CollaborationRepository),
		scoreRepo:  new(mocks.ScoreRepository),
		userRepo:   new(mocks.UserRepository),
		notifier:   new(mocks.Notifier),
	}
	f.svc = service.NewCollaborationService(f.collabRepo, f.scoreRepo, f.userRepo, f.notifier)
	return f
}

func (f *collabServiceFixture) assertExpectations(t *testing.T) {
	f.collabRepo.AssertExpectations(t)
	f.scoreRepo.AssertExpectations(t)
	f.userRepo.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

// --- Invite ---

func TestCollaborationService_Invite_Success(t *testing.T) {
	// Arrange
	f := newCollabServiceFixture(t)
	ctx := context.Background()
	score := &domain.Score{ID: 10, OwnerID: 1}
	invitee := &domain.User{ID: 2, Username: "bob"}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.userRepo.On("FindByUsername", mock.Anything, "bob").Return(invitee, nil).Once()
	f.collabRepo.On("CreateInvite", mock.Anything, mock.MatchedBy(func(c *domain.Collaboration) bool {
		return c.ScoreID == 10 && c.InviteeID == 2 && c.InviterID == 1 &&
			c.Role == domain.RoleEditor && c.State == domain.CollabStatePending
	})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Collaboration).ID = 55
		}).
		Return(nil).Once()
	// 被邀请者收到 invited 事件
	f.notifier.On("PublishUserEvent", mock.Anything, uint(2), mock.MatchedBy(func(e dto.CollabEvent) bool {
		return e.Type == "invited" && e.ScoreID == 10 && e.CollabID == 55 && e.ActorID == 1
	})).Return(nil).Once()

	// Act
	collab, err := f.svc.Invite(ctx, 1, 10, "bob", domain.RoleEditor)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(55), collab.ID)
	assert.Equal(t, domain.CollabStatePending, collab.State)
	f.assertExpectations(t)
}

func TestCollaborationService_Invite_Duplicate(t *testing.T) {
	// Arrange: 同一 (乐谱, 被邀请者) 已有非 rejected 记录
	f := newCollabServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.userRepo.On("FindByUsername", mock.Anything, "bob").
		Return(&domain.User{ID: 2, Username: "bob"}, nil).Once()
	f.collabRepo.On("CreateInvite", mock.Anything, mock.Anything).
		Return(repository.ErrDuplicateEntry).Once()

	// Act
	_, err := f.svc.Invite(context.Background(), 1, 10, "bob", domain.RoleViewer)

	// Assert
	assert.ErrorIs(t, err, service.ErrConflict)
	f.notifier.AssertNotCalled(t, "PublishUserEvent", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestCollaborationService_Invite_EditorCanInvite(t *testing.T) {
	// Arrange: 已接受的 editor 拥有写权限，同样可以发邀请
	f := newCollabServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}
	invitee := &domain.User{ID: 3, Username: "carol"}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("FindByScore", mock.Anything, uint(10)).
		Return([]domain.Collaboration{
			{ScoreID: 10, InviteeID: 2, Role: domain.RoleEditor, State: domain.CollabStateAccepted},
		}, nil).Once()
	f.userRepo.On("FindByUsername", mock.Anything, "carol").Return(invitee, nil).Once()
	f.collabRepo.On("CreateInvite", mock.Anything, mock.MatchedBy(func(c *domain.Collaboration) bool {
		return c.ScoreID == 10 && c.InviteeID == 3 && c.InviterID == 2
	})).Return(nil).Once()
	f.notifier.On("PublishUserEvent", mock.Anything, uint(3), mock.MatchedBy(func(e dto.CollabEvent) bool {
		return e.Type == "invited" && e.ActorID == 2
	})).Return(nil).Once()

	// Act
	_, err := f.svc.Invite(context.Background(), 2, 10, "carol", domain.RoleViewer)

	// Assert
	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestCollaborationService_Invite_ViewerForbidden(t *testing.T) {
	// Arrange: viewer 只有读权限，可见但不可邀请
	f := newCollabServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("FindByScore", mock.Anything, uint(10)).
		Return([]domain.Collaboration{
			{ScoreID: 10, InviteeID: 2, Role: domain.RoleViewer, State: domain.CollabStateAccepted},
		}, nil).Once()

	// Act
	_, err := f.svc.Invite(context.Background(), 2, 10, "bob", domain.RoleViewer)

	// Assert
	assert.ErrorIs(t, err, service.ErrForbidden)
	f.userRepo.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestCollaborationService_Invite_StrangerPrivateScore(t *testing.T) {
	// Arrange: 无关用户对私有乐谱发邀请，不得泄露乐谱存在
	f := newCollabServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("FindByScore", mock.Anything, uint(10)).
		Return([]domain.Collaboration{}, nil).Once()

	// Act
	_, err := f.svc.Invite(context.Background(), 99, 10, "bob", domain.RoleViewer)

	// Assert
	assert.ErrorIs(t, err, service.ErrScoreNotFound)
	f.userRepo.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestCollaborationService_Invite_OwnerAsInvitee(t *testing.T) {
	// Arrange: 邀请所有者本人是冲突，所有者已拥有完全访问权
	f := newCollabServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("FindByScore", mock.Anything, uint(10)).
		Return([]domain.Collaboration{
			{ScoreID: 10, InviteeID: 2, Role: domain.RoleEditor, State: domain.CollabStateAccepted},
		}, nil).Once()
	f.userRepo.On("FindByUsername", mock.Anything, "owner").
		Return(&domain.User{ID: 1, Username: "owner"}, nil).Once()

	// Act
	_, err := f.svc.Invite(context.Background(), 2, 10, "owner", domain.RoleViewer)

	// Assert
	assert.ErrorIs(t, err, service.ErrConflict)
	f.collabRepo.AssertNotCalled(t, "CreateInvite", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestCollaborationService_Invite_SelfInvite(t *testing.T) {
	// Arrange: editor 邀请自己
	f := newCollabServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("FindByScore", mock.Anything, uint(10)).
		Return([]domain.Collaboration{
			{ScoreID: 10, InviteeID: 2, Role: domain.RoleEditor, State: domain.CollabStateAccepted},
		}, nil).Once()
	f.userRepo.On("FindByUsername", mock.Anything, "bob").
		Return(&domain.User{ID: 2, Username: "bob"}, nil).Once()

	// Act
	_, err := f.svc.Invite(context.Background(), 2, 10, "bob", domain.RoleEditor)

	// Assert
	assert.ErrorIs(t, err, service.ErrValidation)
	f.collabRepo.AssertNotCalled(t, "CreateInvite", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestCollaborationService_Invite_InvalidRole(t *testing.T) {
	f := newCollabServiceFixture(t)

	_, err := f.svc.Invite(context.Background(), 1, 10, "bob", "admin")

	assert.ErrorIs(t, err, service.ErrValidation)
	f.scoreRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

// --- Accept / Reject ---

func TestCollaborationService_Accept_Success(t *testing.T) {
	// Arrange
	f := newCollabServiceFixture(t)
	pending := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, InviterID: 1,
		Role: domain.RoleEditor, State: domain.CollabStatePending,
	}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(pending, nil).Once()
	f.collabRepo.On("TransitionState", mock.Anything, uint(55),
		domain.CollabStatePending, domain.CollabStateAccepted, mock.AnythingOfType("time.Time"),
		mock.MatchedBy(func(r *domain.ChangeRecord) bool {
			// 接受邀请要在乐谱历史中落账
			return r.Kind == domain.ChangeCollabGranted && r.ScoreID == 10 && r.ActorID == 2
		})).
		Return(nil).Once()
	// 邀请者收到 accepted 事件
	f.notifier.On("PublishUserEvent", mock.Anything, uint(1), mock.MatchedBy(func(e dto.CollabEvent) bool {
		return e.Type == "accepted" && e.CollabID == 55
	})).Return(nil).Once()

	// Act
	collab, err := f.svc.Accept(context.Background(), 2, 55)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.CollabStateAccepted, collab.State)
	require.NotNil(t, collab.RespondedAt)
	f.assertExpectations(t)
}

func TestCollaborationService_Reject_NoHistoryRecord(t *testing.T) {
	// Arrange: 拒绝不产生访问权变化，不写历史
	f := newCollabServiceFixture(t)
	pending := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, InviterID: 1,
		Role: domain.RoleViewer, State: domain.CollabStatePending,
	}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(pending, nil).Once()
	f.collabRepo.On("TransitionState", mock.Anything, uint(55),
		domain.CollabStatePending, domain.CollabStateRejected, mock.AnythingOfType("time.Time"),
		(*domain.ChangeRecord)(nil)).
		Return(nil).Once()
	f.notifier.On("PublishUserEvent", mock.Anything, uint(1), mock.MatchedBy(func(e dto.CollabEvent) bool {
		return e.Type == "rejected"
	})).Return(nil).Once()

	// Act
	collab, err := f.svc.Reject(context.Background(), 2, 55)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.CollabStateRejected, collab.State)
	f.assertExpectations(t)
}

func TestCollaborationService_Accept_WrongInvitee(t *testing.T) {
	// Arrange: 只有被邀请者本人可以响应
	f := newCollabServiceFixture(t)
	pending := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, State: domain.CollabStatePending,
	}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(pending, nil).Once()

	// Act
	_, err := f.svc.Accept(context.Background(), 99, 55)

	// Assert
	assert.ErrorIs(t, err, service.ErrForbidden)
	f.collabRepo.AssertNotCalled(t, "TransitionState",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestCollaborationService_Accept_AlreadyResponded(t *testing.T) {
	// Arrange
	f := newCollabServiceFixture(t)
	responded := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, State: domain.CollabStateAccepted,
	}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(responded, nil).Once()

	// Act
	_, err := f.svc.Accept(context.Background(), 2, 55)

	// Assert
	assert.ErrorIs(t, err, service.ErrInvalidState)
	f.assertExpectations(t)
}

func TestCollaborationService_Accept_LostRace(t *testing.T) {
	// Arrange: 读到 pending 但 CAS 未命中 (并发响应抢先)
	f := newCollabServiceFixture(t)
	pending := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, Role: domain.RoleViewer,
		State: domain.CollabStatePending,
	}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(pending, nil).Once()
	f.collabRepo.On("TransitionState", mock.Anything, uint(55),
		domain.CollabStatePending, domain.CollabStateAccepted,
		mock.AnythingOfType("time.Time"), mock.Anything).
		Return(repository.ErrStaleState).Once()

	// Act
	_, err := f.svc.Accept(context.Background(), 2, 55)

	// Assert
	assert.ErrorIs(t, err, service.ErrInvalidState)
	f.notifier.AssertNotCalled(t, "PublishUserEvent", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

// --- ChangeRole ---

func TestCollaborationService_ChangeRole_Success(t *testing.T) {
	// Arrange
	f := newCollabServiceFixture(t)
	accepted := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, Role: domain.RoleViewer,
		State: domain.CollabStateAccepted,
	}
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(accepted, nil).Once()
	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("UpdateRoleCAS", mock.Anything, uint(55), domain.RoleEditor,
		mock.MatchedBy(func(r *domain.ChangeRecord) bool {
			// 角色变更要带前后快照
			return r.Kind == domain.ChangeCollabGranted && r.Before != "" && r.After != ""
		})).
		Return(nil).Once()
	f.notifier.On("PublishUserEvent", mock.Anything, uint(2), mock.MatchedBy(func(e dto.CollabEvent) bool {
		return e.Type == "roleChanged" && e.Role == domain.RoleEditor
	})).Return(nil).Once()

	// Act
	collab, err := f.svc.ChangeRole(context.Background(), 1, 55, domain.RoleEditor)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, collab.Role)
	f.assertExpectations(t)
}

func TestCollaborationService_ChangeRole_NonOwner(t *testing.T) {
	// Arrange: 只有所有者可以改角色
	f := newCollabServiceFixture(t)
	accepted := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, Role: domain.RoleViewer,
		State: domain.CollabStateAccepted,
	}
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(accepted, nil).Once()
	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()

	// Act
	_, err := f.svc.ChangeRole(context.Background(), 99, 55, domain.RoleEditor)

	// Assert
	assert.ErrorIs(t, err, service.ErrForbidden)
	f.assertExpectations(t)
}

func TestCollaborationService_ChangeRole_SameRoleNoop(t *testing.T) {
	// Arrange: 相同角色是幂等空操作
	f := newCollabServiceFixture(t)
	accepted := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, Role: domain.RoleEditor,
		State: domain.CollabStateAccepted,
	}
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(accepted, nil).Once()
	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()

	// Act
	collab, err := f.svc.ChangeRole(context.Background(), 1, 55, domain.RoleEditor)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, collab.Role)
	f.collabRepo.AssertNotCalled(t, "UpdateRoleCAS", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestCollaborationService_ChangeRole_PendingInvalidState(t *testing.T) {
	// Arrange: pending 邀请不能改角色
	f := newCollabServiceFixture(t)
	pending := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, Role: domain.RoleViewer,
		State: domain.CollabStatePending,
	}
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(pending, nil).Once()
	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()

	// Act
	_, err := f.svc.ChangeRole(context.Background(), 1, 55, domain.RoleEditor)

	// Assert
	assert.ErrorIs(t, err, service.ErrInvalidState)
	f.assertExpectations(t)
}

// --- Remove ---

func TestCollaborationService_Remove_ByOwnerWritesRevocation(t *testing.T) {
	// Arrange
	f := newCollabServiceFixture(t)
	accepted := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, Role: domain.RoleEditor,
		State: domain.CollabStateAccepted,
	}
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(accepted, nil).Once()
	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("DeleteWithHistory", mock.Anything, uint(55),
		mock.MatchedBy(func(r *domain.ChangeRecord) bool {
			return r.Kind == domain.ChangeCollabRevoked && r.ActorID == 1
		})).
		Return(nil).Once()
	// 被移除的协作者收到 removed 事件
	f.notifier.On("PublishUserEvent", mock.Anything, uint(2), mock.MatchedBy(func(e dto.CollabEvent) bool {
		return e.Type == "removed"
	})).Return(nil).Once()

	// Act
	err := f.svc.Remove(context.Background(), 1, 55)

	// Assert
	assert.NoError(t, err)
	f.assertExpectations(t)
}

func TestCollaborationService_Remove_SelfLeaveNotifiesOwner(t *testing.T) {
	// Arrange: 协作者自己退出时通知所有者
	f := newCollabServiceFixture(t)
	accepted := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, Role: domain.RoleViewer,
		State: domain.CollabStateAccepted,
	}
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(accepted, nil).Once()
	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("DeleteWithHistory", mock.Anything, uint(55), mock.Anything).
		Return(nil).Once()
	f.notifier.On("PublishUserEvent", mock.Anything, uint(1), mock.MatchedBy(func(e dto.CollabEvent) bool {
		return e.Type == "removed" && e.ActorID == 2
	})).Return(nil).Once()

	// Act
	err := f.svc.Remove(context.Background(), 2, 55)

	// Assert
	assert.NoError(t, err)
	f.assertExpectations(t)
}

func TestCollaborationService_Remove_UnrelatedUser(t *testing.T) {
	// Arrange
	f := newCollabServiceFixture(t)
	accepted := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, State: domain.CollabStateAccepted,
	}
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(accepted, nil).Once()
	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()

	// Act
	err := f.svc.Remove(context.Background(), 99, 55)

	// Assert
	assert.ErrorIs(t, err, service.ErrForbidden)
	f.collabRepo.AssertNotCalled(t, "DeleteWithHistory", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestCollaborationService_Remove_PendingNoHistory(t *testing.T) {
	// Arrange: pending 邀请被移除时没有访问权可撤销，不写历史
	f := newCollabServiceFixture(t)
	pending := &domain.Collaboration{
		ID: 55, ScoreID: 10, InviteeID: 2, State: domain.CollabStatePending,
	}
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.collabRepo.On("FindByID", mock.Anything, uint(55)).Return(pending, nil).Once()
	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("DeleteWithHistory", mock.Anything, uint(55), (*domain.ChangeRecord)(nil)).
		Return(nil).Once()
	f.notifier.On("PublishUserEvent", mock.Anything, uint(2), mock.Anything).Return(nil).Once()

	// Act
	err := f.svc.Remove(context.Background(), 1, 55)

	// Assert
	assert.NoError(t, err)
	f.assertExpectations(t)
}

// --- ListInvitations / ListCollaborators ---

func TestCollaborationService_ListInvitations(t *testing.T) {
	// Arrange
	f := newCollabServiceFixture(t)

	f.collabRepo.On("FindPendingByInvitee", mock.Anything, uint(2)).
		Return([]domain.Collaboration{
			{ID: 55, ScoreID: 10, InviteeID: 2, State: domain.CollabStatePending},
		}, nil).Once()

	// Act
	invites, err := f.svc.ListInvitations(context.Background(), 2)

	// Assert
	require.NoError(t, err)
	assert.Len(t, invites, 1)
	f.assertExpectations(t)
}

func TestCollaborationService_ListCollaborators_DeniedForStranger(t *testing.T) {
	// Arrange: 私有乐谱的协作名单对无关用户不可见
	f := newCollabServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("FindByScore", mock.Anything, uint(10)).
		Return([]domain.Collaboration{}, nil).Once()

	// Act
	_, err := f.svc.ListCollaborators(context.Background(), 99, 10)

	// Assert
	assert.ErrorIs(t, err, service.ErrScoreNotFound)
	f.assertExpectations(t)
}
