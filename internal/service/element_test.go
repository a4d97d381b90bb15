package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository/mocks"
	"github.com/aitor-glitch-blde/app-partituras/internal/service"
)

type elementServiceFixture struct {
	svc         *service.ElementService
	elementRepo *mocks.ElementRepository
	scoreRepo   *mocks.ScoreRepository
	collabRepo  *mocks.CollaborationRepository
}

func newElementServiceFixture(t *testing.T) *elementServiceFixture {
	t.Helper()
	f := &elementServiceFixture{
		elementRepo: new(mocks.ElementRepository),
		scoreRepo:   new(mocks.ScoreRepository),
		collabRepo:  new(mocks.CollaborationRepository),
	}
	f.svc = service.NewElementService(f.elementRepo, f.scoreRepo, f.collabRepo)
	return f
}

func (f *elementServiceFixture) assertExpectations(t *testing.T) {
	f.elementRepo.AssertExpectations(t)
	f.scoreRepo.AssertExpectations(t)
	f.collabRepo.AssertExpectations(t)
}

func TestElementService_Add_OwnerSuccess(t *testing.T) {
	// Arrange
	f := newElementServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.elementRepo.On("CreateWithHistory", mock.Anything,
		mock.MatchedBy(func(e *domain.MusicalElement) bool {
			return e.ScoreID == 10 && e.Order == 3 && e.Content == `{"type":"note","pitch":"C4"}`
		}),
		mock.MatchedBy(func(r *domain.ChangeRecord) bool {
			return r.Kind == domain.ChangeElementAdded && r.Before == "" && r.After != ""
		})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.MusicalElement).ID = 7
		}).
		Return(nil).Once()

	// Act
	element, err := f.svc.Add(context.Background(), 1, 10, 3, `{"type":"note","pitch":"C4"}`)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(7), element.ID)
	f.assertExpectations(t)
}

func TestElementService_Add_OrderConflict(t *testing.T) {
	// Arrange: Order 在乐谱内已被占用
	f := newElementServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.elementRepo.On("CreateWithHistory", mock.Anything, mock.Anything, mock.Anything).
		Return(repository.ErrDuplicateEntry).Once()

	// Act
	_, err := f.svc.Add(context.Background(), 1, 10, 3, "{}")

	// Assert
	assert.ErrorIs(t, err, service.ErrConflict)
	f.assertExpectations(t)
}

func TestElementService_Add_ViewerForbidden(t *testing.T) {
	// Arrange: viewer 只有读权限
	f := newElementServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("FindByScore", mock.Anything, uint(10)).
		Return([]domain.Collaboration{
			{ScoreID: 10, InviteeID: 2, Role: domain.RoleViewer, State: domain.CollabStateAccepted},
		}, nil).Once()

	// Act
	_, err := f.svc.Add(context.Background(), 2, 10, 0, "{}")

	// Assert
	assert.ErrorIs(t, err, service.ErrForbidden)
	f.elementRepo.AssertNotCalled(t, "CreateWithHistory", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestElementService_Add_EmptyContent(t *testing.T) {
	f := newElementServiceFixture(t)

	_, err := f.svc.Add(context.Background(), 1, 10, 0, "")

	assert.ErrorIs(t, err, service.ErrValidation)
	f.scoreRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestElementService_Update_EditorSuccess(t *testing.T) {
	// Arrange
	f := newElementServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}
	existing := &domain.MusicalElement{ID: 7, ScoreID: 10, Order: 3, Content: "old"}
	newContent := "new"

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("FindByScore", mock.Anything, uint(10)).
		Return([]domain.Collaboration{
			{ScoreID: 10, InviteeID: 2, Role: domain.RoleEditor, State: domain.CollabStateAccepted},
		}, nil).Once()
	f.elementRepo.On("FindByID", mock.Anything, uint(7)).Return(existing, nil).Once()
	f.elementRepo.On("UpdateWithHistory", mock.Anything,
		mock.MatchedBy(func(e *domain.MusicalElement) bool {
			return e.ID == 7 && e.Content == "new" && e.Order == 3
		}),
		mock.MatchedBy(func(r *domain.ChangeRecord) bool {
			return r.Kind == domain.ChangeElementUpdate && r.Before != "" && r.After != ""
		})).
		Return(nil).Once()

	// Act
	element, err := f.svc.Update(context.Background(), 2, 10, 7, nil, &newContent)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "new", element.Content)
	f.assertExpectations(t)
}

func TestElementService_Update_CrossScoreElement(t *testing.T) {
	// Arrange: 元素属于别的乐谱，按不存在处理
	f := newElementServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}
	foreign := &domain.MusicalElement{ID: 7, ScoreID: 99, Order: 0, Content: "x"}
	order := 1

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.elementRepo.On("FindByID", mock.Anything, uint(7)).Return(foreign, nil).Once()

	// Act
	_, err := f.svc.Update(context.Background(), 1, 10, 7, &order, nil)

	// Assert
	assert.ErrorIs(t, err, service.ErrElementNotFound)
	f.elementRepo.AssertNotCalled(t, "UpdateWithHistory", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestElementService_Update_NoFields(t *testing.T) {
	f := newElementServiceFixture(t)

	_, err := f.svc.Update(context.Background(), 1, 10, 7, nil, nil)

	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestElementService_Remove_WritesHistory(t *testing.T) {
	// Arrange
	f := newElementServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}
	existing := &domain.MusicalElement{ID: 7, ScoreID: 10, Order: 3, Content: "x"}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.elementRepo.On("FindByID", mock.Anything, uint(7)).Return(existing, nil).Once()
	f.elementRepo.On("DeleteWithHistory", mock.Anything, uint(7),
		mock.MatchedBy(func(r *domain.ChangeRecord) bool {
			// 删除只有 before 快照
			return r.Kind == domain.ChangeElementRemove && r.Before != "" && r.After == ""
		})).
		Return(nil).Once()

	// Act
	err := f.svc.Remove(context.Background(), 1, 10, 7)

	// Assert
	assert.NoError(t, err)
	f.assertExpectations(t)
}

func TestElementService_List_StrangerGetsNotFound(t *testing.T) {
	// Arrange
	f := newElementServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("FindByScore", mock.Anything, uint(10)).
		Return([]domain.Collaboration{}, nil).Once()

	// Act
	_, err := f.svc.List(context.Background(), 99, 10)

	// Assert
	assert.ErrorIs(t, err, service.ErrScoreNotFound)
	f.elementRepo.AssertNotCalled(t, "ListByScore", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestElementService_List_PublicScoreReadable(t *testing.T) {
	// Arrange: 公开乐谱对任何登录用户可读
	f := newElementServiceFixture(t)
	score := &domain.Score{ID: 10, OwnerID: 1, IsPublic: true}

	f.scoreRepo.On("FindByID", mock.Anything, uint(10)).Return(score, nil).Once()
	f.collabRepo.On("FindByScore", mock.Anything, uint(10)).
		Return([]domain.Collaboration{}, nil).Once()
	f.elementRepo.On("ListByScore", mock.Anything, uint(10)).
		Return([]domain.MusicalElement{{ID: 7, ScoreID: 10}}, nil).Once()

	// Act
	elements, err := f.svc.List(context.Background(), 99, 10)

	// Assert
	require.NoError(t, err)
	assert.Len(t, elements, 1)
	f.assertExpectations(t)
}
