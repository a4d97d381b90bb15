package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository/mocks"
	"github.com/aitor-glitch-blde/app-partituras/internal/service"
)

// stubBlobStore 满足构造 ScoreService 的依赖，列表接口不会用到它
type stubBlobStore struct{}

func (stubBlobStore) Save(r io.Reader, mimeType string) (string, int64, error) { return "", 0, nil }
func (stubBlobStore) Delete(path string) error                                 { return nil }

func newScoreHandlerHarness() (*ScoreHandler, *mocks.ScoreRepository) {
	scoreRepo := new(mocks.ScoreRepository)
	svc := service.NewScoreService(
		scoreRepo,
		new(mocks.CollaborationRepository),
		new(mocks.HistoryRepository),
		new(mocks.ElementRepository),
		stubBlobStore{},
	)
	return NewScoreHandler(svc), scoreRepo
}

func TestScoreHandler_List_ParsesFilters(t *testing.T) {
	// Arrange
	gin.SetMode(gin.TestMode)
	handler, scoreRepo := newScoreHandlerHarness()

	scoreRepo.On("ListVisible", mock.Anything, uint(9),
		mock.MatchedBy(func(f repository.ScoreFilter) bool {
			return f.Kind == "uploaded" && f.PublicOnly
		}),
		mock.MatchedBy(func(p repository.Page) bool {
			return p.Number == 2 && p.Size == 5
		})).
		Return([]domain.Score{}, int64(0), nil).Once()

	router := gin.New()
	router.GET("/api/scores", func(c *gin.Context) { c.Set("user_id", uint(9)) }, handler.List)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/scores?kind=uploaded&public=true&page=2&page_size=5", nil)
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	scoreRepo.AssertExpectations(t)
}

func TestScoreHandler_List_DefaultsToAllVisible(t *testing.T) {
	// Arrange: 不带过滤参数时不限制 kind 也不限制公开性
	gin.SetMode(gin.TestMode)
	handler, scoreRepo := newScoreHandlerHarness()

	scoreRepo.On("ListVisible", mock.Anything, uint(9),
		mock.MatchedBy(func(f repository.ScoreFilter) bool {
			return f.Kind == "" && !f.PublicOnly
		}),
		mock.Anything).
		Return([]domain.Score{}, int64(0), nil).Once()

	router := gin.New()
	router.GET("/api/scores", func(c *gin.Context) { c.Set("user_id", uint(9)) }, handler.List)

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/scores", nil)
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	scoreRepo.AssertExpectations(t)
}
