package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
)

// ElementService 封装乐谱内音乐元素的增删改查。
// 所有写操作要求对所属乐谱有写权限，并落入变更历史。
type ElementService struct {
	elementRepo repository.ElementRepository
	scoreRepo   repository.ScoreRepository
	collabRepo  repository.CollaborationRepository
}

// NewElementService 创建 ElementService 实例。
func NewElementService(
	elementRepo repository.ElementRepository,
	scoreRepo repository.ScoreRepository,
	collabRepo repository.CollaborationRepository,
) *ElementService {
	if elementRepo == nil || scoreRepo == nil || collabRepo == nil {
		panic("repositories cannot be nil for ElementService")
	}
	return &ElementService{
		elementRepo: elementRepo,
		scoreRepo:   scoreRepo,
		collabRepo:  collabRepo,
	}
}

// List 返回乐谱的全部元素，按 Order 升序。要求读权限。
func (s *ElementService) List(ctx context.Context, userID, scoreID uint) ([]domain.MusicalElement, error) {
	if _, err := s.requireAccess(ctx, userID, scoreID, domain.AccessRead); err != nil {
		return nil, err
	}
	elements, err := s.elementRepo.ListByScore(ctx, scoreID)
	if err != nil {
		logrus.WithError(err).WithField("score_id", scoreID).Error("Failed to list elements")
		return nil, mapRepoError(err)
	}
	return elements, nil
}

// Add 在乐谱中新增一个元素。要求写权限。
// Order 与现有元素冲突时返回 ErrConflict。
func (s *ElementService) Add(ctx context.Context, userID, scoreID uint, order int, content string) (*domain.MusicalElement, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "score_id": scoreID, "order": order})

	if content == "" {
		return nil, fmt.Errorf("%w: element content is required", ErrValidation)
	}
	if _, err := s.requireAccess(ctx, userID, scoreID, domain.AccessWrite); err != nil {
		return nil, err
	}

	element := &domain.MusicalElement{
		ScoreID: scoreID,
		Order:   order,
		Content: content,
	}
	record, err := s.elementRecord(scoreID, userID, domain.ChangeElementAdded, nil, element)
	if err != nil {
		return nil, ErrInternalServer
	}
	if err := s.elementRepo.CreateWithHistory(ctx, element, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrConflict
		}
		logCtx.WithError(err).Error("Failed to add element")
		return nil, mapRepoError(err)
	}

	logCtx.WithField("element_id", element.ID).Info("Element added")
	return element, nil
}

// Update 修改一个元素的顺序/内容。要求写权限。
func (s *ElementService) Update(ctx context.Context, userID, scoreID, elementID uint, order *int, content *string) (*domain.MusicalElement, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "score_id": scoreID, "element_id": elementID})

	if order == nil && content == nil {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	if _, err := s.requireAccess(ctx, userID, scoreID, domain.AccessWrite); err != nil {
		return nil, err
	}

	element, err := s.loadElement(ctx, scoreID, elementID)
	if err != nil {
		return nil, err
	}

	before := *element
	if order != nil {
		element.Order = *order
	}
	if content != nil {
		element.Content = *content
	}

	record, err := s.elementRecord(scoreID, userID, domain.ChangeElementUpdate, &before, element)
	if err != nil {
		return nil, ErrInternalServer
	}
	if err := s.elementRepo.UpdateWithHistory(ctx, element, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrConflict
		}
		logCtx.WithError(err).Error("Failed to update element")
		return nil, mapRepoError(err)
	}

	logCtx.Info("Element updated")
	return element, nil
}

// Remove 删除一个元素。要求写权限。
func (s *ElementService) Remove(ctx context.Context, userID, scoreID, elementID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "score_id": scoreID, "element_id": elementID})

	if _, err := s.requireAccess(ctx, userID, scoreID, domain.AccessWrite); err != nil {
		return err
	}
	element, err := s.loadElement(ctx, scoreID, elementID)
	if err != nil {
		return err
	}

	record, err := s.elementRecord(scoreID, userID, domain.ChangeElementRemove, element, nil)
	if err != nil {
		return ErrInternalServer
	}
	if err := s.elementRepo.DeleteWithHistory(ctx, elementID, record); err != nil {
		if errors.Is(err, repository.ErrElementNotFound) {
			return ErrElementNotFound
		}
		logCtx.WithError(err).Error("Failed to remove element")
		return mapRepoError(err)
	}

	logCtx.Info("Element removed")
	return nil
}

// --- 私有辅助函数 ---

// requireAccess 加载乐谱并要求指定访问级别。
// 完全不可见返回 ErrScoreNotFound，可见但级别不足返回 ErrForbidden。
func (s *ElementService) requireAccess(ctx context.Context, userID, scoreID uint, need domain.AccessLevel) (*domain.Score, error) {
	score, err := s.scoreRepo.FindByID(ctx, scoreID)
	if err != nil {
		if errors.Is(err, repository.ErrScoreNotFound) {
			return nil, ErrScoreNotFound
		}
		return nil, mapRepoError(err)
	}
	access, err := resolveAccess(ctx, s.collabRepo, userID, score)
	if err != nil {
		return nil, err
	}
	if access < domain.AccessRead {
		return nil, ErrScoreNotFound
	}
	if access < need {
		return nil, ErrForbidden
	}
	return score, nil
}

// loadElement 加载元素并校验其确实属于 scoreID。
// 跨乐谱的元素 ID 猜测一律按不存在处理。
func (s *ElementService) loadElement(ctx context.Context, scoreID, elementID uint) (*domain.MusicalElement, error) {
	element, err := s.elementRepo.FindByID(ctx, elementID)
	if err != nil {
		if errors.Is(err, repository.ErrElementNotFound) {
			return nil, ErrElementNotFound
		}
		return nil, mapRepoError(err)
	}
	if element.ScoreID != scoreID {
		return nil, ErrElementNotFound
	}
	return element, nil
}

// elementRecord 构造元素变更的历史记录。
func (s *ElementService) elementRecord(scoreID, actorID uint, kind string, before, after *domain.MusicalElement) (*domain.ChangeRecord, error) {
	record := &domain.ChangeRecord{
		ScoreID:   scoreID,
		ActorID:   actorID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
	if before != nil {
		snap, err := before.Snapshot()
		if err != nil {
			logrus.WithError(err).Error("Failed to snapshot element (before)")
			return nil, err
		}
		record.Before = snap
	}
	if after != nil {
		snap, err := after.Snapshot()
		if err != nil {
			logrus.WithError(err).Error("Failed to snapshot element (after)")
			return nil, err
		}
		record.After = snap
	}
	return record, nil
}
