package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
)

// 新建乐谱的默认记谱参数。
const (
	defaultTimeSignature = "4/4"
	defaultKeySignature  = "C"
	defaultTempo         = 120
)

// BlobStore 定义乐谱文件的持久化存储。
type BlobStore interface {
	Save(r io.Reader, mimeType string) (path string, size int64, err error)
	Delete(path string) error
}

// CreateScoreInput 是创建乐谱的输入参数。
type CreateScoreInput struct {
	Title         string
	Description   string
	KeySignature  string
	TimeSignature string
	Tempo         int
	MusicalData   string
}

// UploadScoreInput 是上传乐谱文件的输入参数。
type UploadScoreInput struct {
	Title       string
	Description string
	MimeType    string
	File        io.Reader
}

// ScoreService 封装乐谱的核心业务逻辑: 可见性判定、增删改查、
// 克隆、公开分享，以及每次变更的历史落账。
type ScoreService struct {
	scoreRepo   repository.ScoreRepository
	collabRepo  repository.CollaborationRepository
	historyRepo repository.HistoryRepository
	elementRepo repository.ElementRepository
	blobs       BlobStore
}

// NewScoreService 创建 ScoreService 实例。
func NewScoreService(
	scoreRepo repository.ScoreRepository,
	collabRepo repository.CollaborationRepository,
	historyRepo repository.HistoryRepository,
	elementRepo repository.ElementRepository,
	blobs BlobStore,
) *ScoreService {
	if scoreRepo == nil || collabRepo == nil || historyRepo == nil || elementRepo == nil {
		panic("repositories cannot be nil for ScoreService")
	}
	if blobs == nil {
		panic("BlobStore cannot be nil for ScoreService")
	}
	return &ScoreService{
		scoreRepo:   scoreRepo,
		collabRepo:  collabRepo,
		historyRepo: historyRepo,
		elementRepo: elementRepo,
		blobs:       blobs,
	}
}

// Get 返回单份乐谱及其全部元素。
// 请求者没有读取权时返回 ErrScoreNotFound (不区分 "不存在" 和 "无权")。
func (s *ScoreService) Get(ctx context.Context, userID, scoreID uint) (*domain.Score, []domain.MusicalElement, error) {
	score, err := s.loadReadable(ctx, userID, scoreID)
	if err != nil {
		return nil, nil, err
	}
	elements, err := s.elementRepo.ListByScore(ctx, scoreID)
	if err != nil {
		logrus.WithError(err).WithField("score_id", scoreID).Error("Failed to load score elements")
		return nil, nil, mapRepoError(err)
	}
	return score, elements, nil
}

// List 返回 userID 可见的乐谱分页 (自有 + 公开 + 已接受协作)。
func (s *ScoreService) List(ctx context.Context, userID uint, filter repository.ScoreFilter, page repository.Page) ([]domain.Score, int64, error) {
	page = normalizePage(page)
	scores, total, err := s.scoreRepo.ListVisible(ctx, userID, filter, page)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list visible scores")
		return nil, 0, mapRepoError(err)
	}
	return scores, total, nil
}

// ListPublic 返回公开乐谱分页，不要求认证。
func (s *ScoreService) ListPublic(ctx context.Context, filter repository.ScoreFilter, page repository.Page) ([]domain.Score, int64, error) {
	filter.PublicOnly = true
	// userID=0 不匹配任何所有者/协作者，谓词退化为 is_public
	return s.List(ctx, 0, filter, page)
}

// Create 创建一份空白乐谱。未提供的记谱参数取默认值 (4/4, C, 120 BPM)。
func (s *ScoreService) Create(ctx context.Context, ownerID uint, input CreateScoreInput) (*domain.Score, error) {
	logCtx := logrus.WithFields(logrus.Fields{"owner_id": ownerID, "title": input.Title})

	// 1. 验证与默认值
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.TimeSignature == "" {
		input.TimeSignature = defaultTimeSignature
	}
	if input.KeySignature == "" {
		input.KeySignature = defaultKeySignature
	}
	if input.Tempo <= 0 {
		input.Tempo = defaultTempo
	}

	score := &domain.Score{
		OwnerID:       ownerID,
		Title:         input.Title,
		Description:   input.Description,
		Kind:          domain.ScoreKindCreated,
		KeySignature:  input.KeySignature,
		TimeSignature: input.TimeSignature,
		Tempo:         input.Tempo,
		MusicalData:   input.MusicalData,
	}

	// 2. 创建乐谱并在同一事务中写入 created 历史
	record, err := s.buildRecord(score.ID, ownerID, domain.ChangeCreated, nil, score)
	if err != nil {
		return nil, ErrInternalServer
	}
	if err := s.scoreRepo.CreateWithHistory(ctx, score, record); err != nil {
		logCtx.WithError(err).Error("Failed to create score")
		return nil, mapRepoError(err)
	}

	logCtx.WithField("score_id", score.ID).Info("Score created")
	return score, nil
}

// Upload 保存上传的乐谱文件并创建对应的 uploaded 乐谱。
// 文件先落盘再写数据库；数据库失败时删除刚写入的文件，避免孤儿。
func (s *ScoreService) Upload(ctx context.Context, ownerID uint, input UploadScoreInput) (*domain.Score, error) {
	logCtx := logrus.WithFields(logrus.Fields{"owner_id": ownerID, "title": input.Title, "mime_type": input.MimeType})

	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.File == nil {
		return nil, fmt.Errorf("%w: file is required", ErrValidation)
	}

	// 1. 写入 blob 存储 (类型/大小校验在存储层)
	path, size, err := s.blobs.Save(input.File, input.MimeType)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to store uploaded file")
		return nil, errors.Join(ErrValidation, err)
	}

	score := &domain.Score{
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Kind:        domain.ScoreKindUploaded,
		FilePath:    path,
		FileFormat:  input.MimeType,
		FileSize:    size,
	}

	// 2. 创建乐谱记录，失败时回收文件
	record, err := s.buildRecord(score.ID, ownerID, domain.ChangeCreated, nil, score)
	if err != nil {
		s.cleanupFile(path)
		return nil, ErrInternalServer
	}
	if err := s.scoreRepo.CreateWithHistory(ctx, score, record); err != nil {
		logCtx.WithError(err).Error("Failed to create uploaded score")
		s.cleanupFile(path)
		return nil, mapRepoError(err)
	}

	logCtx.WithFields(logrus.Fields{"score_id": score.ID, "file_size": size}).Info("Score uploaded")
	return score, nil
}

// Update 按白名单 patch 更新乐谱，要求写权限。
// OwnerID/Kind/文件字段不在 patch 内，无法通过本方法修改。
func (s *ScoreService) Update(ctx context.Context, userID, scoreID uint, patch domain.ScorePatch) (*domain.Score, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "score_id": scoreID})

	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}

	// 1. 加载并检查写权限
	score, err := s.loadWritable(ctx, userID, scoreID)
	if err != nil {
		return nil, err
	}

	// 2. 记录变更前快照，应用 patch
	before := *score
	patch.Apply(score)
	score.ModifiedAt = time.Now()

	// 3. 保存并落账
	record, err := s.buildRecord(score.ID, userID, domain.ChangeUpdated, &before, score)
	if err != nil {
		return nil, ErrInternalServer
	}
	if err := s.scoreRepo.UpdateWithHistory(ctx, score, record); err != nil {
		logCtx.WithError(err).Error("Failed to update score")
		return nil, mapRepoError(err)
	}

	logCtx.Info("Score updated")
	return score, nil
}

// Delete 删除乐谱，仅所有者可操作。
// 协作与元素记录一并清理，变更历史保留；关联文件最后删除。
func (s *ScoreService) Delete(ctx context.Context, userID, scoreID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "score_id": scoreID})

	score, err := s.loadReadable(ctx, userID, scoreID)
	if err != nil {
		return err
	}
	if score.OwnerID != userID {
		// 协作者可见但不可删除
		return ErrForbidden
	}

	if err := s.scoreRepo.Delete(ctx, scoreID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrScoreNotFound
		}
		logCtx.WithError(err).Error("Failed to delete score")
		return mapRepoError(err)
	}

	// 数据库删除成功后再清理文件；文件删除失败只记日志，
	// 留给孤儿文件清理任务兜底。
	if score.FilePath != "" {
		s.cleanupFile(score.FilePath)
	}

	logCtx.Info("Score deleted")
	return nil
}

// Clone 把一份可读乐谱复制为请求者拥有的新乐谱，元素一并复制。
// 新乐谱总是私有的，不继承协作关系和历史。
func (s *ScoreService) Clone(ctx context.Context, userID, scoreID uint) (*domain.Score, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "score_id": scoreID})

	// 1. 读权限即可克隆
	src, err := s.loadReadable(ctx, userID, scoreID)
	if err != nil {
		return nil, err
	}
	elements, err := s.elementRepo.ListByScore(ctx, scoreID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load elements for clone")
		return nil, mapRepoError(err)
	}

	// 2. 构造副本 (文件不复制，克隆得到的是可编辑的 created 乐谱)
	clone := &domain.Score{
		OwnerID:       userID,
		Title:         src.Title + " (copia)",
		Description:   src.Description,
		Kind:          domain.ScoreKindCreated,
		KeySignature:  src.KeySignature,
		TimeSignature: src.TimeSignature,
		Tempo:         src.Tempo,
		MusicalData:   src.MusicalData,
	}
	copied := make([]domain.MusicalElement, len(elements))
	for i, el := range elements {
		copied[i] = domain.MusicalElement{
			Order:   el.Order,
			Content: el.Content,
		}
	}

	record, err := s.buildRecord(0, userID, domain.ChangeCreated, nil, clone)
	if err != nil {
		return nil, ErrInternalServer
	}
	if err := s.scoreRepo.CreateWithElements(ctx, clone, copied, record); err != nil {
		logCtx.WithError(err).Error("Failed to clone score")
		return nil, mapRepoError(err)
	}

	logCtx.WithField("clone_id", clone.ID).Info("Score cloned")
	return clone, nil
}

// Share 把乐谱设为公开，仅所有者可操作。已公开时幂等返回。
func (s *ScoreService) Share(ctx context.Context, userID, scoreID uint) (*domain.Score, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "score_id": scoreID})

	score, err := s.loadReadable(ctx, userID, scoreID)
	if err != nil {
		return nil, err
	}
	if score.OwnerID != userID {
		return nil, ErrForbidden
	}
	if score.IsPublic {
		return score, nil
	}

	before := *score
	score.IsPublic = true
	record, err := s.buildRecord(score.ID, userID, domain.ChangeUpdated, &before, score)
	if err != nil {
		return nil, ErrInternalServer
	}
	if err := s.scoreRepo.UpdateWithHistory(ctx, score, record); err != nil {
		logCtx.WithError(err).Error("Failed to share score")
		return nil, mapRepoError(err)
	}

	logCtx.Info("Score shared publicly")
	return score, nil
}

// History 返回乐谱的变更历史，按 (Timestamp, ID) 升序。
// 读权限即可查看 (历史对 viewer 同样可见)。
func (s *ScoreService) History(ctx context.Context, userID, scoreID uint) ([]domain.ChangeRecord, error) {
	if _, err := s.loadReadable(ctx, userID, scoreID); err != nil {
		return nil, err
	}
	records, err := s.historyRepo.ListByScore(ctx, scoreID)
	if err != nil {
		logrus.WithError(err).WithField("score_id", scoreID).Error("Failed to list change history")
		return nil, mapRepoError(err)
	}
	return records, nil
}

// --- 私有辅助函数 ---

// loadReadable 加载乐谱并要求 userID 至少有读权限。
// 乐谱不存在和无权访问返回同一个错误。
func (s *ScoreService) loadReadable(ctx context.Context, userID, scoreID uint) (*domain.Score, error) {
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
	return score, nil
}

// loadWritable 加载乐谱并要求写权限。
// 完全不可见返回 ErrScoreNotFound，可见但只读返回 ErrForbidden。
func (s *ScoreService) loadWritable(ctx context.Context, userID, scoreID uint) (*domain.Score, error) {
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
	switch {
	case access >= domain.AccessWrite:
		return score, nil
	case access >= domain.AccessRead:
		return nil, ErrForbidden
	default:
		return nil, ErrScoreNotFound
	}
}

// buildRecord 根据前后快照构造一条变更记录。
func (s *ScoreService) buildRecord(scoreID, actorID uint, kind string, before, after *domain.Score) (*domain.ChangeRecord, error) {
	record := &domain.ChangeRecord{
		ScoreID:   scoreID,
		ActorID:   actorID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
	if before != nil {
		snap, err := before.Snapshot()
		if err != nil {
			logrus.WithError(err).Error("Failed to snapshot score (before)")
			return nil, err
		}
		record.Before = snap
	}
	if after != nil {
		snap, err := after.Snapshot()
		if err != nil {
			logrus.WithError(err).Error("Failed to snapshot score (after)")
			return nil, err
		}
		record.After = snap
	}
	return record, nil
}

// cleanupFile 尽力删除 blob 文件，失败只记日志。
func (s *ScoreService) cleanupFile(path string) {
	if err := s.blobs.Delete(path); err != nil {
		logrus.WithError(err).WithField("path", path).Warn("Failed to delete blob file")
	}
}

// normalizePage 把非法分页参数钳制到安全范围。
func normalizePage(page repository.Page) repository.Page {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = 20
	}
	if page.Size > 100 {
		page.Size = 100
	}
	return page
}
