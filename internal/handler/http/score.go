package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aitor-glitch-blde/app-partituras/internal/domain"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
	"github.com/aitor-glitch-blde/app-partituras/internal/service"
)

// ScoreHandler 封装了与乐谱管理相关的 HTTP 处理逻辑
type ScoreHandler struct {
	scoreService *service.ScoreService
}

// NewScoreHandler 创建 ScoreHandler 实例
func NewScoreHandler(scoreService *service.ScoreService) *ScoreHandler {
	return &ScoreHandler{scoreService: scoreService}
}

// CreateScoreRequest 定义创建乐谱请求的结构体
type CreateScoreRequest struct {
	Title         string `json:"title" binding:"required,min=1,max=255"`
	Description   string `json:"description"`
	KeySignature  string `json:"key_signature" binding:"omitempty,max=10"`
	TimeSignature string `json:"time_signature" binding:"omitempty,max=10"`
	Tempo         int    `json:"tempo" binding:"omitempty,min=1,max=400"`
	MusicalData   string `json:"musical_data"`
}

// List 处理列出当前用户可见乐谱的请求
func (h *ScoreHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	filter := repository.ScoreFilter{
		Kind:       c.Query("kind"),
		PublicOnly: c.Query("public") == "true",
	}
	page := queryPage(c)

	scores, total, err := h.scoreService.List(c.Request.Context(), userID, filter, page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, PagedResponse{
		Data:     scores,
		Total:    total,
		Page:     page.Number,
		PageSize: page.Size,
	})
}

// ListPublic 处理列出公开乐谱的请求 (无需认证)
func (h *ScoreHandler) ListPublic(c *gin.Context) {
	filter := repository.ScoreFilter{Kind: c.Query("kind")}
	page := queryPage(c)

	scores, total, err := h.scoreService.ListPublic(c.Request.Context(), filter, page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, PagedResponse{
		Data:     scores,
		Total:    total,
		Page:     page.Number,
		PageSize: page.Size,
	})
}

// Get 处理获取单份乐谱 (含元素) 的请求
func (h *ScoreHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "id")
	if !ok {
		return
	}

	score, elements, err := h.scoreService.Get(c.Request.Context(), userID, scoreID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"score":    score,
		"elements": elements,
	})
}

// Create 处理创建空白乐谱的请求
func (h *ScoreHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateScore: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	score, err := h.scoreService.Create(c.Request.Context(), userID, service.CreateScoreInput{
		Title:         req.Title,
		Description:   req.Description,
		KeySignature:  req.KeySignature,
		TimeSignature: req.TimeSignature,
		Tempo:         req.Tempo,
		MusicalData:   req.MusicalData,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, score)
}

// Upload 处理上传乐谱文件的请求 (multipart form)
func (h *ScoreHandler) Upload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	title := c.PostForm("title")
	description := c.PostForm("description")

	// 1. 取出上传文件
	fileHeader, err := c.FormFile("file")
	if err != nil {
		logCtx.WithError(err).Warn("Handler.Upload: Missing file in form")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		logCtx.WithError(err).Error("Handler.Upload: Failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	// 2. 交给 Service 校验并保存
	score, err := h.scoreService.Upload(c.Request.Context(), userID, service.UploadScoreInput{
		Title:       title,
		Description: description,
		MimeType:    fileHeader.Header.Get("Content-Type"),
		File:        file,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, score)
}

// Update 处理更新乐谱元数据/内容的请求
func (h *ScoreHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var patch domain.ScorePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		logrus.WithError(err).Warn("Handler.UpdateScore: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	score, err := h.scoreService.Update(c.Request.Context(), userID, scoreID, patch)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, score)
}

// Delete 处理删除乐谱的请求
func (h *ScoreHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.scoreService.Delete(c.Request.Context(), userID, scoreID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Score deleted successfully"})
}

// Clone 处理克隆乐谱的请求
func (h *ScoreHandler) Clone(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "id")
	if !ok {
		return
	}

	clone, err := h.scoreService.Clone(c.Request.Context(), userID, scoreID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, clone)
}

// Share 处理把乐谱设为公开的请求
func (h *ScoreHandler) Share(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "id")
	if !ok {
		return
	}

	score, err := h.scoreService.Share(c.Request.Context(), userID, scoreID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, score)
}

// History 处理查看乐谱变更历史的请求
func (h *ScoreHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "id")
	if !ok {
		return
	}

	records, err := h.scoreService.History(c.Request.Context(), userID, scoreID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"history": records})
}
