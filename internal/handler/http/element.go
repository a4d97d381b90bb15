package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aitor-glitch-blde/app-partituras/internal/service"
)

// ElementHandler 封装了与音乐元素相关的 HTTP 处理逻辑
type ElementHandler struct {
	elementService *service.ElementService
}

// NewElementHandler 创建 ElementHandler 实例
func NewElementHandler(elementService *service.ElementService) *ElementHandler {
	return &ElementHandler{elementService: elementService}
}

// AddElementRequest 定义新增元素请求的结构体
type AddElementRequest struct {
	Order   int    `json:"order" binding:"min=0"`
	Content string `json:"content" binding:"required"`
}

// UpdateElementRequest 定义修改元素请求的结构体，指针为 nil 表示不修改
type UpdateElementRequest struct {
	Order   *int    `json:"order" binding:"omitempty,min=0"`
	Content *string `json:"content" binding:"omitempty,min=1"`
}

// List 处理列出乐谱元素的请求
func (h *ElementHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "id")
	if !ok {
		return
	}

	elements, err := h.elementService.List(c.Request.Context(), userID, scoreID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"elements": elements})
}

// Add 处理新增元素的请求
func (h *ElementHandler) Add(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req AddElementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.AddElement: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	element, err := h.elementService.Add(c.Request.Context(), userID, scoreID, req.Order, req.Content)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, element)
}

// Update 处理修改元素的请求
func (h *ElementHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "id")
	if !ok {
		return
	}
	elementID, ok := pathID(c, "elementId")
	if !ok {
		return
	}

	var req UpdateElementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.UpdateElement: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	element, err := h.elementService.Update(c.Request.Context(), userID, scoreID, elementID, req.Order, req.Content)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, element)
}

// Remove 处理删除元素的请求
func (h *ElementHandler) Remove(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "id")
	if !ok {
		return
	}
	elementID, ok := pathID(c, "elementId")
	if !ok {
		return
	}

	if err := h.elementService.Remove(c.Request.Context(), userID, scoreID, elementID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Element removed successfully"})
}
