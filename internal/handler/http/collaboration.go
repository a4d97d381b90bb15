package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aitor-glitch-blde/app-partituras/internal/service"
)

// CollaborationHandler 封装了与协作邀请相关的 HTTP 处理逻辑
type CollaborationHandler struct {
	collabService *service.CollaborationService
}

// NewCollaborationHandler 创建 CollaborationHandler 实例
func NewCollaborationHandler(collabService *service.CollaborationService) *CollaborationHandler {
	return &CollaborationHandler{collabService: collabService}
}

// InviteRequest 定义发出协作邀请请求的结构体
type InviteRequest struct {
	Username string `json:"username" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=viewer editor"`
}

// ChangeRoleRequest 定义修改协作者角色请求的结构体
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=viewer editor"`
}

// ListInvitations 处理列出当前用户待处理邀请的请求
func (h *CollaborationHandler) ListInvitations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	invites, err := h.collabService.ListInvitations(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"invitations": invites})
}

// ListCollaborators 处理列出某乐谱协作者的请求
func (h *CollaborationHandler) ListCollaborators(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "scoreId")
	if !ok {
		return
	}

	collabs, err := h.collabService.ListCollaborators(c.Request.Context(), userID, scoreID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"collaborators": collabs})
}

// Invite 处理向其他用户发出协作邀请的请求
func (h *CollaborationHandler) Invite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scoreID, ok := pathID(c, "scoreId")
	if !ok {
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Invite: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	collab, err := h.collabService.Invite(c.Request.Context(), userID, scoreID, req.Username, req.Role)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, collab)
}

// Accept 处理接受协作邀请的请求
func (h *CollaborationHandler) Accept(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	collabID, ok := pathID(c, "id")
	if !ok {
		return
	}

	collab, err := h.collabService.Accept(c.Request.Context(), userID, collabID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, collab)
}

// Reject 处理拒绝协作邀请的请求
func (h *CollaborationHandler) Reject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	collabID, ok := pathID(c, "id")
	if !ok {
		return
	}

	collab, err := h.collabService.Reject(c.Request.Context(), userID, collabID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, collab)
}

// ChangeRole 处理修改协作者角色的请求
func (h *CollaborationHandler) ChangeRole(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	collabID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.ChangeRole: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	collab, err := h.collabService.ChangeRole(c.Request.Context(), userID, collabID, req.Role)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, collab)
}

// Remove 处理移除协作者 (或协作者自己退出) 的请求
func (h *CollaborationHandler) Remove(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	collabID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.collabService.Remove(c.Request.Context(), userID, collabID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Collaboration removed successfully"})
}
