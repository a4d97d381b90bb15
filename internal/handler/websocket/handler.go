package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/aitor-glitch-blde/app-partituras/internal/hub"
)

// NotificationHandler 负责处理通知流的 WebSocket 升级请求和客户端注册
type NotificationHandler struct {
	upgrader websocket.Upgrader // WebSocket 升级器
	hub      *hub.Hub           // 依赖 Hub
}

// NewNotificationHandler 创建 NotificationHandler 实例
func NewNotificationHandler(h *hub.Hub) *NotificationHandler {
	if h == nil {
		panic("Hub cannot be nil for NotificationHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接 (生产环境应配置具体的允许来源)
		CheckOrigin: func(r *http.Request) bool {
			// TODO: Implement proper origin checking for production
			return true
		},
	}

	return &NotificationHandler{
		upgrader: upgrader,
		hub:      h,
	}
}

// HandleConnection 处理通知流连接请求
// URL: /ws/notifications
func (h *NotificationHandler) HandleConnection(c *gin.Context) {
	// 1. 获取认证用户 ID (由 Auth 中间件设置)
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return // 返回 HTTP 错误，因为此时还未升级到 WebSocket
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("WS Handler: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	// 2. 升级到 WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写入了 HTTP 错误响应
		logCtx.WithError(err).Warn("WS Handler: Failed to upgrade connection")
		return
	}

	// 3. 创建客户端并注册到 Hub
	client := hub.NewClient(h.hub, conn, userID)
	h.hub.Register(client)
	client.Run()

	logCtx.Info("WS Handler: Notification stream established")
}
