package hub

import (
	"context"
	"encoding/json" // 用于序列化推送给客户端的事件
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aitor-glitch-blde/app-partituras/internal/dto"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository"
)

// 包级别的 WebSocket 常量，供 hub 和 client 包内使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 // 通知流是单向的，客户端只发 ping/pong
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type   string  // "register", "unregister"
	Client *Client // 关联的客户端
}

// Hub 维护活跃的通知客户端集合，按用户组织。
// 每个有连接的用户对应一个 Redis 订阅；事件到达后转发给
// 该用户的所有连接 (同一用户可能开着多个标签页)。
type Hub struct {
	// 内部通道，处理所有来自 Client 的注册/注销事件
	messageChan chan HubMessage

	// 客户端集合，按 UserID 组织
	// map[userID]map[*Client]bool
	users map[uint]map[*Client]bool
	// 每个用户的订阅取消函数
	subCancels map[uint]func()
	// 保护上述两个 map 的读写锁
	usersMu sync.RWMutex

	// 注入的 Notifier，用于订阅用户事件
	notifier repository.Notifier
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(notifier repository.Notifier) *Hub {
	// 启动时检查依赖注入是否有效
	if notifier == nil {
		panic("Notifier cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 256),
		users:       make(map[uint]map[*Client]bool),
		subCancels:  make(map[uint]func()),
		notifier:    notifier,
	}
}

// Run 启动 Hub 的主事件处理循环。
// 它应该在一个单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		default:
			log.Warnf("Hub: Received unknown message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down...")
}

// Register 将客户端注册请求排入 Hub 的处理队列
func (h *Hub) Register(client *Client) {
	h.messageChan <- HubMessage{Type: "register", Client: client}
}

// registerClient 处理客户端注册逻辑。
// 该用户的第一个连接会触发 Redis 订阅。
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	userID := client.UserID()
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"action":  "registerClient",
	})

	h.usersMu.Lock()
	firstForUser := false
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[*Client]bool)
		firstForUser = true
	}
	h.users[userID][client] = true
	h.usersMu.Unlock()
	logCtx.Info("Client registered to Hub")

	if firstForUser {
		// 用后台 context 订阅，订阅生命周期由 Hub 管理而不是单个请求
		events, cancel, err := h.notifier.SubscribeUserEvents(context.Background(), userID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to subscribe to user events, notifications disabled for this session")
			// 告知客户端本次连接收不到通知，连接本身保持打开
			if payload, mErr := json.Marshal(dto.ErrorDTO{
				Type:    "error",
				Message: "notification subscription unavailable",
			}); mErr == nil {
				select {
				case client.send <- payload:
				default:
				}
			}
			return
		}
		h.usersMu.Lock()
		h.subCancels[userID] = cancel
		h.usersMu.Unlock()
		go h.forwardEvents(userID, events)
		logCtx.Info("User event subscription started")
	}
}

// unregisterClient 处理客户端注销逻辑。
// 该用户的最后一个连接断开时取消 Redis 订阅。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	userID := client.UserID()
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"action":  "unregisterClient",
	})

	h.usersMu.Lock()
	if userClients, ok := h.users[userID]; ok {
		if _, clientExists := userClients[client]; clientExists {
			delete(userClients, client)
			// 关闭此客户端的 send 通道，这将导致其 WritePump 退出
			select {
			case <-client.send:
				logCtx.Warn("Client send channel already closed or has data during unregister")
			default:
				close(client.send)
			}
			if len(userClients) == 0 {
				delete(h.users, userID)
				if cancel, subOk := h.subCancels[userID]; subOk {
					delete(h.subCancels, userID)
					cancel()
					logCtx.Info("Last client gone, user event subscription stopped")
				}
			}
		} else {
			logCtx.Warn("Client not found in user map during unregister")
		}
	} else {
		logCtx.Warn("User not found during client unregister")
	}
	h.usersMu.Unlock()
	logCtx.Info("Client unregistered from Hub")
}

// forwardEvents 将 Redis 订阅中的事件推送给该用户的全部连接。
// 订阅取消后 events 被关闭，goroutine 退出。
func (h *Hub) forwardEvents(userID uint, events <-chan dto.CollabEvent) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "operation": "forwardEvents"})
	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			logCtx.WithError(err).Error("Failed to marshal event for delivery")
			continue
		}
		h.deliver(userID, payload)
	}
	logCtx.Debug("Event forwarding loop exited")
}

// deliver 将消息发送给指定用户的所有客户端
func (h *Hub) deliver(userID uint, message []byte) {
	h.usersMu.RLock()
	userClients, ok := h.users[userID]
	// 创建一个接收者列表的副本，以避免长时间持有锁
	clientsToSend := make([]*Client, 0, len(userClients))
	if ok {
		for client := range userClients {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.usersMu.RUnlock()

	if len(clientsToSend) == 0 {
		return
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"user_id":         userID,
		"message_size":    len(message),
		"recipient_count": len(clientsToSend),
	})
	logCtx.Debug("Delivering event to clients")

	for _, client := range clientsToSend {
		// 使用非阻塞发送，避免单个慢客户端阻塞投递
		select {
		case client.send <- message:
		default:
			logCtx.Warn("Client send channel full during delivery, skipping this client")
		}
	}
}

// StopAllSubscriptions 取消所有用户的事件订阅 (优雅关闭时调用)
func (h *Hub) StopAllSubscriptions() {
	h.usersMu.Lock()
	defer h.usersMu.Unlock()
	for userID, cancel := range h.subCancels {
		cancel()
		delete(h.subCancels, userID)
		logrus.WithField("user_id", userID).Debug("User event subscription cancelled during shutdown")
	}
}
