package dto

//CollabEvent 表示通过 WebSocket 推送给用户的协作事件数据结构

type CollabEvent struct {
	Type      string `json:"type"` // "invited" / "accepted" / "rejected" / "roleChanged" / "removed"
	ScoreID   uint   `json:"score_id"`
	CollabID  uint   `json:"collab_id"`
	ActorID   uint   `json:"actor_id"`
	Role      string `json:"role,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

//ErrorDTO 表示发送给客户端的错误消息数据结构

type ErrorDTO struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
