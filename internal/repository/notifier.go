package repository

import (
	"context"

	"github.com/aitor-glitch-blde/app-partituras/internal/dto"
)

// Notifier 定义了协作事件的发布/订阅，通常由 Redis Pub/Sub 实现。
// 发布失败不应中断业务流程，调用方只记录日志。
type Notifier interface {
	// PublishUserEvent 向指定用户的通知频道发布一个协作事件。
	PublishUserEvent(ctx context.Context, userID uint, event dto.CollabEvent) error

	// SubscribeUserEvents 订阅指定用户的通知频道。
	// 返回接收事件的 channel 和取消订阅的函数；取消后 channel 会被关闭。
	SubscribeUserEvents(ctx context.Context, userID uint) (<-chan dto.CollabEvent, func(), error)
}
