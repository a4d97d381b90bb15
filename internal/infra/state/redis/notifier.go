// Package redisstate 提供基于 Redis Pub/Sub 的协作事件通知实现。
package redisstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/aitor-glitch-blde/app-partituras/internal/dto"
)

// RedisNotifier 是 Notifier 接口的 Redis Pub/Sub 实现
type RedisNotifier struct {
	client *redis.Client
	// Redis key 前缀，方便多环境共用一个 Redis 实例
	keyPrefix string
}

// NewRedisNotifier 创建 RedisNotifier 实例
func NewRedisNotifier(client *redis.Client, keyPrefix string) *RedisNotifier {
	if client == nil {
		panic("redis client cannot be nil for RedisNotifier")
	}
	if keyPrefix == "" {
		keyPrefix = "pt:" // 默认前缀 "pt:" (partituras)
	}
	return &RedisNotifier{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// userEventsChannel 生成某用户通知频道的名称
func (n *RedisNotifier) userEventsChannel(userID uint) string {
	return fmt.Sprintf("%suser:%d:events", n.keyPrefix, userID)
}

// PublishUserEvent 向指定用户的通知频道发布一个协作事件
func (n *RedisNotifier) PublishUserEvent(ctx context.Context, userID uint, event dto.CollabEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal collab event for user %d: %w", userID, err)
	}
	channel := n.userEventsChannel(userID)
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: failed to publish collab event to %s: %w", channel, err)
	}
	return nil
}

// SubscribeUserEvents 订阅指定用户的通知频道。
// 返回的取消函数关闭订阅，转发 goroutine 随之退出并关闭事件 channel。
func (n *RedisNotifier) SubscribeUserEvents(ctx context.Context, userID uint) (<-chan dto.CollabEvent, func(), error) {
	channel := n.userEventsChannel(userID)
	pubsub := n.client.Subscribe(ctx, channel)

	// 确认订阅成功，避免静默丢事件
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis: failed to subscribe to %s: %w", channel, err)
	}

	events := make(chan dto.CollabEvent, 16)
	go func() {
		defer close(events)
		logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "channel": channel})
		for msg := range pubsub.Channel() {
			var event dto.CollabEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logCtx.WithError(err).Warn("RedisNotifier: dropping malformed event payload")
				continue
			}
			select {
			case events <- event:
			default:
				// 消费方积压时丢弃，通知属于尽力而为
				logCtx.Warn("RedisNotifier: event channel full, dropping event")
			}
		}
		logCtx.Debug("RedisNotifier: subscription channel closed")
	}()

	cancel := func() {
		if err := pubsub.Close(); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("RedisNotifier: error closing subscription")
		}
	}
	return events, cancel, nil
}
