package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aitor-glitch-blde/app-partituras/internal/dto"
	"github.com/aitor-glitch-blde/app-partituras/internal/repository/mocks"
)

// receiveOrTimeout 从客户端的 send 通道读取一条消息
func receiveOrTimeout(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case payload := <-client.send:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("消息未在超时前到达客户端")
		return nil
	}
}

func TestHub_RegisterClient_ForwardsSubscribedEvents(t *testing.T) {
	// Arrange
	notifier := new(mocks.Notifier)
	events := make(chan dto.CollabEvent, 1)
	cancelled := false
	notifier.On("SubscribeUserEvents", mock.Anything, uint(7)).
		Return((<-chan dto.CollabEvent)(events), func() { cancelled = true }, nil).Once()

	h := NewHub(notifier)
	client := NewClient(h, nil, 7)

	// Act: 注册后向订阅通道推送一个事件
	h.registerClient(client)
	events <- dto.CollabEvent{Type: "invited", ScoreID: 10, CollabID: 55}

	// Assert
	payload := receiveOrTimeout(t, client)
	var event dto.CollabEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "invited", event.Type)
	assert.Equal(t, uint(10), event.ScoreID)

	// 最后一个连接断开时取消订阅
	h.unregisterClient(client)
	assert.True(t, cancelled, "最后一个客户端注销后应取消订阅")
	notifier.AssertExpectations(t)
}

func TestHub_RegisterClient_SubscriptionFailureNotifiesClient(t *testing.T) {
	// Arrange: 订阅失败时客户端应收到错误消息而不是静默无通知
	notifier := new(mocks.Notifier)
	notifier.On("SubscribeUserEvents", mock.Anything, uint(7)).
		Return(nil, nil, assert.AnError).Once()

	h := NewHub(notifier)
	client := NewClient(h, nil, 7)

	// Act
	h.registerClient(client)

	// Assert
	payload := receiveOrTimeout(t, client)
	var errDTO dto.ErrorDTO
	require.NoError(t, json.Unmarshal(payload, &errDTO))
	assert.Equal(t, "error", errDTO.Type)
	assert.NotEmpty(t, errDTO.Message)
	notifier.AssertExpectations(t)
}
