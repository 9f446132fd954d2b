package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const eventChannel = "onebox:events"

// relayMessage 跨实例转发的事件
type relayMessage struct {
	Account string          `json:"account"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Broadcaster 本地推送目标（websocket hub）
type Broadcaster interface {
	Broadcast(account, eventType string, payload interface{})
}

// Relay 通过 Redis 发布订阅把推送事件转发给所有实例
type Relay struct {
	client *Client
	local  Broadcaster
}

// NewRelay 创建事件转发器
func NewRelay(client *Client, local Broadcaster) *Relay {
	return &Relay{client: client, local: local}
}

// Broadcast 发布事件，所有实例（包括本实例）通过 Run 收到后推送给本地连接
func (r *Relay) Broadcast(account, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.client.log.Error("failed to encode relay payload", zap.Error(err))
		return
	}
	msg, err := json.Marshal(relayMessage{Account: account, Type: eventType, Payload: data})
	if err != nil {
		r.client.log.Error("failed to encode relay message", zap.Error(err))
		return
	}
	if err := r.client.rdb.Publish(context.Background(), eventChannel, msg).Err(); err != nil {
		r.client.log.Warn("failed to publish event, delivering locally",
			zap.String("account", account),
			zap.Error(err),
		)
		r.local.Broadcast(account, eventType, payload)
	}
}

// Run 订阅事件频道直到 ctx 结束
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.rdb.Subscribe(ctx, eventChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", eventChannel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg relayMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.client.log.Warn("dropping malformed relay message", zap.Error(err))
				continue
			}
			r.local.Broadcast(msg.Account, msg.Type, msg.Payload)
		}
	}
}
