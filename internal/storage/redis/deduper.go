package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Deduper 基于 SETNX 的跨实例去重
type Deduper struct {
	client *Client
	ttl    time.Duration
}

// NewDeduper 创建去重器
func NewDeduper(client *Client, ttl time.Duration) *Deduper {
	return &Deduper{client: client, ttl: ttl}
}

// AcquireOnce 首次处理 channel + emailID 时返回 true，重复时返回 false。
// Redis 不可用时放行，宁可重复通知也不丢通知。
func (d *Deduper) AcquireOnce(ctx context.Context, channel, emailID string) bool {
	key := dedupeKey(channel, emailID)

	ok, err := d.client.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.client.log.Warn("redis dedupe check failed, allowing delivery",
			zap.String("channel", channel),
			zap.String("email_id", emailID),
			zap.Error(err),
		)
		return true
	}
	if !ok {
		d.client.log.Debug("skipped duplicated notification",
			zap.String("channel", channel),
			zap.String("email_id", emailID),
		)
	}
	return ok
}

// Release 删除去重标记，投递失败后允许重试
func (d *Deduper) Release(ctx context.Context, channel, emailID string) {
	if err := d.client.rdb.Del(ctx, dedupeKey(channel, emailID)).Err(); err != nil {
		d.client.log.Warn("redis dedupe release failed",
			zap.String("channel", channel),
			zap.String("email_id", emailID),
			zap.Error(err),
		)
	}
}

func dedupeKey(channel, emailID string) string {
	return fmt.Sprintf("onebox:notify:%s:%s", channel, emailID)
}
