package notify

import (
	"context"
	"time"

	"onebox/backend/internal/cache"
)

// MemoryDeduper 单实例去重，基于本地缓存
type MemoryDeduper struct {
	cache *cache.LocalCache
	ttl   time.Duration
}

// NewMemoryDeduper 创建本地去重器
func NewMemoryDeduper(c *cache.LocalCache, ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{cache: c, ttl: ttl}
}

// AcquireOnce 实现 Deduper
func (d *MemoryDeduper) AcquireOnce(_ context.Context, channel, emailID string) bool {
	return d.cache.SetNX(dedupeKey(channel, emailID), struct{}{}, d.ttl)
}

// Release 实现 Deduper
func (d *MemoryDeduper) Release(_ context.Context, channel, emailID string) {
	d.cache.Delete(dedupeKey(channel, emailID))
}

func dedupeKey(channel, emailID string) string {
	return channel + ":" + emailID
}
