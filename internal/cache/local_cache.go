package cache

import (
	"sync"
	"time"
)

// LocalCache 本地内存缓存
//
// 使用 sync.Map 实现无锁读取，条目按 TTL 过期，后台定期清理。
// 单实例部署时用作通知去重表。
type LocalCache struct {
	data sync.Map
	ttl  time.Duration
	stop chan struct{}
	once sync.Once
	now  func() time.Time
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewLocalCache 创建本地缓存，ttl 为默认过期时间
func NewLocalCache(ttl time.Duration) *LocalCache {
	cache := &LocalCache{
		ttl:  ttl,
		stop: make(chan struct{}),
		now:  time.Now,
	}

	go cache.cleanupLoop(time.Minute)

	return cache
}

// SetNX 仅在键不存在（或已过期）时写入，返回是否写入成功。ttl 为 0 时使用默认过期时间
func (c *LocalCache) SetNX(key string, value interface{}, ttl time.Duration) bool {
	entry := c.newEntry(value, ttl)
	for {
		existing, loaded := c.data.LoadOrStore(key, entry)
		if !loaded {
			return true
		}
		if !c.now().After(existing.(*cacheEntry).expiresAt) {
			return false
		}
		// 旧条目已过期，替换失败说明被并发修改，重试
		if c.data.CompareAndSwap(key, existing, entry) {
			return true
		}
	}
}

// Delete 删除缓存值
func (c *LocalCache) Delete(key string) {
	c.data.Delete(key)
}

// Close 停止后台清理
func (c *LocalCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *LocalCache) newEntry(value interface{}, ttl time.Duration) *cacheEntry {
	if ttl == 0 {
		ttl = c.ttl
	}
	return &cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
}

// cleanupLoop 定期清理过期条目
func (c *LocalCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *LocalCache) purgeExpired() {
	now := c.now()
	c.data.Range(func(key, value interface{}) bool {
		if now.After(value.(*cacheEntry).expiresAt) {
			c.data.CompareAndDelete(key, value)
		}
		return true
	})
}
