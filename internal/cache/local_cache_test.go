package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalCache_Delete(t *testing.T) {
	c := NewLocalCache(time.Minute)
	defer c.Close()

	assert.True(t, c.SetNX("a", 1, 0))
	assert.False(t, c.SetNX("a", 1, 0))

	c.Delete("a")
	assert.True(t, c.SetNX("a", 1, 0))

	c.Delete("missing")
}

func TestLocalCache_SetNX(t *testing.T) {
	c := NewLocalCache(time.Minute)
	defer c.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	assert.True(t, c.SetNX("slack:1", true, time.Second))
	assert.False(t, c.SetNX("slack:1", true, time.Second))
	assert.True(t, c.SetNX("webhook:1", true, time.Second))

	// 过期后可以再次写入
	now = now.Add(2 * time.Second)
	assert.True(t, c.SetNX("slack:1", true, time.Second))
}

func TestLocalCache_SetNXConcurrent(t *testing.T) {
	c := NewLocalCache(time.Minute)
	defer c.Close()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.SetNX("key", true, 0) {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestLocalCache_PurgeExpired(t *testing.T) {
	c := NewLocalCache(time.Minute)
	defer c.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.SetNX("old", 1, time.Second)
	c.SetNX("fresh", 2, time.Hour)
	now = now.Add(time.Minute)
	c.purgeExpired()

	_, ok := c.data.Load("old")
	assert.False(t, ok)
	_, ok = c.data.Load("fresh")
	assert.True(t, ok)
}
