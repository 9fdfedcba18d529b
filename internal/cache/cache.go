package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL 未在配置中指定时使用的缓存有效期
const DefaultTTL = time.Hour

// entry 单条缓存记录
type entry struct {
	value     any
	expiresAt time.Time
}

// Cache 进程级共享的 TTL 缓存。四个平台适配器共用一个实例，
// 各自通过 Key 的 provider 前缀隔离命名空间。
// 适配器在各自的 goroutine 中读写，因此需要加锁。
// 除 TTL 过期外没有淘汰策略。
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
}

// New 创建缓存实例，defaultTTL 为 Set 使用的默认有效期
func New(defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
	}
}

// Get 读取缓存。过期条目视为不存在并惰性删除。
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// 期间可能已被更新的写覆盖，需再次确认仍是过期条目
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set 以默认 TTL 写入缓存
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL 以指定 TTL 写入缓存，ttl <= 0 时退回默认值
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Len 返回当前条目数（含尚未被惰性清理的过期条目）
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Key 生成 provider 命名空间下的缓存键。topic 统一转小写，
// 保证 "AI" 与 "ai" 命中同一条目。
func Key(provider, topic string) string {
	return provider + "_trends_" + strings.ToLower(topic)
}
