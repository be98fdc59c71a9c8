package parser

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"cv-parser-go/internal/types"
)

// ContentHash 计算文件内容的SHA-256哈希，作为缓存键
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// cacheEntry 缓存条目，expiresAt之后视为失效
type cacheEntry struct {
	key       string
	result    types.ExtractionResult
	expiresAt time.Time
}

// ExtractionCache 基于内容哈希的LRU缓存，条目带TTL
// 图片结果入缓存前会剥离RawData，避免大块字节常驻内存
type ExtractionCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	ll       *list.List
	items    map[string]*list.Element

	hits   atomic.Int64
	misses atomic.Int64

	now func() time.Time // 便于测试注入
}

// CacheStats 缓存运行指标快照
type CacheStats struct {
	Size     int   `json:"size"`
	Capacity int   `json:"capacity"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
}

// NewExtractionCache 创建提取结果缓存
func NewExtractionCache(capacity int, ttl time.Duration) *ExtractionCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &ExtractionCache{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Lookup 按内容哈希查找缓存
// 过期的条目在查找时惰性剔除，并计入未命中
func (c *ExtractionCache) Lookup(key string) (types.ExtractionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return types.ExtractionResult{}, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.ll.Remove(elem)
		delete(c.items, key)
		c.misses.Add(1)
		return types.ExtractionResult{}, false
	}

	c.ll.MoveToFront(elem)
	c.hits.Add(1)
	return entry.result, true
}

// Store 写入缓存，超出容量时淘汰最久未使用的条目
func (c *ExtractionCache) Store(key string, result types.ExtractionResult) {
	// 图片的原始字节不进缓存
	if result.IsImage {
		result.RawData = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.result = result
		entry.expiresAt = c.now().Add(c.ttl)
		c.ll.MoveToFront(elem)
		return
	}

	elem := c.ll.PushFront(&cacheEntry{
		key:       key,
		result:    result,
		expiresAt: c.now().Add(c.ttl),
	})
	c.items[key] = elem

	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

// Stats 返回当前缓存指标
func (c *ExtractionCache) Stats() CacheStats {
	c.mu.Lock()
	size := c.ll.Len()
	c.mu.Unlock()

	return CacheStats{
		Size:     size,
		Capacity: c.capacity,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
	}
}
