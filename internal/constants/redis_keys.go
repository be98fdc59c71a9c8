package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// FileModulePrefix 文件模块
	FileModulePrefix = "file"
	// CacheModulePrefix 缓存模块
	CacheModulePrefix = "cache"

	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityHits 缓存命中计数实体
	EntityHits = "hits"
	// EntityMisses 缓存未命中计数实体
	EntityMisses = "misses"

	// KeyFileHashSet 原始文件SHA-256集合，用于上传快速去重 (SET)
	// 格式: app:file:dedup_set
	KeyFileHashSet = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyCacheHits 提取缓存命中总数 (STRING计数器)
	KeyCacheHits = AppPrefix + ":" + CacheModulePrefix + ":" + EntityHits
	// KeyCacheMisses 提取缓存未命中总数 (STRING计数器)
	KeyCacheMisses = AppPrefix + ":" + CacheModulePrefix + ":" + EntityMisses
)
