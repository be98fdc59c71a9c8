package constants

import "time"

const (
	// DefaultParserVer 文本提取流水线的版本号，持久化到解析结果中便于追溯
	DefaultParserVer = "1.0"

	// MaxInputTextChars 传给LLM的文本最大字符数，超出部分直接截断
	MaxInputTextChars = 5000

	// MinTextLen 提取文本的最小有效长度（字符数）
	MinTextLen = 10
	// MinFreeTextLen 自由文本输入的最小有效长度（字符数）
	MinFreeTextLen = 20

	// DefaultCacheCapacity 提取结果缓存的默认条目上限
	DefaultCacheCapacity = 1000
	// DefaultCacheTTL 提取结果缓存的默认过期时间
	DefaultCacheTTL = time.Hour
)

// 解析任务状态，写入 parsed_cvs.status 字段
const (
	JobStatusProcessing = "processing"
	JobStatusSuccess    = "success"
	JobStatusFailed     = "failed"
)

// 解析模式
const (
	ParseModeBasic    = "basic"
	ParseModeAdvanced = "advanced"
)
