package processor

import (
	"context"

	"cv-parser-go/internal/parser"
	"cv-parser-go/internal/storage/models"
	"cv-parser-go/internal/types"
)

// TextExtractionEngine 文本提取引擎
type TextExtractionEngine interface {
	// Validate 同步校验文件大小与格式，返回识别出的MIME类型
	Validate(data []byte, filename string) (string, error)
	// ExtractFromBytes 提取文本，图片透传原始字节
	ExtractFromBytes(ctx context.Context, data []byte, filename string) (types.ExtractionResult, error)
	// CacheStats 返回提取缓存指标
	CacheStats() parser.CacheStats
	// MaxFileSize 返回文件大小上限（字节）
	MaxFileSize() int64
}

// JobStore 解析任务的状态存储
type JobStore interface {
	// UpsertPlaceholder 写入 processing 状态的占位记录
	UpsertPlaceholder(ctx context.Context, record *models.ParsedCV) error
	// FinalizeSuccess 更新为成功终态
	FinalizeSuccess(ctx context.Context, jobID string, result *models.FinalizeResult) error
	// FinalizeFailed 更新为失败终态
	FinalizeFailed(ctx context.Context, jobID string, errMsg string, elapsed float64) error
	// UpdateStoredFilePath 记录原始文件的归档位置
	UpdateStoredFilePath(ctx context.Context, jobID string, path string) error
	// GetParsedCV 查询任务记录
	GetParsedCV(ctx context.Context, jobID string) (*models.ParsedCV, error)
}

// FileStore 原始文件的归档存储
type FileStore interface {
	SaveOriginal(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	GetOriginal(ctx context.Context, objectKey string) ([]byte, error)
}

// QueueDispatcher 异步任务分发
type QueueDispatcher interface {
	PublishJSON(ctx context.Context, queueName string, data interface{}) error
}
