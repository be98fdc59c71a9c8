package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"cv-parser-go/internal/constants"
	"cv-parser-go/internal/logger"
	"cv-parser-go/internal/tracing"
	"cv-parser-go/internal/types"
)

var engineTracer = otel.Tracer("cv-parser-go/parser")

var (
	tagRe          = regexp.MustCompile(`<.*?>`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
	multiQuoteRe   = regexp.MustCompile(`"+`)
)

// CleanText 对提取文本做统一的后处理
// 剔除残留标签，压缩连续空行和连续引号，去掉首尾空白
func CleanText(text string) string {
	text = tagRe.ReplaceAllString(text, "")
	text = multiNewlineRe.ReplaceAllString(text, "\n\n")
	text = multiQuoteRe.ReplaceAllString(text, `"`)
	return strings.TrimSpace(text)
}

// TextExtractor 单一格式的文本提取策略
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, uri string) (string, error)
}

// CacheObserver 缓存命中/未命中的外部观察者，用于跨进程指标上报
type CacheObserver interface {
	OnCacheHit(ctx context.Context)
	OnCacheMiss(ctx context.Context)
}

// EngineConfig 提取引擎配置
type EngineConfig struct {
	MaxFileSize    int64         // 单文件字节数上限
	CacheCapacity  int           // 缓存条目上限
	CacheTTL       time.Duration // 缓存过期时间
	MaxConcurrency int           // 并发提取上限，0表示不限制
}

// Engine 多格式文本提取引擎
// 按MIME类型分发到具体提取器，结果按内容哈希缓存
type Engine struct {
	handlers    map[string]TextExtractor
	maxFileSize int64
	cache       *ExtractionCache
	sem         chan struct{}
	observer    CacheObserver
}

// SetCacheObserver 设置缓存观察者，传nil则关闭上报
func (e *Engine) SetCacheObserver(obs CacheObserver) {
	e.observer = obs
}

// NewEngine 构建提取引擎并注册所有格式的提取器
func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 << 20
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = constants.DefaultCacheTTL
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = constants.DefaultCacheCapacity
	}

	pdfExtractor, err := NewPDFExtractor(ctx)
	if err != nil {
		return nil, fmt.Errorf("初始化PDF提取器失败: %w", err)
	}

	plain := NewPlainTextExtractor()
	html := NewHTMLExtractor()
	word := NewWordExtractor()
	rtf := NewRTFExtractor()
	xmlEx := NewXMLExtractor()

	handlers := map[string]TextExtractor{
		"application/pdf":    pdfExtractor,
		"application/msword": word,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": word,
		"application/rtf":           rtf,
		"text/rtf":                  rtf,
		"text/plain":                plain,
		"text/html":                 html,
		"application/xhtml+xml":     html,
		"text/csv":                  NewCSVExtractor(','),
		"text/tab-separated-values": NewCSVExtractor('\t'),
		"text/xml":                  xmlEx,
		"application/xml":           xmlEx,
	}

	engine := &Engine{
		handlers:    handlers,
		maxFileSize: cfg.MaxFileSize,
		cache:       NewExtractionCache(cfg.CacheCapacity, cfg.CacheTTL),
	}
	if cfg.MaxConcurrency > 0 {
		engine.sem = make(chan struct{}, cfg.MaxConcurrency)
	}
	return engine, nil
}

// Validate 做同步阶段的校验: 大小限制和格式识别
// 返回识别出的MIME类型
func (e *Engine) Validate(data []byte, filename string) (string, error) {
	if int64(len(data)) > e.maxFileSize {
		return "", fmt.Errorf("%w: %d 字节，上限 %d", ErrFileTooLarge, len(data), e.maxFileSize)
	}
	return DetectMIMEType(data, filename)
}

// ExtractFromBytes 从文件字节中提取文本
// 命中缓存直接返回；图片不做文本提取，原始字节透传给多模态链路
func (e *Engine) ExtractFromBytes(ctx context.Context, data []byte, filename string) (types.ExtractionResult, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.ExtractFromBytes")
	defer span.End()
	span.SetAttributes(
		attribute.String("file.name", tracing.SafeAttributeValue("file.name", filename, tracing.DefaultMaxLength)),
		attribute.Int("file.size", len(data)),
	)

	mime, err := e.Validate(data, filename)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return types.ExtractionResult{}, err
	}
	span.SetAttributes(attribute.String("file.mime_type", mime))

	key := ContentHash(data)
	if cached, ok := e.cache.Lookup(key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		if e.observer != nil {
			e.observer.OnCacheHit(ctx)
		}
		// 图片字节不进缓存，命中后从当前请求补回
		if cached.IsImage {
			cached.RawData = data
		}
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))
	if e.observer != nil {
		e.observer.OnCacheMiss(ctx)
	}

	if IsImageMIME(mime) {
		result := types.ExtractionResult{
			MIMEType: mime,
			IsImage:  true,
			ByteSize: len(data),
			RawData:  data,
		}
		e.cache.Store(key, result)
		return result, nil
	}

	handler, ok := e.handlers[mime]
	if !ok {
		err := fmt.Errorf("%w: %s 没有注册提取器", ErrUnsupportedFileType, mime)
		tracing.RecordError(span, err, tracing.ErrorTypeParser)
		return types.ExtractionResult{}, err
	}

	if e.sem != nil {
		select {
		case e.sem <- struct{}{}:
			defer func() { <-e.sem }()
		case <-ctx.Done():
			return types.ExtractionResult{}, ctx.Err()
		}
	}

	startTime := time.Now()
	text, err := handler.Extract(ctx, data, filename)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeParser)
		return types.ExtractionResult{}, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, mime, err)
	}

	result := types.ExtractionResult{
		Text:     CleanText(text),
		MIMEType: mime,
		ByteSize: len(data),
	}
	e.cache.Store(key, result)

	logger.Debug().
		Str("file", filename).
		Str("mime", mime).
		Int("chars", len(result.Text)).
		Dur("elapsed", time.Since(startTime)).
		Msg("文本提取完成")
	return result, nil
}

// CacheStats 返回提取缓存指标
func (e *Engine) CacheStats() CacheStats {
	return e.cache.Stats()
}

// MaxFileSize 返回配置的文件大小上限
func (e *Engine) MaxFileSize() int64 {
	return e.maxFileSize
}
