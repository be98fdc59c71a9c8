package parser

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"

	"cv-parser-go/internal/logger"
)

// EinoPDFExtractor 使用 Eino PDF Parser 的备用提取器
// 坐标重排提取整体失败时兜底使用
type EinoPDFExtractor struct {
	parser *pdf.PDFParser
}

// NewEinoPDFExtractor 初始化 Eino PDF 文本提取器
// ToPages 配置为 false，获取整个文档的连续文本
func NewEinoPDFExtractor(ctx context.Context) (*EinoPDFExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Eino PDF解析器失败: %w", err)
	}
	return &EinoPDFExtractor{parser: p}, nil
}

func (e *EinoPDFExtractor) Extract(ctx context.Context, data []byte, uri string) (string, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.parser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]interface{}{
			"extraction_time": time.Now().Format(time.RFC3339),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: eino解析失败 (URI %s): %v", ErrExtractionFailed, uri, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("%w: eino解析无结果 (URI %s)", ErrExtractionFailed, uri)
	}

	var fullContent string
	for i, doc := range docs {
		fullContent += doc.Content
		if i < len(docs)-1 {
			fullContent += "\n\n"
		}
	}

	logger.Debug().
		Str("uri", uri).
		Int("chars", len(fullContent)).
		Dur("elapsed", time.Since(startTime)).
		Msg("eino PDF提取完成")
	return fullContent, nil
}

// PDFExtractor 两级PDF提取链
// 先走坐标重排，整体失败时切换到eino，两者都失败返回说明性文本而不是错误
type PDFExtractor struct {
	structured *StructuredPDFExtractor
	fallback   *EinoPDFExtractor
}

func NewPDFExtractor(ctx context.Context) (*PDFExtractor, error) {
	fallback, err := NewEinoPDFExtractor(ctx)
	if err != nil {
		return nil, err
	}
	return &PDFExtractor{
		structured: NewStructuredPDFExtractor(),
		fallback:   fallback,
	}, nil
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte, uri string) (string, error) {
	text, err := e.structured.Extract(ctx, data, uri)
	if err == nil {
		return text, nil
	}
	logger.Warn().Str("uri", uri).Err(err).Msg("坐标重排提取失败，切换到eino")

	text, ferr := e.fallback.Extract(ctx, data, uri)
	if ferr == nil {
		return text, nil
	}
	logger.Error().Str("uri", uri).Err(ferr).Msg("备用PDF提取也失败")

	// 文档无法解析时返回说明性文本，让下游仍能给出结构化回应
	return fmt.Sprintf("[PDF document could not be parsed: %s]", uri), nil
}
