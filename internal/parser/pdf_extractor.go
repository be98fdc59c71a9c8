package parser

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"cv-parser-go/internal/logger"
)

const (
	// rowYTolerance 同一行内文字的Y坐标容差（PDF坐标单位）
	rowYTolerance = 2.0
	// wordGapFactor X方向间距超过字宽的倍数时插入空格
	wordGapFactor = 0.3
)

// StructuredPDFExtractor 基于坐标重排的PDF文本提取器
// PDF内部文字流的顺序和视觉顺序经常不一致，这里按 页码、Y降序、X升序
// 重建阅读顺序。单页失败只损失该页，整体失败由上层切换到备用提取器
type StructuredPDFExtractor struct{}

func NewStructuredPDFExtractor() *StructuredPDFExtractor { return &StructuredPDFExtractor{} }

func (e *StructuredPDFExtractor) Extract(ctx context.Context, data []byte, uri string) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: 打开PDF失败: %v", ErrExtractionFailed, err)
	}

	totalPages := reader.NumPage()
	if totalPages == 0 {
		return "", fmt.Errorf("%w: PDF没有可读页面", ErrExtractionFailed)
	}

	var pages []string
	failedPages := 0
	for i := 1; i <= totalPages; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		pageText, perr := extractPage(reader, i)
		if perr != nil {
			failedPages++
			logger.Warn().Str("uri", uri).Int("page", i).Err(perr).Msg("PDF单页提取失败")
			pages = append(pages, fmt.Sprintf("[extraction failed for page %d]", i))
			continue
		}
		pages = append(pages, pageText)
	}

	if failedPages == totalPages {
		return "", fmt.Errorf("%w: 所有 %d 页均提取失败", ErrExtractionFailed, totalPages)
	}

	return strings.Join(pages, "\n\n"), nil
}

// extractPage 提取单页文本，panic转换为错误
// ledongthuc/pdf 对损坏页面可能panic而不是返回错误
func extractPage(reader *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("页面解析panic: %v", r)
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("页面 %d 为空", pageNum)
	}

	items := page.Content().Text
	if len(items) == 0 {
		return "", nil
	}

	// PDF坐标系原点在左下角，Y越大越靠上
	sorted := make([]pdf.Text, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(a, b int) bool {
		if abs(sorted[a].Y-sorted[b].Y) > rowYTolerance {
			return sorted[a].Y > sorted[b].Y
		}
		return sorted[a].X < sorted[b].X
	})

	var sb strings.Builder
	var prev *pdf.Text
	for idx := range sorted {
		item := &sorted[idx]
		if prev != nil {
			if abs(item.Y-prev.Y) > rowYTolerance {
				sb.WriteByte('\n')
			} else if item.X-(prev.X+prev.W) > prev.FontSize*wordGapFactor {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(item.S)
		prev = item
	}
	return sb.String(), nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
