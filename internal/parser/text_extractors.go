package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// decodeText 将原始字节解码为字符串
// 依次尝试: UTF-16 BOM、合法UTF-8、Latin-1兜底
func decodeText(data []byte) string {
	if len(data) >= 2 {
		if data[0] == 0xFF && data[1] == 0xFE {
			return decodeUTF16(data[2:], false)
		}
		if data[0] == 0xFE && data[1] == 0xFF {
			return decodeUTF16(data[2:], true)
		}
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return string(data)
	}
	// Latin-1: 每个字节直接映射为同码位的rune
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

func decodeUTF16(data []byte, bigEndian bool) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	u16 := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		if bigEndian {
			u16 = append(u16, uint16(data[i])<<8|uint16(data[i+1]))
		} else {
			u16 = append(u16, uint16(data[i+1])<<8|uint16(data[i]))
		}
	}
	return string(utf16.Decode(u16))
}

// PlainTextExtractor 纯文本提取器，同时负责CSV/TSV的表格展开
type PlainTextExtractor struct{}

func NewPlainTextExtractor() *PlainTextExtractor { return &PlainTextExtractor{} }

func (e *PlainTextExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	return decodeText(data), nil
}

// CSVExtractor 把CSV/TSV行展开为以 " | " 连接的文本行
type CSVExtractor struct {
	Comma rune
}

func NewCSVExtractor(comma rune) *CSVExtractor { return &CSVExtractor{Comma: comma} }

func (e *CSVExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	reader := csv.NewReader(strings.NewReader(decodeText(data)))
	reader.Comma = e.Comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var sb strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// 行级错误时放弃表格语义，按纯文本返回
			return decodeText(data), nil
		}
		sb.WriteString(strings.Join(record, " | "))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style.*?</style>`)
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockTagRe    = regexp.MustCompile(`(?i)</?(p|div|br|li|tr|h[1-6]|section|article|table)[^>]*>`)
	anyTagRe      = regexp.MustCompile(`<[^>]+>`)
)

// HTMLExtractor HTML/XHTML提取器
// 先移除脚本和样式块，块级标签转换行，其余标签直接剔除
type HTMLExtractor struct{}

func NewHTMLExtractor() *HTMLExtractor { return &HTMLExtractor{} }

func (e *HTMLExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	text := decodeText(data)
	text = scriptBlockRe.ReplaceAllString(text, " ")
	text = styleBlockRe.ReplaceAllString(text, " ")
	text = htmlCommentRe.ReplaceAllString(text, " ")
	text = blockTagRe.ReplaceAllString(text, "\n")
	text = anyTagRe.ReplaceAllString(text, " ")
	return html.UnescapeString(text), nil
}

// XMLExtractor 遍历XML节点收集全部文本内容
type XMLExtractor struct{}

func NewXMLExtractor() *XMLExtractor { return &XMLExtractor{} }

func (e *XMLExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false

	var sb strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if sb.Len() > 0 {
				break
			}
			return "", fmt.Errorf("%w: XML解析错误: %v", ErrExtractionFailed, err)
		}
		if cd, ok := tok.(xml.CharData); ok {
			chunk := strings.TrimSpace(string(cd))
			if chunk != "" {
				sb.WriteString(chunk)
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String(), nil
}
