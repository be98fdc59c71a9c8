package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/richardlehane/mscfb"

	"cv-parser-go/internal/logger"
)

const (
	// maxHeuristicFragments 启发式提取保留的最大文本片段数
	maxHeuristicFragments = 2000
	// minFragmentRunes 启发式提取片段的最小长度
	minFragmentRunes = 4
)

// WordExtractor Word文档提取器，按格式分层
// docx 走ZIP+XML解析，旧版 .doc 走OLE复合文档的WordDocument流，
// 两者失败后退化到字节级启发式扫描
type WordExtractor struct{}

func NewWordExtractor() *WordExtractor { return &WordExtractor{} }

func (e *WordExtractor) Extract(_ context.Context, data []byte, uri string) (string, error) {
	// docx是ZIP容器，以PK开头
	if len(data) >= 2 && data[0] == 'P' && data[1] == 'K' {
		if text, err := extractDocx(data); err == nil {
			return text, nil
		} else {
			logger.Warn().Str("uri", uri).Err(err).Msg("docx解析失败，尝试启发式提取")
		}
	}

	// OLE复合文档以 D0 CF 11 E0 开头
	if len(data) >= 4 && data[0] == 0xD0 && data[1] == 0xCF && data[2] == 0x11 && data[3] == 0xE0 {
		if text, err := extractLegacyDoc(data); err == nil {
			return text, nil
		} else {
			logger.Warn().Str("uri", uri).Err(err).Msg("OLE文档解析失败，尝试启发式提取")
		}
	}

	text := extractHeuristic(data)
	if text == "" {
		return "", fmt.Errorf("%w: Word文档中没有可识别的文本", ErrExtractionFailed)
	}
	return text, nil
}

// extractDocx 解压docx并遍历word/document.xml的XML节点
// 表格单元格之间以 " | " 连接，便于LLM识别表格语义
func extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("打开docx容器失败: %w", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return "", fmt.Errorf("打开document.xml失败: %w", err)
			}
			docXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", fmt.Errorf("读取document.xml失败: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("docx中缺少word/document.xml")
	}

	decoder := xml.NewDecoder(bytes.NewReader(docXML))
	var sb strings.Builder
	inText := false
	tableDepth := 0

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if sb.Len() > 0 {
				break
			}
			return "", fmt.Errorf("解析document.xml失败: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tbl":
				tableDepth++
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "tbl":
				tableDepth--
				sb.WriteByte('\n')
			case "tc":
				if tableDepth > 0 {
					sb.WriteString(" | ")
				}
			case "tr":
				if tableDepth > 0 {
					sb.WriteByte('\n')
				}
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("document.xml中没有文本内容")
	}
	return text, nil
}

// extractLegacyDoc 从OLE复合文档定位WordDocument流并做启发式解码
func extractLegacyDoc(data []byte) (string, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("打开OLE容器失败: %w", err)
	}

	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name != "WordDocument" {
			continue
		}
		stream := make([]byte, entry.Size)
		n, rerr := doc.Read(stream)
		if rerr != nil && rerr != io.EOF {
			return "", fmt.Errorf("读取WordDocument流失败: %w", rerr)
		}
		text := extractHeuristic(stream[:n])
		if text == "" {
			return "", fmt.Errorf("WordDocument流中没有可识别的文本")
		}
		return text, nil
	}
	return "", fmt.Errorf("OLE容器中缺少WordDocument流")
}

var printableRunRe = regexp.MustCompile(`[\p{L}\p{N}\p{P} \t]{4,}`)

// extractHeuristic 字节级启发式提取
// 依次按UTF-8、UTF-16LE、Latin-1解码，抽取可打印字符连续段并保序去重
func extractHeuristic(data []byte) string {
	var candidates []string
	if utf8.Valid(data) {
		candidates = append(candidates, string(data))
	}
	candidates = append(candidates, decodeUTF16(data, false))
	if !utf8.Valid(data) {
		candidates = append(candidates, decodeText(data))
	}

	seen := make(map[string]bool)
	var fragments []string
	for _, candidate := range candidates {
		for _, frag := range printableRunRe.FindAllString(candidate, -1) {
			frag = strings.TrimSpace(frag)
			if utf8.RuneCountInString(frag) < minFragmentRunes || seen[frag] {
				continue
			}
			seen[frag] = true
			fragments = append(fragments, frag)
			if len(fragments) >= maxHeuristicFragments {
				return strings.Join(fragments, "\n")
			}
		}
	}
	return strings.Join(fragments, "\n")
}
