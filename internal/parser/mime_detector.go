package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// supportedMIMETypes 所有可处理的MIME类型集合
var supportedMIMETypes = map[string]bool{
	"application/pdf": true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/rtf":           true,
	"text/rtf":                  true,
	"text/plain":                true,
	"text/html":                 true,
	"application/xhtml+xml":     true,
	"text/csv":                  true,
	"text/tab-separated-values": true,
	"text/xml":                  true,
	"application/xml":           true,
	"image/jpeg":                true,
	"image/png":                 true,
	"image/webp":                true,
	"image/gif":                 true,
}

// extensionMIMEMap 扩展名到MIME类型的回退映射
// 内容嗅探结果不在支持集合内时按扩展名判断
var extensionMIMEMap = map[string]string{
	".pdf":   "application/pdf",
	".doc":   "application/msword",
	".docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".rtf":   "application/rtf",
	".txt":   "text/plain",
	".html":  "text/html",
	".htm":   "text/html",
	".xhtml": "application/xhtml+xml",
	".csv":   "text/csv",
	".tsv":   "text/tab-separated-values",
	".xml":   "application/xml",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".png":   "image/png",
	".webp":  "image/webp",
	".gif":   "image/gif",
}

// NormalizeMIME 去掉MIME类型中的参数部分并转小写
// 例如 "text/html; charset=utf-8" -> "text/html"
func NormalizeMIME(mime string) string {
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = mime[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// DetectMIMEType 判断文件的MIME类型
// 优先对文件内容做嗅探，嗅探结果不在支持集合内时回退到扩展名映射
// 两者都无法识别时返回 ErrUnsupportedFileType
func DetectMIMEType(data []byte, filename string) (string, error) {
	detected := NormalizeMIME(mimetype.Detect(data).String())
	if supportedMIMETypes[detected] {
		return detected, nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if mime, ok := extensionMIMEMap[ext]; ok {
		return mime, nil
	}

	return "", fmt.Errorf("%w: 文件 %q 识别为 %s", ErrUnsupportedFileType, filename, detected)
}

// IsImageMIME 判断MIME类型是否为图片
func IsImageMIME(mime string) bool {
	return strings.HasPrefix(NormalizeMIME(mime), "image/")
}

// IsSupportedMIME 判断MIME类型是否在支持集合内
func IsSupportedMIME(mime string) bool {
	return supportedMIMETypes[NormalizeMIME(mime)]
}

// SupportedFormats 返回排序后的全部支持MIME类型，用于对外展示
func SupportedFormats() []string {
	formats := make([]string, 0, len(supportedMIMETypes))
	for mime := range supportedMIMETypes {
		formats = append(formats, mime)
	}
	sort.Strings(formats)
	return formats
}
