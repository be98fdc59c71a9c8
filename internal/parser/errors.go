package parser

import "errors"

// 文本提取阶段的基础错误类型
var (
	ErrUnsupportedFileType = errors.New("不支持的文件类型")
	ErrFileTooLarge        = errors.New("文件大小超出限制")
	ErrExtractionFailed    = errors.New("文本提取失败")
)
