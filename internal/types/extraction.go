package types

// ExtractionResult 文本提取阶段的产物
// 图片类文件不做文本提取，IsImage 为 true 且 RawData 保留原始字节供多模态解析
type ExtractionResult struct {
	Text     string
	MIMEType string
	IsImage  bool
	ByteSize int
	RawData  []byte
}
