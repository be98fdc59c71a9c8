package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDocx 在内存中构造一个最小的docx文件
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestWordExtractorDocx(t *testing.T) {
	doc := buildDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Alice Johnson</w:t></w:r></w:p>
    <w:p><w:r><w:t>Senior Backend Engineer</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	extractor := NewWordExtractor()
	text, err := extractor.Extract(context.Background(), doc, "cv.docx")
	require.NoError(t, err)

	assert.Contains(t, text, "Alice Johnson")
	assert.Contains(t, text, "Senior Backend Engineer")
}

func TestWordExtractorDocxTable(t *testing.T) {
	doc := buildDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Company</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Title</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Acme</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Engineer</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`)

	extractor := NewWordExtractor()
	text, err := extractor.Extract(context.Background(), doc, "cv.docx")
	require.NoError(t, err)

	assert.Contains(t, text, "Company")
	assert.Contains(t, text, " | ", "表格单元格之间应以 | 分隔")
	assert.Contains(t, text, "Acme")
}

func TestWordExtractorDocxMissingDocument(t *testing.T) {
	// 合法ZIP但缺少document.xml，应退化到启发式提取
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("other.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("some readable content inside"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	extractor := NewWordExtractor()
	text, err := extractor.Extract(context.Background(), buf.Bytes(), "cv.docx")
	// 启发式扫描可能找到ZIP内的明文片段，也可能找不到任何内容
	if err == nil {
		assert.NotEmpty(t, text)
	} else {
		assert.ErrorIs(t, err, ErrExtractionFailed)
	}
}

func TestExtractHeuristicUTF8(t *testing.T) {
	data := append([]byte{0x00, 0x01, 0x02}, []byte("John Smith, Software Engineer")...)
	data = append(data, 0x00, 0x03)

	text := extractHeuristic(data)
	assert.Contains(t, text, "John Smith, Software Engineer")
}

func TestExtractHeuristicDedup(t *testing.T) {
	data := []byte("repeat fragment\x00repeat fragment\x00unique part")
	text := extractHeuristic(data)

	assert.Equal(t, 1, bytes.Count([]byte(text), []byte("repeat fragment")), "重复片段应保序去重")
	assert.Contains(t, text, "unique part")
}
