package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainTextExtractorUTF8(t *testing.T) {
	extractor := NewPlainTextExtractor()
	text, err := extractor.Extract(context.Background(), []byte("张伟\n软件工程师\n5年经验"), "cv.txt")
	require.NoError(t, err)
	assert.Equal(t, "张伟\n软件工程师\n5年经验", text)
}

func TestPlainTextExtractorUTF8BOM(t *testing.T) {
	extractor := NewPlainTextExtractor()
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...)
	text, err := extractor.Extract(context.Background(), data, "cv.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", text, "UTF-8 BOM应被剥离")
}

func TestPlainTextExtractorUTF16LE(t *testing.T) {
	extractor := NewPlainTextExtractor()
	// "Hi" 的 UTF-16LE 编码带BOM
	data := []byte{0xFF, 0xFE, 'H', 0x00, 'i', 0x00}
	text, err := extractor.Extract(context.Background(), data, "cv.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hi", text)
}

func TestPlainTextExtractorLatin1Fallback(t *testing.T) {
	extractor := NewPlainTextExtractor()
	// 0xE9 = é，不是合法UTF-8
	data := []byte{'r', 0xE9, 's', 'u', 'm', 0xE9}
	text, err := extractor.Extract(context.Background(), data, "cv.txt")
	require.NoError(t, err)
	assert.Equal(t, "résumé", text, "非UTF-8内容应按Latin-1解码")
}

func TestCSVExtractor(t *testing.T) {
	extractor := NewCSVExtractor(',')
	data := []byte("name,title\nAlice,Engineer\nBob,Designer\n")
	text, err := extractor.Extract(context.Background(), data, "cv.csv")
	require.NoError(t, err)
	assert.Contains(t, text, "name | title")
	assert.Contains(t, text, "Alice | Engineer")
}

func TestCSVExtractorTab(t *testing.T) {
	extractor := NewCSVExtractor('\t')
	data := []byte("name\ttitle\nAlice\tEngineer\n")
	text, err := extractor.Extract(context.Background(), data, "cv.tsv")
	require.NoError(t, err)
	assert.Contains(t, text, "Alice | Engineer")
}

func TestHTMLExtractor(t *testing.T) {
	extractor := NewHTMLExtractor()
	html := `<html><head><title>CV</title><style>body{color:red}</style>
<script>alert(1)</script></head>
<body><h1>Alice</h1><p>Software&nbsp;Engineer &amp; Architect</p><!-- hидden --></body></html>`
	text, err := extractor.Extract(context.Background(), []byte(html), "cv.html")
	require.NoError(t, err)

	assert.Contains(t, text, "Alice")
	assert.Contains(t, text, "Engineer & Architect", "HTML实体应被还原")
	assert.NotContains(t, text, "alert", "脚本内容应被剔除")
	assert.NotContains(t, text, "color:red", "样式内容应被剔除")
}

func TestXMLExtractor(t *testing.T) {
	extractor := NewXMLExtractor()
	xml := `<?xml version="1.0"?><cv><name>Alice</name><title>Engineer</title></cv>`
	text, err := extractor.Extract(context.Background(), []byte(xml), "cv.xml")
	require.NoError(t, err)
	assert.Contains(t, text, "Alice")
	assert.Contains(t, text, "Engineer")
}
