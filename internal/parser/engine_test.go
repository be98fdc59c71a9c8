package parser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), EngineConfig{
		MaxFileSize:   1 << 20,
		CacheCapacity: 10,
		CacheTTL:      time.Hour,
	})
	require.NoError(t, err)
	return engine
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"剔除残留标签", "hello <b>world</b>", "hello world"},
		{"压缩连续空行", "a\n\n\n\n\nb", "a\n\nb"},
		{"压缩连续引号", `he said ""\"hello`, `he said "\"hello`},
		{"去掉首尾空白", "  text  \n", "text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CleanText(tc.input))
		})
	}
}

func TestEngineValidate(t *testing.T) {
	engine := newTestEngine(t)

	// 正常文本
	mime, err := engine.Validate([]byte("Alice Johnson, Software Engineer with ten years of experience"), "cv.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mime)

	// 超过大小限制
	huge := make([]byte, 2<<20)
	_, err = engine.Validate(huge, "cv.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestEngineExtractPlainText(t *testing.T) {
	engine := newTestEngine(t)

	content := "Alice Johnson\nSoftware Engineer\n10 years of experience"
	result, err := engine.ExtractFromBytes(context.Background(), []byte(content), "cv.txt")
	require.NoError(t, err)

	assert.Equal(t, "text/plain", result.MIMEType)
	assert.False(t, result.IsImage)
	assert.Contains(t, result.Text, "Alice Johnson")
	assert.Equal(t, len(content), result.ByteSize)
}

func TestEngineExtractCacheHit(t *testing.T) {
	engine := newTestEngine(t)

	content := []byte("Bob Smith\nData Scientist\nPython, SQL, machine learning")
	_, err := engine.ExtractFromBytes(context.Background(), content, "first.txt")
	require.NoError(t, err)

	// 同样内容不同文件名，应命中缓存
	result, err := engine.ExtractFromBytes(context.Background(), content, "second.txt")
	require.NoError(t, err)
	assert.Contains(t, result.Text, "Bob Smith")

	stats := engine.CacheStats()
	assert.Equal(t, int64(1), stats.Hits, "第二次提取应命中缓存")
	assert.Equal(t, int64(1), stats.Misses)
}

func TestEngineExtractImagePassthrough(t *testing.T) {
	engine := newTestEngine(t)

	pngData := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)
	result, err := engine.ExtractFromBytes(context.Background(), pngData, "photo.png")
	require.NoError(t, err)

	assert.True(t, result.IsImage)
	assert.Equal(t, "image/png", result.MIMEType)
	assert.Equal(t, pngData, result.RawData, "图片应透传原始字节")
	assert.Empty(t, result.Text)

	// 缓存命中后RawData应从当前请求补回
	result2, err := engine.ExtractFromBytes(context.Background(), pngData, "photo.png")
	require.NoError(t, err)
	assert.Equal(t, pngData, result2.RawData)
}

func TestEngineExtractUnsupported(t *testing.T) {
	engine := newTestEngine(t)

	// MP3魔数，不在支持集合内
	mp3Data := append([]byte("ID3"), make([]byte, 32)...)
	_, err := engine.ExtractFromBytes(context.Background(), mp3Data, "song.mp3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestEngineExtractHTML(t *testing.T) {
	engine := newTestEngine(t)

	html := `<html><body><h1>Carol White</h1><p>Product Manager</p></body></html>`
	result, err := engine.ExtractFromBytes(context.Background(), []byte(html), "cv.html")
	require.NoError(t, err)

	assert.Contains(t, result.Text, "Carol White")
	assert.Contains(t, result.Text, "Product Manager")
	assert.False(t, strings.Contains(result.Text, "<h1>"), "标签应被剔除")
}
