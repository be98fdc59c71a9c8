package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMIMETypeByContent(t *testing.T) {
	// PDF魔数
	pdfData := []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n")
	mime, err := DetectMIMEType(pdfData, "resume.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)

	// PNG魔数
	pngData := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	mime, err = DetectMIMEType(pngData, "photo.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
}

func TestDetectMIMETypeExtensionFallback(t *testing.T) {
	// OLE容器嗅探结果不在支持集合内，回退到.doc扩展名
	oleData := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 512)...)
	mime, err := DetectMIMEType(oleData, "resume.doc")
	require.NoError(t, err)
	assert.Equal(t, "application/msword", mime)
}

func TestDetectMIMETypeUnsupported(t *testing.T) {
	// ZIP容器但不是docx
	zipData := []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x00, 0x00}
	_, err := DetectMIMEType(zipData, "archive.zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestNormalizeMIME(t *testing.T) {
	assert.Equal(t, "text/html", NormalizeMIME("text/html; charset=utf-8"))
	assert.Equal(t, "application/pdf", NormalizeMIME("Application/PDF"))
	assert.Equal(t, "text/plain", NormalizeMIME(" text/plain "))
}

func TestIsImageMIME(t *testing.T) {
	assert.True(t, IsImageMIME("image/png"))
	assert.True(t, IsImageMIME("image/jpeg"))
	assert.False(t, IsImageMIME("application/pdf"))
	assert.False(t, IsImageMIME("text/plain"))
}

func TestSupportedFormatsSorted(t *testing.T) {
	formats := SupportedFormats()
	require.NotEmpty(t, formats)
	assert.Contains(t, formats, "application/pdf")
	assert.Contains(t, formats, "text/plain")
	assert.Contains(t, formats, "image/webp")
	// 结果应有序且稳定
	for i := 1; i < len(formats); i++ {
		assert.Less(t, formats[i-1], formats[i], "格式列表应按字典序排列")
	}
}
