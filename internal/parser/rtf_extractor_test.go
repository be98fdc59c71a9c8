package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRTFExtractorBasic(t *testing.T) {
	extractor := NewRTFExtractor()
	rtf := `{\rtf1\ansi\deff0 {\fonttbl{\f0 Arial;}}
\f0\fs24 Alice Johnson\par
Software Engineer\par
5 years of experience}`
	text, err := extractor.Extract(context.Background(), []byte(rtf), "cv.rtf")
	require.NoError(t, err)

	assert.Contains(t, text, "Alice Johnson")
	assert.Contains(t, text, "Software Engineer")
	assert.NotContains(t, text, "Arial", "字体表内容不应出现在正文中")
	assert.NotContains(t, text, "rtf1", "控制字不应出现在正文中")
}

func TestRTFExtractorHexEscape(t *testing.T) {
	extractor := NewRTFExtractor()
	// \'e9 = é (Latin-1)
	rtf := `{\rtf1\ansi r\'e9sum\'e9}`
	text, err := extractor.Extract(context.Background(), []byte(rtf), "cv.rtf")
	require.NoError(t, err)
	assert.Contains(t, text, "résumé")
}

func TestRTFExtractorUnicodeEscape(t *testing.T) {
	extractor := NewRTFExtractor()
	// \u24352? = 张 (带回退字符)
	rtf := `{\rtf1\ansi \u24352? \u20255?}`
	text, err := extractor.Extract(context.Background(), []byte(rtf), "cv.rtf")
	require.NoError(t, err)
	assert.Contains(t, text, "张")
	assert.Contains(t, text, "伟")
	assert.NotContains(t, text, "?", "Unicode回退字符应被跳过")
}

func TestRTFExtractorEscapedLiterals(t *testing.T) {
	extractor := NewRTFExtractor()
	rtf := `{\rtf1 a\{b\}c\\d}`
	text, err := extractor.Extract(context.Background(), []byte(rtf), "cv.rtf")
	require.NoError(t, err)
	assert.Contains(t, text, "a{b}c\\d")
}

func TestRTFExtractorRejectsNonRTF(t *testing.T) {
	extractor := NewRTFExtractor()
	_, err := extractor.Extract(context.Background(), []byte("plain text without header"), "cv.rtf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}
