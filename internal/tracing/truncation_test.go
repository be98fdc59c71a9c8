package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		want      string
	}{
		{"短字符串原样返回", "hello", 10, "hello"},
		{"超长保留首尾加省略号", "abcdefghijklmnop", 9, "abc...nop"},
		{"极小上限直接截断", "abcdef", 3, "abc"},
		{"中文按rune截断", strings.Repeat("简", 20), 9, "简简简...简简简"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateString(tt.input, tt.maxLength))
		})
	}
}

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("张"))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "zh********om", MaskPII("zhang@qq.com"))
}

func TestSafeAttributeValue(t *testing.T) {
	// 属性名命中敏感关键字时掩码，否则只做截断
	assert.Equal(t, "13*******99", SafeAttributeValue("user.phone", "13800000099", DefaultMaxLength))
	long := strings.Repeat("x", DefaultMaxLength+50)
	safe := SafeAttributeValue("file.name", long, DefaultMaxLength)
	assert.Contains(t, safe, "...")
	assert.LessOrEqual(t, len([]rune(safe)), DefaultMaxLength)
}

func TestSafeCVContent(t *testing.T) {
	cv := strings.Repeat("工作经历 ", 100)
	preview := SafeCVContent(cv)
	assert.LessOrEqual(t, len([]rune(preview)), MaxCVLength)
	assert.Contains(t, preview, "...")
}
