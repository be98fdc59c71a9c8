package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var objectNameNow = time.Date(2025, 3, 15, 9, 30, 45, 0, time.UTC)

func TestGenerateObjectName(t *testing.T) {
	name := GenerateObjectName("resume.pdf", "0195fa2b-1c3d-7e4f-8a9b-0c1d2e3f4a5b", objectNameNow)
	assert.Equal(t, "resume_20250315_093045_0195fa2b.pdf", name)
}

func TestGenerateObjectNameSanitizes(t *testing.T) {
	name := GenerateObjectName("张伟 简历 (final).docx", "0195fa2b-1c3d-7e4f-8a9b-0c1d2e3f4a5b", objectNameNow)

	assert.True(t, strings.HasSuffix(name, ".docx"))
	assert.NotContains(t, name, " ", "对象名不应包含空格")
	assert.NotContains(t, name, "(", "对象名不应包含括号")
	assert.Contains(t, name, "0195fa2b")
}

func TestGenerateObjectNameNoExtension(t *testing.T) {
	name := GenerateObjectName("resume", "0195fa2b-1c3d-7e4f-8a9b-0c1d2e3f4a5b", objectNameNow)
	assert.Equal(t, "resume_20250315_093045_0195fa2b.bin", name, "无扩展名时应使用bin")
}

func TestGenerateObjectNameHiddenFile(t *testing.T) {
	// 以点开头的文件名不应被当作扩展名分隔
	name := GenerateObjectName(".gitignore", "0195fa2b-1c3d-7e4f-8a9b-0c1d2e3f4a5b", objectNameNow)
	assert.True(t, strings.HasSuffix(name, ".bin"))
}

func TestGenerateObjectNameTruncatesLongBase(t *testing.T) {
	longBase := strings.Repeat("a", 80)
	name := GenerateObjectName(longBase+".pdf", "0195fa2b-1c3d-7e4f-8a9b-0c1d2e3f4a5b", objectNameNow)

	base := name[:strings.Index(name, "_2025")]
	assert.Len(t, base, 50, "基础名应截断到50字符")
}

func TestGenerateObjectNameWithoutJobID(t *testing.T) {
	name := GenerateObjectName("resume.pdf", "", objectNameNow)
	assert.Equal(t, "resume_20250315_093045.pdf", name)
}
