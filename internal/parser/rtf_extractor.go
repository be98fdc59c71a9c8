package parser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// skipDestinations RTF中整组跳过的目标控制字（字体表、颜色表、图片等非正文内容）
var skipDestinations = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"info":       true,
	"pict":       true,
	"header":     true,
	"footer":     true,
	"generator":  true,
	"themedata":  true,
}

// RTFExtractor RTF提取器，手写的控制字扫描器
// 处理 \'hh 十六进制转义、\par/\line 换行、\tab 制表符，其余控制字丢弃
type RTFExtractor struct{}

func NewRTFExtractor() *RTFExtractor { return &RTFExtractor{} }

func (e *RTFExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	text := decodeText(data)
	if !strings.HasPrefix(strings.TrimSpace(text), `{\rtf`) {
		return "", fmt.Errorf("%w: 缺少RTF头", ErrExtractionFailed)
	}

	var sb strings.Builder
	runes := []rune(text)
	depth := 0
	skipUntilDepth := -1 // 大于等于0时表示正在跳过一个目标组

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if skipUntilDepth >= 0 && depth < skipUntilDepth {
				skipUntilDepth = -1
			}
		case '\\':
			if i+1 >= len(runes) {
				break
			}
			next := runes[i+1]
			// 转义的字面字符
			if next == '\\' || next == '{' || next == '}' {
				if skipUntilDepth < 0 {
					sb.WriteRune(next)
				}
				i++
				continue
			}
			// \'hh 十六进制字符
			if next == '\'' && i+3 < len(runes) {
				if b, err := strconv.ParseUint(string(runes[i+2:i+4]), 16, 8); err == nil {
					if skipUntilDepth < 0 {
						sb.WriteRune(rune(b))
					}
					i += 3
					continue
				}
			}
			// 控制字: 连续字母 + 可选数字参数 + 可选空格
			j := i + 1
			for j < len(runes) && isASCIILetter(runes[j]) {
				j++
			}
			word := string(runes[i+1 : j])
			k := j
			if k < len(runes) && (runes[k] == '-' || isASCIIDigit(runes[k])) {
				k++
				for k < len(runes) && isASCIIDigit(runes[k]) {
					k++
				}
			}
			param := ""
			if k > j {
				param = string(runes[j:k])
			}
			if k < len(runes) && runes[k] == ' ' {
				k++
			}

			if skipUntilDepth < 0 {
				switch word {
				case "par", "line", "sect", "page":
					sb.WriteByte('\n')
				case "tab", "cell":
					sb.WriteByte('\t')
				case "emdash", "endash":
					sb.WriteByte('-')
				case "u":
					// \uN Unicode转义，参数为有符号码位
					if n, err := strconv.Atoi(param); err == nil {
						if n < 0 {
							n += 65536
						}
						sb.WriteRune(rune(n))
						// 跳过回退字符
						if k < len(runes) && runes[k] != '\\' && runes[k] != '{' && runes[k] != '}' {
							k++
						}
					}
				default:
					if skipDestinations[word] {
						skipUntilDepth = depth
					}
				}
			}
			i = k - 1
		case '\r', '\n':
			// RTF中裸换行不是正文内容
		default:
			if skipUntilDepth < 0 {
				sb.WriteRune(ch)
			}
		}
	}

	return sb.String(), nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
