package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"cv-parser-go/internal/logger"
	"cv-parser-go/internal/tracing"
)

var llmTracer = otel.Tracer("cv-parser-go/llm")

// 定义基础错误类型
var (
	ErrRateLimited     = errors.New("LLM限流")
	ErrInvalidResponse = errors.New("LLM返回了无效的响应")
	ErrLLMFailure      = errors.New("LLM调用失败")
)

// Usage 一次解析消耗的元信息
type Usage struct {
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}

// ProfileExtractor 把简历内容转换为结构化JSON
type ProfileExtractor interface {
	// ParseProfile 从文本解析，返回原始JSON
	ParseProfile(ctx context.Context, text string, mode string) (json.RawMessage, *Usage, error)
	// ParseProfileFromImage 从图片字节解析（多模态）
	ParseProfileFromImage(ctx context.Context, data []byte, mimeType string, mode string) (json.RawMessage, *Usage, error)
}

// ChatProfileExtractor 基于eino ChatModel的解析器实现
type ChatProfileExtractor struct {
	textModel   model.ToolCallingChatModel
	visionModel model.ToolCallingChatModel

	textModelName   string
	visionModelName string

	maxRetries int
	retryWait  time.Duration
	timeout    time.Duration
}

// ExtractorConfig ChatProfileExtractor的配置
type ExtractorConfig struct {
	TextModelName   string
	VisionModelName string
	MaxRetries      int
	RetryWait       time.Duration
	Timeout         time.Duration
}

// NewChatProfileExtractor 创建解析器
// visionModel 为 nil 时图片解析复用文本模型
func NewChatProfileExtractor(textModel, visionModel model.ToolCallingChatModel, cfg ExtractorConfig) *ChatProfileExtractor {
	if visionModel == nil {
		visionModel = textModel
	}
	if cfg.VisionModelName == "" {
		cfg.VisionModelName = cfg.TextModelName
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &ChatProfileExtractor{
		textModel:       textModel,
		visionModel:     visionModel,
		textModelName:   cfg.TextModelName,
		visionModelName: cfg.VisionModelName,
		maxRetries:      cfg.MaxRetries,
		retryWait:       cfg.RetryWait,
		timeout:         cfg.Timeout,
	}
}

// ParseProfile 从简历文本解析结构化画像
func (e *ChatProfileExtractor) ParseProfile(ctx context.Context, text string, mode string) (json.RawMessage, *Usage, error) {
	ctx, span := llmTracer.Start(ctx, "ChatProfileExtractor.ParseProfile")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.mode", mode),
		attribute.Int("llm.input_chars", len(text)),
	)

	messages := []*schema.Message{
		{Role: "system", Content: GetParsePrompt(mode)},
		{Role: "user", Content: text},
	}
	raw, usage, err := e.callModel(ctx, e.textModel, e.textModelName, messages)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, nil, err
	}
	if usage != nil {
		span.SetAttributes(attribute.Int("llm.tokens_used", usage.TokensUsed))
	}
	return raw, usage, nil
}

// ParseProfileFromImage 从简历图片解析结构化画像
// 图片以base64 data URL的形式作为多模态消息发送
func (e *ChatProfileExtractor) ParseProfileFromImage(ctx context.Context, data []byte, mimeType string, mode string) (json.RawMessage, *Usage, error) {
	ctx, span := llmTracer.Start(ctx, "ChatProfileExtractor.ParseProfileFromImage")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.mode", mode),
		attribute.String("image.mime_type", mimeType),
		attribute.Int("image.bytes", len(data)),
	)

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	messages := []*schema.Message{
		{Role: "system", Content: GetParsePrompt(mode)},
		{
			Role: "user",
			MultiContent: []schema.ChatMessagePart{
				{
					Type: schema.ChatMessagePartTypeText,
					Text: "Parse this CV image.",
				},
				{
					Type:     schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{URL: dataURL},
				},
			},
		},
	}
	raw, usage, err := e.callModel(ctx, e.visionModel, e.visionModelName, messages)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, nil, err
	}
	if usage != nil {
		span.SetAttributes(attribute.Int("llm.tokens_used", usage.TokensUsed))
	}
	return raw, usage, nil
}

// callModel 带重试地调用模型并提取JSON
func (e *ChatProfileExtractor) callModel(ctx context.Context, chatModel model.ToolCallingChatModel, modelName string, messages []*schema.Message) (json.RawMessage, *Usage, error) {
	var response *schema.Message
	var err error
	retryDelay := e.retryWait

	for retry := 0; retry <= e.maxRetries; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return nil, nil, fmt.Errorf("上下文已取消: %w", ctx.Err())
			case <-time.After(retryDelay):
				retryDelay *= 2
				logger.Warn().Int("retry", retry).Str("model", modelName).Msg("重试LLM调用")
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		response, err = chatModel.Generate(callCtx, messages)
		cancel()

		if err == nil {
			break
		}
		if errors.Is(err, ErrRateLimited) {
			return nil, nil, err
		}
		if !isRetryableError(err) || retry >= e.maxRetries {
			return nil, nil, fmt.Errorf("%w: %v", ErrLLMFailure, err)
		}
	}

	if response == nil || strings.TrimSpace(response.Content) == "" {
		return nil, nil, fmt.Errorf("%w: 内容为空", ErrInvalidResponse)
	}

	jsonStr := extractJSON(response.Content)
	if jsonStr == "" {
		logger.Error().Str("model", modelName).
			Str("response", tracing.TruncateString(response.Content, tracing.DefaultMaxLength)).
			Msg("无法从LLM响应中提取有效的JSON")
		return nil, nil, fmt.Errorf("%w: 响应中没有JSON", ErrInvalidResponse)
	}
	if !json.Valid([]byte(jsonStr)) {
		return nil, nil, fmt.Errorf("%w: JSON语法错误", ErrInvalidResponse)
	}

	usage := &Usage{Model: modelName}
	if response.ResponseMeta != nil && response.ResponseMeta.Usage != nil {
		usage.TokensUsed = response.ResponseMeta.Usage.TotalTokens
	}
	return json.RawMessage(jsonStr), usage, nil
}

// isRetryableError 判断错误是否应该重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host")
}

// extractJSON 从文本中提取JSON
// 优先匹配 ```json 代码块，回退到花括号配对扫描
func extractJSON(text string) string {
	re := regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	matches := re.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
