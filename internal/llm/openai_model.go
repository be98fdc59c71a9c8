package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"cv-parser-go/internal/logger"
)

const (
	defaultAPIURL    = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultModelName = "qwen-plus"
)

// OpenAICompatModel 实现 model.ToolCallingChatModel 接口
// 通过 OpenAI 兼容的 chat/completions API 与模型交互
type OpenAICompatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	boundTools  []apiTool
}

// NewOpenAICompatModel 创建一个新的 OpenAICompatModel 实例
func NewOpenAICompatModel(apiKey, modelName, apiURL string, temperature float64, maxTokens int) (*OpenAICompatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultModelName
	}
	url := apiURL
	if strings.TrimSpace(url) == "" {
		url = defaultAPIURL
	}

	logger.Info().Str("api_url", url).Str("model", mn).Msg("初始化 OpenAI 兼容 LLM 客户端")

	return &OpenAICompatModel{
		apiKey:      apiKey,
		modelName:   mn,
		apiURL:      url,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{},
	}, nil
}

// --- OpenAI 兼容的请求/响应结构 ---

type apiFunctionParams struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required,omitempty"`
}

type apiFunction struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  apiFunctionParams `json:"parameters"`
}

type apiTool struct {
	Type     string      `json:"type"`
	Function apiFunction `json:"function"`
}

// apiMessage Content 为字符串或分段数组（多模态）
type apiMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type apiContentPart struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *apiImageURL `json:"image_url,omitempty"`
}

type apiImageURL struct {
	URL string `json:"url"`
}

type apiRequest struct {
	Model          string        `json:"model"`
	Messages       []apiMessage  `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Tools          []apiTool     `json:"tools,omitempty"`
	ResponseFormat *apiRespFmt   `json:"response_format,omitempty"`
}

type apiRespFmt struct {
	Type string `json:"type"`
}

type apiRespMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type apiChoice struct {
	Index        int            `json:"index"`
	Message      apiRespMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiResponse struct {
	Id      string      `json:"id"`
	Object  string      `json:"object"`
	Created int64       `json:"created"`
	Model   string      `json:"model"`
	Choices []apiChoice `json:"choices"`
	Usage   *apiUsage   `json:"usage"`
}

// toAPIMessages 把 eino 消息转换成 OpenAI 兼容格式
// MultiContent 不为空时转为分段数组，支持图片输入
func toAPIMessages(messages []*schema.Message) []apiMessage {
	out := make([]apiMessage, 0, len(messages))
	for _, msg := range messages {
		if len(msg.MultiContent) > 0 {
			parts := make([]apiContentPart, 0, len(msg.MultiContent))
			for _, part := range msg.MultiContent {
				switch part.Type {
				case schema.ChatMessagePartTypeImageURL:
					if part.ImageURL != nil {
						parts = append(parts, apiContentPart{
							Type:     "image_url",
							ImageURL: &apiImageURL{URL: part.ImageURL.URL},
						})
					}
				default:
					parts = append(parts, apiContentPart{Type: "text", Text: part.Text})
				}
			}
			out = append(out, apiMessage{Role: string(msg.Role), Content: parts})
			continue
		}
		out = append(out, apiMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

// Generate 实现 model.ChatModel 接口
func (m *OpenAICompatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	for _, opt := range options {
		_ = opt
	}

	reqPayload := apiRequest{
		Model:          m.modelName,
		Messages:       toAPIMessages(messages),
		Temperature:    m.temperature,
		MaxTokens:      m.maxTokens,
		ResponseFormat: &apiRespFmt{Type: "json_object"},
	}
	if len(m.boundTools) > 0 {
		reqPayload.Tools = m.boundTools
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, string(bodyBytes))
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, string(bodyBytes))
	}

	var resp apiResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项: %s", string(bodyBytes))
	}

	choice := resp.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}

	resultMessage := &schema.Message{
		Role:    schema.RoleType(choice.Message.Role),
		Content: content,
	}
	if resultMessage.Role == "" {
		resultMessage.Role = schema.RoleType("assistant")
	}
	if resp.Usage != nil {
		resultMessage.ResponseMeta = &schema.ResponseMeta{
			Usage: &schema.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}
	}
	return resultMessage, nil
}

// Stream 实现 model.ChatModel 接口 (未实现)
func (m *OpenAICompatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("OpenAICompatModel 的 Stream 方法未实现")
}

// BindTools 实现 model.ChatModel 接口
// 简历解析不绑定工具，这里只保留接口兼容性
func (m *OpenAICompatModel) BindTools(tools []*schema.ToolInfo) error {
	m.boundTools = make([]apiTool, 0, len(tools))
	for _, toolInfo := range tools {
		if toolInfo == nil {
			continue
		}
		m.boundTools = append(m.boundTools, apiTool{
			Type: "function",
			Function: apiFunction{
				Name:        toolInfo.Name,
				Description: toolInfo.Desc,
				Parameters:  apiFunctionParams{Type: "object", Properties: map[string]interface{}{}},
			},
		})
	}
	return nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (m *OpenAICompatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := m.BindTools(tools); err != nil {
		return nil, err
	}
	return m, nil
}

var _ model.ChatModel = (*OpenAICompatModel)(nil)
var _ model.ToolCallingChatModel = (*OpenAICompatModel)(nil)
