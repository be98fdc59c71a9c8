package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChatModel 按预置序列返回响应，记录调用次数和收到的消息
type stubChatModel struct {
	responses []*schema.Message
	errs      []error
	calls     int
	lastInput []*schema.Message
}

func (m *stubChatModel) Generate(ctx context.Context, messages []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	idx := m.calls
	m.calls++
	m.lastInput = messages

	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return m.responses[len(m.responses)-1], nil
}

func (m *stubChatModel) Stream(ctx context.Context, messages []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *stubChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func jsonResponse(content string, tokens int) *schema.Message {
	return &schema.Message{
		Role:    "assistant",
		Content: content,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{TotalTokens: tokens},
		},
	}
}

func newTestExtractor(m model.ToolCallingChatModel) *ChatProfileExtractor {
	return NewChatProfileExtractor(m, nil, ExtractorConfig{
		TextModelName: "test-model",
		MaxRetries:    2,
		RetryWait:     time.Millisecond,
		Timeout:       time.Second,
	})
}

func TestParseProfileSuccess(t *testing.T) {
	stub := &stubChatModel{
		responses: []*schema.Message{jsonResponse(`{"profile": {"basics": {"profession": "Engineer"}}, "cv_language": "EN"}`, 321)},
	}
	extractor := newTestExtractor(stub)

	raw, usage, err := extractor.ParseProfile(context.Background(), "Alice, Engineer, 10 years", "advanced")
	require.NoError(t, err)

	assert.JSONEq(t, `{"profile": {"basics": {"profession": "Engineer"}}, "cv_language": "EN"}`, string(raw))
	require.NotNil(t, usage)
	assert.Equal(t, "test-model", usage.Model)
	assert.Equal(t, 321, usage.TokensUsed)

	// 消息结构: system提示词 + 用户文本
	require.Len(t, stub.lastInput, 2)
	assert.Equal(t, schema.RoleType("system"), stub.lastInput[0].Role)
	assert.Contains(t, stub.lastInput[1].Content, "Alice")
}

func TestParseProfileCodeFence(t *testing.T) {
	content := "Here is the result:\n```json\n{\"cv_language\": \"TR\"}\n```\nDone."
	stub := &stubChatModel{responses: []*schema.Message{jsonResponse(content, 10)}}
	extractor := newTestExtractor(stub)

	raw, _, err := extractor.ParseProfile(context.Background(), "text", "basic")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cv_language": "TR"}`, string(raw))
}

func TestParseProfileRetriesOnTimeout(t *testing.T) {
	stub := &stubChatModel{
		errs:      []error{errors.New("request timeout"), nil},
		responses: []*schema.Message{nil, jsonResponse(`{"cv_language": "EN"}`, 5)},
	}
	extractor := newTestExtractor(stub)

	_, _, err := extractor.ParseProfile(context.Background(), "text", "advanced")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls, "超时错误应触发重试")
}

func TestParseProfileRateLimitedNoRetry(t *testing.T) {
	stub := &stubChatModel{
		errs: []error{ErrRateLimited},
	}
	extractor := newTestExtractor(stub)

	_, _, err := extractor.ParseProfile(context.Background(), "text", "advanced")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, stub.calls, "限流错误不应重试")
}

func TestParseProfileNonRetryableError(t *testing.T) {
	stub := &stubChatModel{
		errs: []error{errors.New("invalid api key")},
	}
	extractor := newTestExtractor(stub)

	_, _, err := extractor.ParseProfile(context.Background(), "text", "advanced")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMFailure)
	assert.Equal(t, 1, stub.calls, "不可重试的错误应立即返回")
}

func TestParseProfileInvalidResponse(t *testing.T) {
	stub := &stubChatModel{
		responses: []*schema.Message{jsonResponse("I cannot parse this document.", 5)},
	}
	extractor := newTestExtractor(stub)

	_, _, err := extractor.ParseProfile(context.Background(), "text", "advanced")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseProfileFromImage(t *testing.T) {
	stub := &stubChatModel{
		responses: []*schema.Message{jsonResponse(`{"cv_language": "EN"}`, 99)},
	}
	extractor := newTestExtractor(stub)

	raw, usage, err := extractor.ParseProfileFromImage(context.Background(), []byte{1, 2, 3}, "image/png", "advanced")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cv_language": "EN"}`, string(raw))
	assert.Equal(t, 99, usage.TokensUsed)

	// 用户消息应是多模态: 文本 + base64图片
	require.Len(t, stub.lastInput, 2)
	parts := stub.lastInput[1].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, schema.ChatMessagePartTypeImageURL, parts[1].Type)
	assert.Contains(t, parts[1].ImageURL.URL, "data:image/png;base64,")
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"纯JSON", `{"a": 1}`, `{"a": 1}`},
		{"代码块", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"前后有解释文字", `Sure! {"a": {"b": 2}} Hope this helps.`, `{"a": {"b": 2}}`},
		{"括号不配对", `{"a": 1`, ""},
		{"没有JSON", "plain text", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractJSON(tc.input))
		})
	}
}

func TestGetParsePrompt(t *testing.T) {
	basic := GetParsePrompt("basic")
	advanced := GetParsePrompt("advanced")
	fallback := GetParsePrompt("")

	assert.NotEqual(t, basic, advanced)
	assert.Equal(t, advanced, fallback, "未知模式应落到advanced")
	assert.Contains(t, advanced, "trainings_and_certifications")
}
