package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofrs/uuid/v5"

	"cv-parser-go/internal/config"
	"cv-parser-go/internal/constants"
	"cv-parser-go/internal/logger"
	"cv-parser-go/internal/parser"
	"cv-parser-go/internal/processor"
	"cv-parser-go/internal/storage"
	"cv-parser-go/internal/storage/models"
)

// ParseHandler CV解析接口的协调层
// 负责参数校验、任务ID生成和重复上传检测，实际处理交给processor
type ParseHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	proc    *processor.JobProcessor
}

// NewParseHandler 创建解析处理器
func NewParseHandler(cfg *config.Config, st *storage.Storage, proc *processor.JobProcessor) *ParseHandler {
	return &ParseHandler{
		cfg:     cfg,
		storage: st,
		proc:    proc,
	}
}

// ParseSubmitResponse 任务提交响应
type ParseSubmitResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// ParseResultResponse 任务结果响应
type ParseResultResponse struct {
	JobID                 string          `json:"job_id"`
	Status                string          `json:"status"`
	ParseMode             string          `json:"parse_mode,omitempty"`
	ParsedData            json.RawMessage `json:"parsed_data,omitempty"`
	CVLanguage            string          `json:"cv_language,omitempty"`
	ErrorMessage          string          `json:"error_message,omitempty"`
	FileName              string          `json:"file_name,omitempty"`
	LLMModel              string          `json:"llm_model,omitempty"`
	TokensUsed            int             `json:"tokens_used,omitempty"`
	ParserVersion         string          `json:"parser_version,omitempty"`
	ProcessingTimeSeconds float64         `json:"processing_time_seconds,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// CacheStatsResponse 缓存指标响应
type CacheStatsResponse struct {
	Local  parser.CacheStats `json:"local"`
	Global *GlobalCounters   `json:"global,omitempty"`
}

// GlobalCounters Redis侧的跨进程累计计数
type GlobalCounters struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// ErrInvalidMode 解析模式不在允许范围内
var ErrInvalidMode = errors.New("无效的解析模式")

// normalizeMode 校验并归一化解析模式，空值落到advanced
func normalizeMode(mode string) (string, error) {
	switch mode {
	case "":
		return constants.ParseModeAdvanced, nil
	case constants.ParseModeBasic, constants.ParseModeAdvanced:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q，只支持 %s 或 %s", ErrInvalidMode, mode, constants.ParseModeBasic, constants.ParseModeAdvanced)
	}
}

// newJobID 生成UUIDv7作为任务ID，时间有序便于排查
func newJobID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	return id.String(), nil
}

// HandleParseText 处理简历文本解析请求
func (h *ParseHandler) HandleParseText(ctx context.Context, text, mode string) (*ParseSubmitResponse, error) {
	normalized, err := normalizeMode(mode)
	if err != nil {
		return nil, err
	}

	jobID, err := newJobID()
	if err != nil {
		return nil, err
	}

	if err := h.proc.SubmitText(ctx, jobID, text, normalized); err != nil {
		return nil, err
	}

	return &ParseSubmitResponse{JobID: jobID, Status: constants.JobStatusProcessing}, nil
}

// HandleParseFreeText 处理自由文本解析请求
func (h *ParseHandler) HandleParseFreeText(ctx context.Context, freeText, mode string) (*ParseSubmitResponse, error) {
	normalized, err := normalizeMode(mode)
	if err != nil {
		return nil, err
	}

	jobID, err := newJobID()
	if err != nil {
		return nil, err
	}

	if err := h.proc.SubmitFreeText(ctx, jobID, freeText, normalized); err != nil {
		return nil, err
	}

	return &ParseSubmitResponse{JobID: jobID, Status: constants.JobStatusProcessing}, nil
}

// HandleParseFile 处理文件上传解析请求
// 重复上传只做标记不做拦截，内容缓存会让重复文件的提取开销接近于零
func (h *ParseHandler) HandleParseFile(ctx context.Context, reader io.Reader, filename, mode string) (*ParseSubmitResponse, error) {
	normalized, err := normalizeMode(mode)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件内容失败: %w", err)
	}

	duplicate := false
	if h.storage != nil && h.storage.Redis != nil {
		hashHex := parser.ContentHash(data)
		exists, derr := h.storage.Redis.CheckAndAddFileHash(ctx, hashHex)
		if derr != nil {
			// 去重只是提示性功能，Redis故障不阻塞提交
			logger.Warn().Err(derr).Str("filename", filename).Msg("查询文件哈希去重集合失败")
		} else if exists {
			duplicate = true
			logger.Info().Str("filename", filename).Str("hash", hashHex[:12]).Msg("检测到重复上传的文件")
		}
	}

	jobID, err := newJobID()
	if err != nil {
		return nil, err
	}

	if err := h.proc.SubmitFile(ctx, jobID, filename, data, normalized); err != nil {
		return nil, err
	}

	return &ParseSubmitResponse{
		JobID:     jobID,
		Status:    constants.JobStatusProcessing,
		Duplicate: duplicate,
	}, nil
}

// HandleGetResult 查询任务状态和解析结果
func (h *ParseHandler) HandleGetResult(ctx context.Context, jobID string) (*ParseResultResponse, error) {
	record, err := h.proc.GetResult(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return buildResultResponse(record), nil
}

func buildResultResponse(record *models.ParsedCV) *ParseResultResponse {
	resp := &ParseResultResponse{
		JobID:                 record.JobID,
		Status:                record.Status,
		ParseMode:             record.ParseMode,
		CVLanguage:            record.CVLanguage,
		ErrorMessage:          record.ErrorMessage,
		FileName:              record.FileName,
		LLMModel:              record.LLMModel,
		TokensUsed:            record.TokensUsed,
		ParserVersion:         record.ParserVersion,
		ProcessingTimeSeconds: record.ProcessingTimeSeconds,
		CreatedAt:             record.CreatedAt,
		UpdatedAt:             record.UpdatedAt,
	}
	if len(record.ParsedData) > 0 {
		resp.ParsedData = json.RawMessage(record.ParsedData)
	}
	return resp
}

// HandleSupportedFormats 返回支持的文件格式列表
func (h *ParseHandler) HandleSupportedFormats() map[string]interface{} {
	return map[string]interface{}{
		"mime_types":        parser.SupportedFormats(),
		"max_file_size":     h.proc.MaxFileSize(),
		"max_file_size_mb":  h.proc.MaxFileSize() / (1 << 20),
		"parse_modes":       []string{constants.ParseModeBasic, constants.ParseModeAdvanced},
		"default_mode":      constants.ParseModeAdvanced,
		"min_text_len":      constants.MinTextLen,
		"min_free_text_len": constants.MinFreeTextLen,
	}
}

// HandleCacheStats 返回本地缓存指标，Redis可用时附带全局计数
func (h *ParseHandler) HandleCacheStats(ctx context.Context) *CacheStatsResponse {
	resp := &CacheStatsResponse{Local: h.proc.CacheStats()}

	if h.storage != nil && h.storage.Redis != nil {
		hits, misses, err := h.storage.Redis.CacheCounters(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("读取全局缓存计数失败")
		} else {
			resp.Global = &GlobalCounters{Hits: hits, Misses: misses}
		}
	}
	return resp
}
