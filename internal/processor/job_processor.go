package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cv-parser-go/internal/constants"
	"cv-parser-go/internal/enrich"
	"cv-parser-go/internal/llm"
	"cv-parser-go/internal/logger"
	"cv-parser-go/internal/parser"
	"cv-parser-go/internal/storage"
	"cv-parser-go/internal/storage/models"
	"cv-parser-go/internal/tracing"
	"cv-parser-go/internal/types"
)

var jobTracer = otel.Tracer("cv-parser-go/processor")

// freeTextPreamble 自由文本解析时加在输入前的上下文说明
const freeTextPreamble = "The following is a candidate's self-description. Please extract their CV information from their own words:\n\n"

// JobPayload 一次解析任务的完整输入
// 通过队列分发时序列化为JSON，原始字节从对象存储重新拉取
type JobPayload struct {
	JobID          string `json:"job_id"`
	Mode           string `json:"mode"`
	FileName       string `json:"file_name,omitempty"`
	MIMEType       string `json:"mime_type,omitempty"`
	StoredFilePath string `json:"stored_file_path,omitempty"`
	Text           string `json:"text,omitempty"`

	// 进程内直传的文件字节，不进队列
	Data []byte `json:"-"`
}

// JobProcessor 解析任务的调度与执行核心
// Submit阶段同步校验并写入占位记录，Run阶段在后台完成提取、解析与落库，
// 保证每个任务只会进入一个终态
type JobProcessor struct {
	engine    TextExtractionEngine
	extractor llm.ProfileExtractor
	store     JobStore

	files     FileStore       // 可选
	queue     QueueDispatcher // 可选
	queueName string

	maxInputChars int
	parserVersion string
	now           func() time.Time
}

// NewJobProcessor 创建任务处理器
func NewJobProcessor(engine TextExtractionEngine, extractor llm.ProfileExtractor, store JobStore, opts ...Option) *JobProcessor {
	p := &JobProcessor{
		engine:        engine,
		extractor:     extractor,
		store:         store,
		maxInputChars: constants.MaxInputTextChars,
		parserVersion: constants.DefaultParserVer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// truncateRunes 按字符数截断
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// SubmitText 提交简历文本解析任务
// 文本太短时同步返回错误，不创建任务记录
func (p *JobProcessor) SubmitText(ctx context.Context, jobID, text, mode string) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < constants.MinTextLen {
		return fmt.Errorf("%w: 至少需要 %d 个字符", ErrTextTooShort, constants.MinTextLen)
	}

	record := &models.ParsedCV{
		JobID:     jobID,
		InputText: truncateRunes(text, p.maxInputChars),
		ParseMode: mode,
		Status:    constants.JobStatusProcessing,
	}
	if err := p.store.UpsertPlaceholder(ctx, record); err != nil {
		return fmt.Errorf("创建任务记录失败: %w", err)
	}

	p.dispatch(&JobPayload{JobID: jobID, Mode: mode, Text: text})
	return nil
}

// SubmitFreeText 提交自由文本解析任务
// 输入是候选人的自我描述，解析前加上下文前缀
func (p *JobProcessor) SubmitFreeText(ctx context.Context, jobID, freeText, mode string) error {
	if utf8.RuneCountInString(strings.TrimSpace(freeText)) < constants.MinFreeTextLen {
		return fmt.Errorf("%w: 至少需要 %d 个字符", ErrTextTooShort, constants.MinFreeTextLen)
	}

	record := &models.ParsedCV{
		JobID:     jobID,
		InputText: truncateRunes(freeText, p.maxInputChars),
		ParseMode: mode,
		Status:    constants.JobStatusProcessing,
	}
	if err := p.store.UpsertPlaceholder(ctx, record); err != nil {
		return fmt.Errorf("创建任务记录失败: %w", err)
	}

	p.dispatch(&JobPayload{JobID: jobID, Mode: mode, Text: freeTextPreamble + freeText})
	return nil
}

// SubmitFile 提交文件解析任务
// 大小和格式校验同步完成，归档与提取在后台进行
func (p *JobProcessor) SubmitFile(ctx context.Context, jobID, filename string, data []byte, mode string) error {
	mimeType, err := p.engine.Validate(data, filename)
	if err != nil {
		return err
	}

	record := &models.ParsedCV{
		JobID:        jobID,
		FileName:     filename,
		FileMIMEType: mimeType,
		ParseMode:    mode,
		Status:       constants.JobStatusProcessing,
	}
	if err := p.store.UpsertPlaceholder(ctx, record); err != nil {
		return fmt.Errorf("创建任务记录失败: %w", err)
	}

	payload := &JobPayload{
		JobID:    jobID,
		Mode:     mode,
		FileName: filename,
		MIMEType: mimeType,
		Data:     data,
	}

	// 尽力归档原始文件，失败不影响解析流程
	if p.files != nil {
		objectName := storage.GenerateObjectName(filename, jobID, p.now())
		path, serr := p.files.SaveOriginal(ctx, objectName, data, mimeType)
		if serr != nil {
			logger.Warn().Str("job_id", jobID).Err(serr).Msg("归档原始文件失败")
		} else {
			payload.StoredFilePath = path
			if uerr := p.store.UpdateStoredFilePath(ctx, jobID, path); uerr != nil {
				logger.Warn().Str("job_id", jobID).Err(uerr).Msg("记录归档路径失败")
			}
		}
	}

	p.dispatch(payload)
	return nil
}

// dispatch 把任务交给队列，队列不可用或字节无法重取时回退到进程内执行
func (p *JobProcessor) dispatch(payload *JobPayload) {
	canQueue := p.queue != nil && (payload.Text != "" || payload.StoredFilePath != "")
	if canQueue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := p.queue.PublishJSON(ctx, p.queueName, payload)
		cancel()
		if err == nil {
			return
		}
		logger.Warn().Str("job_id", payload.JobID).Err(err).Msg("发布任务到队列失败，回退到进程内处理")
	}

	go p.Run(context.Background(), payload)
}

// Run 执行一个解析任务直到终态
// 任何panic都会被捕获并把任务置为失败，不会丢失终态
func (p *JobProcessor) Run(ctx context.Context, payload *JobPayload) {
	ctx, span := jobTracer.Start(ctx, "JobProcessor.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", payload.JobID),
		attribute.String("job.mode", payload.Mode),
	)

	start := p.now()
	finalized := false

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("job_id", payload.JobID).Interface("panic", r).Msg("解析任务panic")
			if !finalized {
				p.finalizeFailed(ctx, payload.JobID, fmt.Sprintf("internal error: %v", r), start)
			}
		}
	}()

	result, err := p.process(ctx, payload)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		logger.Error().Str("job_id", payload.JobID).Err(err).Msg("解析任务失败")
		p.finalizeFailed(ctx, payload.JobID, err.Error(), start)
		finalized = true
		return
	}

	result.ProcessingTimeSeconds = p.now().Sub(start).Seconds()
	result.ParserVersion = p.parserVersion
	if err := p.store.FinalizeSuccess(ctx, payload.JobID, result); err != nil {
		logger.Error().Str("job_id", payload.JobID).Err(err).Msg("写入成功终态失败")
		p.finalizeFailed(ctx, payload.JobID, NewPersistError(payload.JobID, err.Error()).Error(), start)
		finalized = true
		return
	}
	finalized = true

	logger.Info().
		Str("job_id", payload.JobID).
		Float64("elapsed_seconds", result.ProcessingTimeSeconds).
		Int("tokens_used", result.TokensUsed).
		Msg("解析任务完成")
}

func (p *JobProcessor) finalizeFailed(ctx context.Context, jobID, msg string, start time.Time) {
	elapsed := p.now().Sub(start).Seconds()
	if err := p.store.FinalizeFailed(ctx, jobID, msg, elapsed); err != nil {
		logger.Error().Str("job_id", jobID).Err(err).Msg("写入失败终态失败")
	}
}

// process 执行提取与LLM解析，返回成功产出
func (p *JobProcessor) process(ctx context.Context, payload *JobPayload) (*models.FinalizeResult, error) {
	var (
		raw   json.RawMessage
		usage *llm.Usage
		err   error
	)

	switch {
	case payload.Text != "":
		input := truncateRunes(payload.Text, p.maxInputChars)
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("cv.text.preview", tracing.SafeCVContent(input)))
		raw, usage, err = p.extractor.ParseProfile(ctx, input, payload.Mode)
	default:
		data := payload.Data
		if data == nil {
			if p.files == nil || payload.StoredFilePath == "" {
				return nil, NewDownloadError(payload.JobID, "既没有内联字节也没有归档路径")
			}
			data, err = p.files.GetOriginal(ctx, payload.StoredFilePath)
			if err != nil {
				return nil, NewDownloadError(payload.JobID, err.Error())
			}
		}

		extraction, xerr := p.engine.ExtractFromBytes(ctx, data, payload.FileName)
		if xerr != nil {
			return nil, NewExtractError(payload.JobID, xerr.Error())
		}

		if extraction.IsImage {
			raw, usage, err = p.extractor.ParseProfileFromImage(ctx, extraction.RawData, extraction.MIMEType, payload.Mode)
		} else {
			text := extraction.Text
			if utf8.RuneCountInString(strings.TrimSpace(text)) < constants.MinTextLen {
				return nil, &JobProcessError{
					JobID:   payload.JobID,
					Stage:   "extract",
					BaseErr: ErrTextTooShort,
					Detail:  fmt.Sprintf("提取到 %d 个字符", utf8.RuneCountInString(text)),
				}
			}
			input := truncateRunes(text, p.maxInputChars)
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.String("cv.text.preview", tracing.SafeCVContent(input)))
			raw, usage, err = p.extractor.ParseProfile(ctx, input, payload.Mode)
		}
	}

	if err != nil {
		switch {
		case errors.Is(err, llm.ErrRateLimited):
			return nil, NewLLMError(payload.JobID, "上游限流: "+err.Error())
		case errors.Is(err, llm.ErrInvalidResponse):
			return nil, NewLLMError(payload.JobID, "无效响应: "+err.Error())
		default:
			return nil, NewLLMError(payload.JobID, err.Error())
		}
	}

	validation, verr := types.ValidateParsedCV(raw)
	if verr != nil {
		return nil, NewLLMError(payload.JobID, verr.Error())
	}
	if len(validation.Warnings) > 0 {
		logger.Warn().Str("job_id", payload.JobID).Strs("warnings", validation.Warnings).Msg("解析结果未通过严格校验")
	}

	if validation.Data != nil && validation.Data.Profile != nil {
		enrich.EnrichProfile(validation.Data.Profile, p.now())
	}

	var stored []byte
	var merr error
	if validation.Valid {
		stored, merr = json.Marshal(validation.Data)
	} else {
		// 保留原始JSON和告警，下游仍可读取宽松解析的数据
		stored, merr = json.Marshal(validation)
	}
	if merr != nil {
		return nil, NewPersistError(payload.JobID, merr.Error())
	}

	result := &models.FinalizeResult{
		ParsedData: stored,
	}
	if validation.Data != nil {
		result.CVLanguage = validation.Data.CVLanguage
	}
	if usage != nil {
		result.LLMModel = usage.Model
		result.TokensUsed = usage.TokensUsed
	}
	return result, nil
}

// GetResult 查询任务的当前状态与结果
func (p *JobProcessor) GetResult(ctx context.Context, jobID string) (*models.ParsedCV, error) {
	return p.store.GetParsedCV(ctx, jobID)
}

// CacheStats 返回提取缓存指标
func (p *JobProcessor) CacheStats() parser.CacheStats {
	return p.engine.CacheStats()
}

// MaxFileSize 返回文件大小上限（字节）
func (p *JobProcessor) MaxFileSize() int64 {
	return p.engine.MaxFileSize()
}

// HandleQueueMessage 处理从队列收到的任务消息
// 返回 true 表示消息可以确认
func (p *JobProcessor) HandleQueueMessage(body []byte) bool {
	var payload JobPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Error().Err(err).Msg("反序列化队列消息失败，丢弃")
		return true
	}
	if payload.JobID == "" {
		logger.Error().Msg("队列消息缺少job_id，丢弃")
		return true
	}

	p.Run(context.Background(), &payload)
	return true
}
