package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrTextTooShort   = errors.New("文本太短，无法解析")
	ErrExtractFailed  = errors.New("提取简历文本失败")
	ErrLLMParseFailed = errors.New("LLM解析简历失败")
	ErrPersistFailed  = errors.New("保存解析结果失败")
	ErrDownloadFailed = errors.New("下载原始文件失败")
	ErrDispatchFailed = errors.New("分发解析任务失败")
)

// JobProcessError 包含详细错误信息的自定义错误
type JobProcessError struct {
	JobID   string
	Stage   string
	BaseErr error
	Detail  string
}

func (e *JobProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (阶段:%s, 任务:%s): %s", e.BaseErr, e.Stage, e.JobID, e.Detail)
	}
	return fmt.Sprintf("%s (阶段:%s, 任务:%s)", e.BaseErr, e.Stage, e.JobID)
}

func (e *JobProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *JobProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewExtractError(jobID, detail string) error {
	return &JobProcessError{
		JobID:   jobID,
		Stage:   "extract",
		BaseErr: ErrExtractFailed,
		Detail:  detail,
	}
}

func NewLLMError(jobID, detail string) error {
	return &JobProcessError{
		JobID:   jobID,
		Stage:   "llm",
		BaseErr: ErrLLMParseFailed,
		Detail:  detail,
	}
}

func NewPersistError(jobID, detail string) error {
	return &JobProcessError{
		JobID:   jobID,
		Stage:   "persist",
		BaseErr: ErrPersistFailed,
		Detail:  detail,
	}
}

func NewDownloadError(jobID, detail string) error {
	return &JobProcessError{
		JobID:   jobID,
		Stage:   "download",
		BaseErr: ErrDownloadFailed,
		Detail:  detail,
	}
}
