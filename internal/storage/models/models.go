// Package models 定义持久化到MySQL的数据模型
package models

import (
	"time"

	"gorm.io/datatypes"
)

// ParsedCV 一次简历解析任务的完整记录
// 任务创建时写入 processing 状态的占位记录，
// 后台流程结束后原地更新为 success 或 failed
type ParsedCV struct {
	JobID                 string         `gorm:"column:job_id;type:char(36);primaryKey" json:"job_id"`
	InputText             string         `gorm:"column:input_text;type:text" json:"input_text,omitempty"`
	FileName              string         `gorm:"column:file_name;type:varchar(500)" json:"file_name,omitempty"`
	FileMIMEType          string         `gorm:"column:file_mime_type;type:varchar(100)" json:"file_mime_type,omitempty"`
	StoredFilePath        string         `gorm:"column:stored_file_path;type:varchar(1000)" json:"stored_file_path,omitempty"`
	ParseMode             string         `gorm:"column:parse_mode;type:varchar(20)" json:"parse_mode,omitempty"`
	ParsedData            datatypes.JSON `gorm:"column:parsed_data;type:json" json:"parsed_data,omitempty"`
	CVLanguage            string         `gorm:"column:cv_language;type:varchar(10)" json:"cv_language,omitempty"`
	ParserVersion         string         `gorm:"column:parser_version;type:varchar(50)" json:"parser_version,omitempty"`
	ProcessingTimeSeconds float64        `gorm:"column:processing_time_seconds" json:"processing_time_seconds,omitempty"`
	LLMModel              string         `gorm:"column:llm_model;type:varchar(100)" json:"llm_model,omitempty"`
	TokensUsed            int            `gorm:"column:tokens_used" json:"tokens_used,omitempty"`
	Status                string         `gorm:"column:status;type:varchar(50);index" json:"status"`
	ErrorMessage          string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	CreatedAt             time.Time      `gorm:"column:created_at;type:datetime(6);autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"column:updated_at;type:datetime(6);autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (ParsedCV) TableName() string {
	return "parsed_cvs"
}

// FinalizeResult 任务成功结束时落库的全部产出
type FinalizeResult struct {
	ParsedData            []byte
	CVLanguage            string
	LLMModel              string
	TokensUsed            int
	ParserVersion         string
	ProcessingTimeSeconds float64
}
