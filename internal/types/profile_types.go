package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexString 兼容LLM输出中字符串和数字两种形式的字段
// 例如 "year": 2020 和 "year": "2020" 都解析为 "2020"
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("字段既不是字符串也不是数字: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Int 解析为整数，无法解析时返回0
func (f FlexString) Int() int {
	n, err := strconv.Atoi(string(f))
	if err != nil {
		return 0
	}
	return n
}

// IsEmpty 判断原始字段是否为空值
func (f FlexString) IsEmpty() bool { return string(f) == "" }

// WorkDate 工作经历中的年月，月份可能是数字、英文月份名或缩写
type WorkDate struct {
	Year  FlexString `json:"year,omitempty"`
	Month FlexString `json:"month,omitempty"`
}

// ProfileBasics 候选人基本信息
type ProfileBasics struct {
	Profession             string   `json:"profession,omitempty"`
	Summary                string   `json:"summary,omitempty"`
	Skills                 []string `json:"skills,omitempty"`
	HasDrivingLicense      string   `json:"has_driving_license,omitempty"`
	TotalExperienceInYears *float64 `json:"total_experience_in_years,omitempty"`
}

// Language 语言能力，fluency为CEFR等级(A1-C2)
type Language struct {
	Name    string `json:"name,omitempty"`
	ISOCode string `json:"iso_code,omitempty"`
	Fluency string `json:"fluency,omitempty"`
}

// Education 教育经历
type Education struct {
	StartYear           FlexString `json:"start_year,omitempty"`
	IsCurrent           bool       `json:"is_current,omitempty"`
	EndYear             FlexString `json:"end_year,omitempty"`
	IssuingOrganization string     `json:"issuing_organization,omitempty"`
	Description         string     `json:"description,omitempty"`
	DurationInYears     *int       `json:"duration_in_years,omitempty"`
}

// TrainingCertification 培训与认证
type TrainingCertification struct {
	Year                FlexString `json:"year,omitempty"`
	IssuingOrganization string     `json:"issuing_organization,omitempty"`
	Description         string     `json:"description,omitempty"`
}

// ProfessionalExperience 工作经历
type ProfessionalExperience struct {
	StartDate        *WorkDate `json:"start_date,omitempty"`
	IsCurrent        bool      `json:"is_current,omitempty"`
	EndDate          *WorkDate `json:"end_date,omitempty"`
	Company          string    `json:"company,omitempty"`
	Location         string    `json:"location,omitempty"`
	Title            string    `json:"title,omitempty"`
	Description      string    `json:"description,omitempty"`
	DurationInMonths *int      `json:"duration_in_months,omitempty"`
}

// Award 获奖情况
type Award struct {
	Year        FlexString `json:"year,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
}

// CVProfile 完整的结构化简历画像，对应 advanced 模式的LLM输出
type CVProfile struct {
	Basics                  *ProfileBasics           `json:"basics,omitempty"`
	Languages               []Language               `json:"languages,omitempty"`
	Educations              []Education              `json:"educations,omitempty"`
	TrainingsCertifications []TrainingCertification  `json:"trainings_and_certifications,omitempty"`
	ProfessionalExperiences []ProfessionalExperience `json:"professional_experiences,omitempty"`
	Awards                  []Award                  `json:"awards,omitempty"`
}

// ParsedCVData LLM解析结果的顶层结构
type ParsedCVData struct {
	Profile    *CVProfile `json:"profile,omitempty"`
	CVLanguage string     `json:"cv_language,omitempty"`
}

// ValidationResult 严格校验的结果
// Valid 为 true 时 Data 可用；为 false 时保留原始JSON和告警信息
type ValidationResult struct {
	Valid    bool            `json:"valid"`
	Data     *ParsedCVData   `json:"data,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// ValidateParsedCV 对LLM输出做两段式校验
// 第一段启用 DisallowUnknownFields 严格解析，第二段宽松解析并记录告警
// 两段都失败时返回错误
func ValidateParsedCV(raw json.RawMessage) (*ValidationResult, error) {
	strict := json.NewDecoder(bytes.NewReader(raw))
	strict.DisallowUnknownFields()
	var data ParsedCVData
	if err := strict.Decode(&data); err == nil {
		return &ValidationResult{Valid: true, Data: &data, Raw: raw}, nil
	} else {
		var lenientData ParsedCVData
		if lerr := json.Unmarshal(raw, &lenientData); lerr != nil {
			return nil, fmt.Errorf("解析结果不是合法的简历结构: %w", lerr)
		}
		return &ValidationResult{
			Valid:    false,
			Data:     &lenientData,
			Raw:      raw,
			Warnings: []string{fmt.Sprintf("严格校验未通过: %v", err)},
		}, nil
	}
}
