// Package enrich 在LLM输出的基础上补算时长类派生字段
package enrich

import (
	"math"
	"strings"
	"time"

	"cv-parser-go/internal/types"
)

// monthNames 英文月份全称和缩写到月序的映射
var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "sept": 9, "oct": 10,
	"nov": 11, "dec": 12,
}

// ParseMonth 把月份字段解析为1-12的序号
// 接受数字、英文全称和缩写，无法解析时返回1
func ParseMonth(raw types.FlexString) int {
	s := strings.ToLower(strings.TrimSpace(raw.String()))
	if s == "" {
		return 1
	}
	if n := raw.Int(); n >= 1 && n <= 12 {
		return n
	}
	if n, ok := monthNames[s]; ok {
		return n
	}
	return 1
}

// DurationInMonths 计算一段工作经历的月数，首尾月都计入
// 结束时间缺失时取当年12月；is_current为真时取当前时间；结果不为负
func DurationInMonths(start, end *types.WorkDate, isCurrent bool, now time.Time) int {
	if start == nil || start.Year.IsEmpty() {
		return 0
	}
	startYear := start.Year.Int()
	if startYear == 0 {
		return 0
	}
	startMonth := ParseMonth(start.Month)

	var endYear, endMonth int
	switch {
	case isCurrent:
		endYear = now.Year()
		endMonth = int(now.Month())
	case end != nil && !end.Year.IsEmpty() && end.Year.Int() != 0:
		endYear = end.Year.Int()
		if end.Month.IsEmpty() {
			endMonth = 12
		} else {
			endMonth = ParseMonth(end.Month)
		}
	default:
		return 0
	}

	months := (endYear-startYear)*12 + (endMonth - startMonth) + 1
	if months < 0 {
		return 0
	}
	return months
}

// TotalExperienceYears 按所有经历的总月数换算成年，保留1位小数
func TotalExperienceYears(totalMonths int) float64 {
	return math.Round(float64(totalMonths)/12*10) / 10
}

// EducationDurationYears 计算教育经历的年数
// is_current为真时用当前年份作为结束年；结果不为负；无法计算时返回nil
func EducationDurationYears(edu *types.Education, now time.Time) *int {
	if edu == nil || edu.StartYear.IsEmpty() || edu.StartYear.Int() == 0 {
		return nil
	}
	startYear := edu.StartYear.Int()

	var endYear int
	switch {
	case edu.IsCurrent:
		endYear = now.Year()
	case !edu.EndYear.IsEmpty() && edu.EndYear.Int() != 0:
		endYear = edu.EndYear.Int()
	default:
		return nil
	}

	years := endYear - startYear
	if years < 0 {
		years = 0
	}
	return &years
}

// EnrichProfile 为画像补齐所有派生时长字段
// 覆盖LLM可能自行输出的时长，保证口径一致
func EnrichProfile(profile *types.CVProfile, now time.Time) {
	if profile == nil {
		return
	}

	totalMonths := 0
	for i := range profile.ProfessionalExperiences {
		exp := &profile.ProfessionalExperiences[i]
		months := DurationInMonths(exp.StartDate, exp.EndDate, exp.IsCurrent, now)
		exp.DurationInMonths = &months
		totalMonths += months
	}

	if profile.Basics == nil {
		profile.Basics = &types.ProfileBasics{}
	}
	years := TotalExperienceYears(totalMonths)
	profile.Basics.TotalExperienceInYears = &years

	for i := range profile.Educations {
		profile.Educations[i].DurationInYears = EducationDurationYears(&profile.Educations[i], now)
	}
}
