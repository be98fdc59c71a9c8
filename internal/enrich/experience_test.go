package enrich

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-parser-go/internal/types"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestParseMonth(t *testing.T) {
	cases := []struct {
		input    string
		expected int
	}{
		{"", 1},
		{"3", 3},
		{"12", 12},
		{"March", 3},
		{"march", 3},
		{"sep", 9},
		{"Sept", 9},
		{"December", 12},
		{"13", 1},   // 越界数字
		{"garbage", 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, ParseMonth(types.FlexString(tc.input)), "输入: %q", tc.input)
	}
}

func TestDurationInMonthsInclusive(t *testing.T) {
	// 2020年3月到2021年3月，首尾月都计入 = 13个月
	start := &types.WorkDate{Year: "2020", Month: "3"}
	end := &types.WorkDate{Year: "2021", Month: "3"}
	assert.Equal(t, 13, DurationInMonths(start, end, false, fixedNow))

	// 同年同月 = 1个月
	start = &types.WorkDate{Year: "2020", Month: "5"}
	end = &types.WorkDate{Year: "2020", Month: "5"}
	assert.Equal(t, 1, DurationInMonths(start, end, false, fixedNow))
}

func TestDurationInMonthsEndMonthDefault(t *testing.T) {
	// 结束月缺失时取当年12月: 2020.1 -> 2020.12 = 12个月
	start := &types.WorkDate{Year: "2020", Month: "1"}
	end := &types.WorkDate{Year: "2020"}
	assert.Equal(t, 12, DurationInMonths(start, end, false, fixedNow))
}

func TestDurationInMonthsIsCurrent(t *testing.T) {
	// 2025.1 到当前(2025.6) = 6个月
	start := &types.WorkDate{Year: "2025", Month: "1"}
	assert.Equal(t, 6, DurationInMonths(start, nil, true, fixedNow))
}

func TestDurationInMonthsEdgeCases(t *testing.T) {
	// 起始缺失
	assert.Equal(t, 0, DurationInMonths(nil, &types.WorkDate{Year: "2021"}, false, fixedNow))
	assert.Equal(t, 0, DurationInMonths(&types.WorkDate{}, &types.WorkDate{Year: "2021"}, false, fixedNow))

	// 结束缺失且不在职
	assert.Equal(t, 0, DurationInMonths(&types.WorkDate{Year: "2020"}, nil, false, fixedNow))

	// 倒序日期不为负
	start := &types.WorkDate{Year: "2023", Month: "5"}
	end := &types.WorkDate{Year: "2020", Month: "1"}
	assert.Equal(t, 0, DurationInMonths(start, end, false, fixedNow))

	// 英文月份名
	start = &types.WorkDate{Year: "2020", Month: "June"}
	end = &types.WorkDate{Year: "2023", Month: "May"}
	assert.Equal(t, 36, DurationInMonths(start, end, false, fixedNow))
}

func TestTotalExperienceYears(t *testing.T) {
	assert.Equal(t, 5.0, TotalExperienceYears(60))
	assert.Equal(t, 1.1, TotalExperienceYears(13))
	assert.Equal(t, 0.5, TotalExperienceYears(6))
	assert.Equal(t, 0.0, TotalExperienceYears(0))
}

func TestEducationDurationYears(t *testing.T) {
	// 常规区间
	edu := &types.Education{StartYear: "2015", EndYear: "2019"}
	got := EducationDurationYears(edu, fixedNow)
	require.NotNil(t, got)
	assert.Equal(t, 4, *got)

	// 在读用当前年份
	edu = &types.Education{StartYear: "2023", IsCurrent: true}
	got = EducationDurationYears(edu, fixedNow)
	require.NotNil(t, got)
	assert.Equal(t, 2, *got)

	// 无法计算时返回nil
	assert.Nil(t, EducationDurationYears(&types.Education{EndYear: "2019"}, fixedNow))
	assert.Nil(t, EducationDurationYears(&types.Education{StartYear: "2019"}, fixedNow))

	// 倒序不为负
	edu = &types.Education{StartYear: "2020", EndYear: "2015"}
	got = EducationDurationYears(edu, fixedNow)
	require.NotNil(t, got)
	assert.Equal(t, 0, *got)
}

func TestEnrichProfile(t *testing.T) {
	profile := &types.CVProfile{
		ProfessionalExperiences: []types.ProfessionalExperience{
			{
				StartDate: &types.WorkDate{Year: "2018", Month: "6"},
				EndDate:   &types.WorkDate{Year: "2023", Month: "5"},
				Company:   "Acme",
			},
			{
				StartDate: &types.WorkDate{Year: "2023", Month: "6"},
				IsCurrent: true,
				Company:   "Globex",
			},
		},
		Educations: []types.Education{
			{StartYear: "2014", EndYear: "2018"},
		},
	}

	EnrichProfile(profile, fixedNow)

	// 第一段: (2023-2018)*12 + (5-6) + 1 = 60
	require.NotNil(t, profile.ProfessionalExperiences[0].DurationInMonths)
	assert.Equal(t, 60, *profile.ProfessionalExperiences[0].DurationInMonths)

	// 第二段: 2023.6 到 2025.6 = 25
	require.NotNil(t, profile.ProfessionalExperiences[1].DurationInMonths)
	assert.Equal(t, 25, *profile.ProfessionalExperiences[1].DurationInMonths)

	// 总年限 = round(85/12, 1) = 7.1，Basics为nil时自动创建
	require.NotNil(t, profile.Basics)
	require.NotNil(t, profile.Basics.TotalExperienceInYears)
	assert.Equal(t, 7.1, *profile.Basics.TotalExperienceInYears)

	require.NotNil(t, profile.Educations[0].DurationInYears)
	assert.Equal(t, 4, *profile.Educations[0].DurationInYears)
}

func TestEnrichProfileOverridesLLMValues(t *testing.T) {
	wrong := 999
	profile := &types.CVProfile{
		ProfessionalExperiences: []types.ProfessionalExperience{
			{
				StartDate:        &types.WorkDate{Year: "2020", Month: "1"},
				EndDate:          &types.WorkDate{Year: "2020", Month: "12"},
				DurationInMonths: &wrong,
			},
		},
	}

	EnrichProfile(profile, fixedNow)

	require.NotNil(t, profile.ProfessionalExperiences[0].DurationInMonths)
	assert.Equal(t, 12, *profile.ProfessionalExperiences[0].DurationInMonths, "应覆盖LLM输出的时长")
}
