package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiyuanzhang/attendance-ocr/dto"
)

func greenDot() dto.Marker { return dto.Marker{Color: dto.MarkerGreen} }
func grayDot() dto.Marker  { return dto.Marker{Color: dto.MarkerGray} }

func TestParseCellHeader(t *testing.T) {
	parser := NewContentParser()

	candidate := parser.ParseCell([]string{"2024年02月", "考勤表"}, nil, 0, 0)
	require.NotNil(t, candidate)
	assert.Equal(t, dto.CandidateHeader, candidate.Kind)
	assert.Equal(t, 2024, candidate.Header.Year)
	assert.Equal(t, 2, candidate.Header.Month)
}

func TestParseCellDaily(t *testing.T) {
	parser := NewContentParser()

	candidate := parser.ParseCell(
		[]string{"15日 周四", "09:02 18:35"},
		[]dto.Marker{greenDot(), greenDot()},
		3, 4,
	)
	require.NotNil(t, candidate)
	require.Equal(t, dto.CandidateDaily, candidate.Kind)

	daily := candidate.Daily
	assert.Equal(t, 15, daily.Day)
	assert.Equal(t, "周四", daily.Weekday)
	assert.Equal(t, "09:02", daily.ClockInTime)
	assert.Equal(t, "18:35", daily.ClockOutTime)
	assert.Equal(t, dto.StatusNormal, daily.ClockInStatus)
	assert.Equal(t, dto.StatusNormal, daily.ClockOutStatus)
	assert.Equal(t, 3, daily.Row)
	assert.Equal(t, 4, daily.Col)
}

func TestParseCellSingleHourDigit(t *testing.T) {
	parser := NewContentParser()

	candidate := parser.ParseCell([]string{"3日 9:05"}, nil, 1, 2)
	require.NotNil(t, candidate)
	require.Equal(t, dto.CandidateDaily, candidate.Kind)
	assert.Equal(t, 3, candidate.Daily.Day)
	assert.Equal(t, "09:05", candidate.Daily.ClockInTime)
	assert.Equal(t, "", candidate.Daily.ClockOutTime)
}

func TestParseCellFragment(t *testing.T) {
	parser := NewContentParser()

	candidate := parser.ParseCell([]string{"考勤统计"}, nil, 0, 2)
	require.NotNil(t, candidate)
	assert.Equal(t, dto.CandidateFragment, candidate.Kind)
	assert.Equal(t, "考勤统计", candidate.FragmentText)

	// The same text in the grid interior is not a fragment.
	assert.Nil(t, parser.ParseCell([]string{"考勤统计"}, nil, 2, 2))
}

func TestParseCellEmpty(t *testing.T) {
	parser := NewContentParser()
	assert.Nil(t, parser.ParseCell(nil, nil, 1, 1))
	assert.Nil(t, parser.ParseCell([]string{"   "}, nil, 1, 1))
}

func TestMatchYearMonthPriority(t *testing.T) {
	// The 年/月 form outranks the dash form in the same text.
	header := MatchYearMonth("2025年09月 2024-03")
	require.NotNil(t, header)
	assert.Equal(t, 2025, header.Year)
	assert.Equal(t, 9, header.Month)
}

func TestMatchYearMonthFormats(t *testing.T) {
	for _, text := range []string{"2024年2月", "2024-02", "2024.02", "2024/02", "2024 年 2 月"} {
		header := MatchYearMonth(text)
		require.NotNil(t, header, text)
		assert.Equal(t, 2024, header.Year, text)
		assert.Equal(t, 2, header.Month, text)
	}
}

func TestMatchYearMonthSanityWindow(t *testing.T) {
	assert.Nil(t, MatchYearMonth("1999年12月"))
	assert.Nil(t, MatchYearMonth("2031-01"))
	assert.Nil(t, MatchYearMonth("2024-13"))
	assert.Nil(t, MatchYearMonth("no dates here"))
}

func TestMatchYearMonthLoose(t *testing.T) {
	// The compact form only matches through the loose entry point.
	assert.Nil(t, MatchYearMonth("考勤202509"))

	header := MatchYearMonthLoose("考勤202509")
	require.NotNil(t, header)
	assert.Equal(t, 2025, header.Year)
	assert.Equal(t, 9, header.Month)

	assert.Nil(t, MatchYearMonthLoose("203113"))
}

func TestStatusFromDots(t *testing.T) {
	cases := []struct {
		dots    []dto.Marker
		in, out dto.ClockStatus
	}{
		{[]dto.Marker{greenDot(), greenDot()}, dto.StatusNormal, dto.StatusNormal},
		{[]dto.Marker{greenDot(), grayDot()}, dto.StatusNormal, dto.StatusAbnormal},
		{[]dto.Marker{greenDot()}, dto.StatusNormal, dto.StatusNotClocked},
		{[]dto.Marker{grayDot()}, dto.StatusAbnormal, dto.StatusNotClocked},
		{[]dto.Marker{grayDot(), grayDot()}, dto.StatusAbnormal, dto.StatusAbnormal},
		{nil, dto.StatusNotClocked, dto.StatusNotClocked},
	}

	for _, tc := range cases {
		in, out := statusFromDots(tc.dots)
		assert.Equal(t, tc.in, in)
		assert.Equal(t, tc.out, out)
	}
}
