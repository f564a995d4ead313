package service

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kaiyuanzhang/attendance-ocr/dto"
)

func exportMonth(t *testing.T) *dto.MonthlyAttendance {
	t.Helper()
	m, err := testAssembler(t).Assemble("2024-02", []dto.DailyCandidate{
		{Day: 1, ClockInTime: "09:00", ClockInStatus: dto.StatusNormal, ClockOutTime: "18:00", ClockOutStatus: dto.StatusNormal},
		{Day: 2, ClockInTime: "09:40", ClockInStatus: dto.StatusAbnormal},
	})
	require.NoError(t, err)
	return m
}

func TestExportJSON(t *testing.T) {
	e := NewReportExporter(t.TempDir())

	path, err := e.Export(exportMonth(t), "json")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded dto.MonthlyAttendance
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2024-02", decoded.YearMonth)
	assert.Len(t, decoded.Days, 29)
}

func TestExportCSV(t *testing.T) {
	e := NewReportExporter(t.TempDir())

	path, err := e.Export(exportMonth(t), "csv")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// BOM first, then the header row.
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])
	assert.Contains(t, string(data), "日期,星期,日期类型")
	// 29 day rows plus header.
	assert.Equal(t, 30, strings.Count(strings.TrimSpace(string(data)), "\n")+1)
}

func TestExportExcel(t *testing.T) {
	e := NewReportExporter(t.TempDir())

	path, err := e.Export(exportMonth(t), "excel")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".xlsx"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{sheetDetails, sheetStatistics, sheetAnomalies}, f.GetSheetList())

	value, err := f.GetCellValue(sheetDetails, "A2")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", value)

	// The 2nd is a workday with an abnormal clock-in and a missing
	// clock-out, so it shows up on the anomaly sheet.
	anomaly, err := f.GetCellValue(sheetAnomalies, "A2")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-02", anomaly)
}

func TestExportRejectsBadInput(t *testing.T) {
	e := NewReportExporter(t.TempDir())

	_, err := e.Export(nil, "json")
	assert.ErrorIs(t, err, dto.ErrNoData)

	_, err = e.Export(exportMonth(t), "pdf")
	assert.ErrorIs(t, err, dto.ErrExport)
}

func TestGenerateReportSummary(t *testing.T) {
	e := NewReportExporter(t.TempDir())

	summary := e.GenerateReportSummary(exportMonth(t))
	assert.Contains(t, summary, "2024-02 考勤报告")
	assert.Contains(t, summary, "总天数: 29")
	assert.Equal(t, "", e.GenerateReportSummary(nil))
}
