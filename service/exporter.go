package service

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kaiyuanzhang/attendance-ocr/dto"
	"github.com/kaiyuanzhang/attendance-ocr/utils"
)

const (
	sheetDetails    = "考勤明细"
	sheetStatistics = "统计信息"
	sheetAnomalies  = "异常记录"
)

// ReportExporter writes the extracted month to disk as Excel, CSV or
// JSON and renders the human-readable report summary.
type ReportExporter struct {
	exportDir string
}

// NewReportExporter creates an exporter writing into exportDir. The
// directory is created on first export.
func NewReportExporter(exportDir string) *ReportExporter {
	return &ReportExporter{exportDir: exportDir}
}

// Export writes the month in the requested format ("excel", "csv" or
// "json") and returns the written file path.
func (e *ReportExporter) Export(m *dto.MonthlyAttendance, format string) (string, error) {
	if m == nil {
		return "", dto.ErrNoData
	}
	if err := os.MkdirAll(e.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}

	switch strings.ToLower(format) {
	case "excel", "xlsx":
		return e.exportExcel(m)
	case "csv":
		return e.exportCSV(m)
	case "json":
		return e.exportJSON(m)
	default:
		return "", fmt.Errorf("%w: unsupported format %q", dto.ErrExport, format)
	}
}

func (e *ReportExporter) exportExcel(m *dto.MonthlyAttendance) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := e.fillDetailsSheet(f, m); err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}
	if err := e.fillStatisticsSheet(f, m); err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}
	if err := e.fillAnomaliesSheet(f, m); err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}

	// The default "Sheet1" is replaced by the details sheet.
	index, err := f.GetSheetIndex(sheetDetails)
	if err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}
	f.SetActiveSheet(index)

	path := filepath.Join(e.exportDir, utils.TimestampedFilename("考勤报告_"+m.YearMonth, "xlsx"))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}

	log.Printf("Exported Excel report to %s", path)
	return path, nil
}

func (e *ReportExporter) fillDetailsSheet(f *excelize.File, m *dto.MonthlyAttendance) error {
	if err := f.SetSheetName("Sheet1", sheetDetails); err != nil {
		return err
	}

	header := []interface{}{"日期", "星期", "日期类型", "上班时间", "上班状态", "下班时间", "下班状态", "工作时长", "已确认"}
	if err := f.SetSheetRow(sheetDetails, "A1", &header); err != nil {
		return err
	}

	for i, day := range m.Days {
		confirmed := "否"
		if day.IsConfirmed {
			confirmed = "是"
		}
		duration := ""
		if hours, ok := utils.CalculateWorkHours(day.ClockIn.Time, day.ClockOut.Time); ok {
			duration = utils.FormatDuration(hours)
		}

		row := []interface{}{
			day.Date,
			day.DayOfWeek,
			string(day.DayType),
			day.ClockIn.Time,
			string(day.ClockIn.Status),
			day.ClockOut.Time,
			string(day.ClockOut.Status),
			duration,
			confirmed,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetDetails, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (e *ReportExporter) fillStatisticsSheet(f *excelize.File, m *dto.MonthlyAttendance) error {
	if _, err := f.NewSheet(sheetStatistics); err != nil {
		return err
	}

	stats := m.Statistics
	rows := [][]interface{}{
		{"统计项", "数值"},
		{"月份", m.YearMonth},
		{"总天数", stats.TotalDays},
		{"工作日", stats.WorkDays},
		{"休息日", stats.RestDays},
		{"节假日", stats.HolidayDays},
		{"上班正常", stats.NormalClockIn},
		{"上班异常", stats.AbnormalClockIn},
		{"下班正常", stats.NormalClockOut},
		{"下班异常", stats.AbnormalClockOut},
		{"已确认天数", stats.ConfirmedDays},
		{"出勤率", fmt.Sprintf("%.1f%%", utils.AttendanceRate(stats.NormalClockIn, stats.WorkDays))},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetStatistics, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (e *ReportExporter) fillAnomaliesSheet(f *excelize.File, m *dto.MonthlyAttendance) error {
	if _, err := f.NewSheet(sheetAnomalies); err != nil {
		return err
	}

	header := []interface{}{"日期", "星期", "上班状态", "下班状态"}
	if err := f.SetSheetRow(sheetAnomalies, "A1", &header); err != nil {
		return err
	}

	rowIdx := 2
	for _, day := range m.Days {
		if day.DayType != dto.DayTypeWorkday {
			continue
		}
		if day.ClockIn.Status == dto.StatusNormal && day.ClockOut.Status == dto.StatusNormal {
			continue
		}

		row := []interface{}{day.Date, day.DayOfWeek, string(day.ClockIn.Status), string(day.ClockOut.Status)}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetAnomalies, cell, &row); err != nil {
			return err
		}
		rowIdx++
	}
	return nil
}

func (e *ReportExporter) exportCSV(m *dto.MonthlyAttendance) (string, error) {
	path := filepath.Join(e.exportDir, utils.TimestampedFilename("考勤报告_"+m.YearMonth, "csv"))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}
	defer file.Close()

	// UTF-8 BOM so Excel opens the Chinese headers correctly.
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}

	w := csv.NewWriter(file)
	if err := w.Write([]string{"日期", "星期", "日期类型", "上班时间", "上班状态", "下班时间", "下班状态", "已确认"}); err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}
	for _, day := range m.Days {
		confirmed := "否"
		if day.IsConfirmed {
			confirmed = "是"
		}
		record := []string{
			day.Date,
			day.DayOfWeek,
			string(day.DayType),
			day.ClockIn.Time,
			string(day.ClockIn.Status),
			day.ClockOut.Time,
			string(day.ClockOut.Status),
			confirmed,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}

	log.Printf("Exported CSV report to %s", path)
	return path, nil
}

func (e *ReportExporter) exportJSON(m *dto.MonthlyAttendance) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}

	path := filepath.Join(e.exportDir, utils.TimestampedFilename("考勤报告_"+m.YearMonth, "json"))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrExport, err)
	}

	log.Printf("Exported JSON report to %s", path)
	return path, nil
}

// GenerateReportSummary renders a short plain-text summary of the month.
func (e *ReportExporter) GenerateReportSummary(m *dto.MonthlyAttendance) string {
	if m == nil {
		return ""
	}

	stats := m.Statistics
	var b strings.Builder
	fmt.Fprintf(&b, "%s 考勤报告\n", m.YearMonth)
	fmt.Fprintf(&b, "总天数: %d (工作日 %d, 休息日 %d, 节假日 %d)\n",
		stats.TotalDays, stats.WorkDays, stats.RestDays, stats.HolidayDays)
	fmt.Fprintf(&b, "上班打卡: 正常 %d, 异常 %d\n", stats.NormalClockIn, stats.AbnormalClockIn)
	fmt.Fprintf(&b, "下班打卡: 正常 %d, 异常 %d\n", stats.NormalClockOut, stats.AbnormalClockOut)
	fmt.Fprintf(&b, "出勤率: %.1f%%\n", utils.AttendanceRate(stats.NormalClockIn, stats.WorkDays))
	fmt.Fprintf(&b, "已确认: %d/%d\n", stats.ConfirmedDays, stats.TotalDays)
	return b.String()
}
