package dto

import (
	"fmt"
	"time"

	"github.com/kaiyuanzhang/attendance-ocr/utils"
)

// ClockStatus is the state of a single clock-in or clock-out slot.
// Only the three canonical values below are valid anywhere in the pipeline.
type ClockStatus string

const (
	StatusNormal     ClockStatus = "正常"
	StatusAbnormal   ClockStatus = "异常"
	StatusNotClocked ClockStatus = "未打卡"
)

// Valid reports whether s is one of the three canonical statuses.
func (s ClockStatus) Valid() bool {
	return s == StatusNormal || s == StatusAbnormal || s == StatusNotClocked
}

// DayType classifies a calendar day.
type DayType string

const (
	DayTypeWorkday DayType = "工作日"
	DayTypeRestDay DayType = "休息日"
	DayTypeHoliday DayType = "节假日"
)

// ClockRecord is one clock event: a "HH:MM" time (possibly empty) and its status.
type ClockRecord struct {
	Time   string      `json:"time"`
	Status ClockStatus `json:"status"`
}

// DailyAttendance is the attendance entry for one calendar day.
type DailyAttendance struct {
	Date        string      `json:"date"` // "YYYY-MM-DD"
	DayOfWeek   string      `json:"day_of_week"`
	DayType     DayType     `json:"day_type"`
	ClockIn     ClockRecord `json:"clock_in"`
	ClockOut    ClockRecord `json:"clock_out"`
	IsConfirmed bool        `json:"is_confirmed"`
}

// Statistics is the derived per-month tally. It is always recomputed from
// the day list, never edited directly.
type Statistics struct {
	TotalDays        int `json:"total_days"`
	WorkDays         int `json:"work_days"`
	RestDays         int `json:"rest_days"`
	HolidayDays      int `json:"holiday_days"`
	NormalClockIn    int `json:"normal_clock_in"`
	AbnormalClockIn  int `json:"abnormal_clock_in"`
	NormalClockOut   int `json:"normal_clock_out"`
	AbnormalClockOut int `json:"abnormal_clock_out"`
	ConfirmedDays    int `json:"confirmed_days"`
}

// MonthlyAttendance holds one entry per calendar day of the month, ordered
// by date with no gaps, plus the derived statistics.
type MonthlyAttendance struct {
	YearMonth  string            `json:"year_month"` // "YYYY-MM"
	Days       []DailyAttendance `json:"data"`
	Statistics Statistics        `json:"statistics"`
}

// NewMonthlyAttendance builds the model and computes its statistics.
func NewMonthlyAttendance(yearMonth string, days []DailyAttendance) (*MonthlyAttendance, error) {
	if _, err := time.Parse("2006-01", yearMonth); err != nil {
		return nil, fmt.Errorf("invalid year-month %q: %w", yearMonth, err)
	}

	m := &MonthlyAttendance{
		YearMonth: yearMonth,
		Days:      days,
	}
	m.RecomputeStatistics()
	return m, nil
}

// RecomputeStatistics recalculates the tallies from the day list. Callers
// that replace or mutate Days must call this afterwards.
func (m *MonthlyAttendance) RecomputeStatistics() {
	stats := Statistics{TotalDays: len(m.Days)}

	for _, day := range m.Days {
		switch day.DayType {
		case DayTypeWorkday:
			stats.WorkDays++
		case DayTypeRestDay:
			stats.RestDays++
		case DayTypeHoliday:
			stats.HolidayDays++
		}

		switch day.ClockIn.Status {
		case StatusNormal:
			stats.NormalClockIn++
		case StatusAbnormal:
			stats.AbnormalClockIn++
		}

		switch day.ClockOut.Status {
		case StatusNormal:
			stats.NormalClockOut++
		case StatusAbnormal:
			stats.AbnormalClockOut++
		}

		if day.IsConfirmed {
			stats.ConfirmedDays++
		}
	}

	m.Statistics = stats
}

// Clone returns a detached copy sharing no memory with the receiver.
// Readers that serialize outside a lock must work on a clone.
func (m *MonthlyAttendance) Clone() *MonthlyAttendance {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Days = make([]DailyAttendance, len(m.Days))
	copy(cp.Days, m.Days)
	return &cp
}

// GetDay returns the entry for the given "YYYY-MM-DD" date.
func (m *MonthlyAttendance) GetDay(date string) (*DailyAttendance, error) {
	for i := range m.Days {
		if m.Days[i].Date == date {
			return &m.Days[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDateNotFound, date)
}

// UpdateDay sets one editable field on the given date and recomputes the
// statistics. Time values are normalized to "HH:MM" first; a value that
// still does not validate is rejected. Returns false when the date is out
// of range or the field or value is not accepted.
func (m *MonthlyAttendance) UpdateDay(date, field, value string) bool {
	day, err := m.GetDay(date)
	if err != nil {
		return false
	}

	switch field {
	case "clock_in_time":
		t := utils.NormalizeTimeFormat(value)
		if !utils.ValidateTimeFormat(t) {
			return false
		}
		day.ClockIn.Time = t
	case "clock_out_time":
		t := utils.NormalizeTimeFormat(value)
		if !utils.ValidateTimeFormat(t) {
			return false
		}
		day.ClockOut.Time = t
	case "clock_in_status":
		if !ClockStatus(value).Valid() {
			return false
		}
		day.ClockIn.Status = ClockStatus(value)
	case "clock_out_status":
		if !ClockStatus(value).Valid() {
			return false
		}
		day.ClockOut.Status = ClockStatus(value)
	case "day_type":
		dt := DayType(value)
		if dt != DayTypeWorkday && dt != DayTypeRestDay && dt != DayTypeHoliday {
			return false
		}
		day.DayType = dt
	default:
		return false
	}

	m.RecomputeStatistics()
	return true
}

// ConfirmDay marks the given date as reviewed.
func (m *MonthlyAttendance) ConfirmDay(date string) bool {
	day, err := m.GetDay(date)
	if err != nil {
		return false
	}
	day.IsConfirmed = true
	m.RecomputeStatistics()
	return true
}
