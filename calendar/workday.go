package calendar

import (
	"time"

	"github.com/kaiyuanzhang/attendance-ocr/dto"
)

// WorkdayCalendar classifies dates using three rules in strict precedence
// order: override-workday beats holiday beats the natural weekday rule.
// The natural week runs Sunday through Friday as working days; only the
// configured rest weekday (Saturday by default) is a natural rest day.
type WorkdayCalendar struct {
	registry    *HolidayRegistry
	restWeekday time.Weekday
}

// NewWorkdayCalendar builds a calendar over the given registry.
// restWeekday names the single natural non-working weekday in English
// ("Saturday", "Sunday", ...); unknown names fall back to Saturday.
func NewWorkdayCalendar(registry *HolidayRegistry, restWeekday string) *WorkdayCalendar {
	return &WorkdayCalendar{
		registry:    registry,
		restWeekday: parseWeekday(restWeekday),
	}
}

func parseWeekday(name string) time.Weekday {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if wd.String() == name {
			return wd
		}
	}
	return time.Saturday
}

// GetDayType returns the type of date ("YYYY-MM-DD"). Precedence:
// override-workday, then holiday, then natural weekday. An unparseable
// date is treated as a rest day.
func (c *WorkdayCalendar) GetDayType(date string) dto.DayType {
	if c.registry.IsWorkdayOverride(date) {
		return dto.DayTypeWorkday
	}
	if c.registry.IsHoliday(date) {
		return dto.DayTypeHoliday
	}
	if c.isNaturalWorkday(date) {
		return dto.DayTypeWorkday
	}
	return dto.DayTypeRestDay
}

// IsWorkday reports whether date counts as a working day under the same
// precedence rules.
func (c *WorkdayCalendar) IsWorkday(date string) bool {
	return c.GetDayType(date) == dto.DayTypeWorkday
}

func (c *WorkdayCalendar) isNaturalWorkday(date string) bool {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	return t.Weekday() != c.restWeekday
}

// WorkdaysInMonth lists every working date of the given month.
func (c *WorkdayCalendar) WorkdaysInMonth(year, month int) []string {
	var workdays []string
	last := DaysInMonth(year, month)
	for day := 1; day <= last; day++ {
		date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		if c.IsWorkday(date) {
			workdays = append(workdays, date)
		}
	}
	return workdays
}

// DaysInMonth returns the number of calendar days in the given month.
func DaysInMonth(year, month int) int {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}
