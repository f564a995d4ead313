package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kaiyuanzhang/attendance-ocr/dto"
)

func testCalendar(t *testing.T) *WorkdayCalendar {
	t.Helper()
	registry := NewHolidayRegistry(writeConfig(t, sampleConfig))
	return NewWorkdayCalendar(registry, "Saturday")
}

func TestGetDayTypePrecedence(t *testing.T) {
	c := testCalendar(t)

	// Override workday wins even on a Sunday.
	assert.Equal(t, dto.DayTypeWorkday, c.GetDayType("2024-02-04"))
	// Registered holiday.
	assert.Equal(t, dto.DayTypeHoliday, c.GetDayType("2024-02-10"))
	// Plain Saturday is the natural rest day.
	assert.Equal(t, dto.DayTypeRestDay, c.GetDayType("2024-02-03"))
	// Plain Tuesday is a workday, and so is a plain Sunday.
	assert.Equal(t, dto.DayTypeWorkday, c.GetDayType("2024-02-06"))
	assert.Equal(t, dto.DayTypeWorkday, c.GetDayType("2024-02-18"))
}

func TestGetDayTypeOverrideBeatsHoliday(t *testing.T) {
	registry := NewHolidayRegistry("")
	registry.AddHoliday("2024-02-04")
	registry.AddWorkdayOverride("2024-02-04")
	c := NewWorkdayCalendar(registry, "Saturday")

	assert.Equal(t, dto.DayTypeWorkday, c.GetDayType("2024-02-04"))
}

func TestGetDayTypeUnparseableDate(t *testing.T) {
	c := testCalendar(t)
	assert.Equal(t, dto.DayTypeRestDay, c.GetDayType("2024-13-99"))
}

func TestRestWeekdayConfigurable(t *testing.T) {
	registry := NewHolidayRegistry("")
	c := NewWorkdayCalendar(registry, "Sunday")

	assert.Equal(t, dto.DayTypeWorkday, c.GetDayType("2024-02-03")) // Saturday
	assert.Equal(t, dto.DayTypeRestDay, c.GetDayType("2024-02-04")) // Sunday
}

func TestUnknownRestWeekdayFallsBackToSaturday(t *testing.T) {
	c := NewWorkdayCalendar(NewHolidayRegistry(""), "Friturday")
	assert.Equal(t, dto.DayTypeRestDay, c.GetDayType("2024-02-03"))
}

func TestWorkdaysInMonth(t *testing.T) {
	c := testCalendar(t)

	workdays := c.WorkdaysInMonth(2024, 2)
	// 29 days, 4 Saturdays, minus 2 holidays (10th is a Saturday anyway),
	// plus the override on the 4th: 29 - 4 - 1 = 24.
	assert.Len(t, workdays, 24)
	assert.Contains(t, workdays, "2024-02-04")
	assert.NotContains(t, workdays, "2024-02-10")
	assert.NotContains(t, workdays, "2024-02-11")
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(2024, 2))
	assert.Equal(t, 28, DaysInMonth(2025, 2))
	assert.Equal(t, 31, DaysInMonth(2024, 12))
}
