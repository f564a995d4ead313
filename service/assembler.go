package service

import (
	"fmt"
	"log"
	"time"

	"github.com/kaiyuanzhang/attendance-ocr/calendar"
	"github.com/kaiyuanzhang/attendance-ocr/dto"
	"github.com/kaiyuanzhang/attendance-ocr/utils"
)

// AttendanceAssembler merges sanitized daily candidates onto a full
// calendar month: one DailyAttendance per day, gaps filled with empty
// NotClocked records, day types from the workday calendar.
type AttendanceAssembler struct {
	workdays *calendar.WorkdayCalendar
	now      func() time.Time
}

// NewAttendanceAssembler creates an assembler over the given calendar.
func NewAttendanceAssembler(workdays *calendar.WorkdayCalendar) *AttendanceAssembler {
	return &AttendanceAssembler{
		workdays: workdays,
		now:      time.Now,
	}
}

// ResolveYearMonth picks the effective "YYYY-MM". An extracted header
// wins. Without one, the current system year-month is used whether or
// not daily candidates exist — a weak heuristic kept for compatibility;
// the image itself gives no better signal.
func (a *AttendanceAssembler) ResolveYearMonth(header *dto.HeaderCandidate, records []dto.DailyCandidate) string {
	if header != nil {
		return fmt.Sprintf("%04d-%02d", header.Year, header.Month)
	}

	now := a.now()
	if len(records) > 0 {
		log.Printf("No year-month header found, assuming current month %04d-%02d", now.Year(), int(now.Month()))
	}
	return fmt.Sprintf("%04d-%02d", now.Year(), int(now.Month()))
}

// Assemble builds the complete month model from sanitized records.
func (a *AttendanceAssembler) Assemble(yearMonth string, records []dto.DailyCandidate) (*dto.MonthlyAttendance, error) {
	t, err := time.Parse("2006-01", yearMonth)
	if err != nil {
		return nil, fmt.Errorf("invalid year-month %q: %w", yearMonth, err)
	}
	year, month := t.Year(), int(t.Month())
	daysInMonth := calendar.DaysInMonth(year, month)

	// Last write wins when several cells claim the same day number.
	byDay := make(map[int]dto.DailyCandidate)
	for _, rec := range records {
		if rec.Day >= 1 && rec.Day <= daysInMonth {
			byDay[rec.Day] = rec
		}
	}

	days := make([]dto.DailyAttendance, 0, daysInMonth)
	for day := 1; day <= daysInMonth; day++ {
		date := fmt.Sprintf("%04d-%02d-%02d", year, month, day)

		entry := dto.DailyAttendance{
			Date:      date,
			DayOfWeek: utils.WeekdayChinese(date),
			DayType:   a.workdays.GetDayType(date),
			ClockIn:   dto.ClockRecord{Status: dto.StatusNotClocked},
			ClockOut:  dto.ClockRecord{Status: dto.StatusNotClocked},
		}

		if rec, ok := byDay[day]; ok {
			entry.ClockIn = promoteRecord(rec.ClockInTime, rec.ClockInStatus)
			entry.ClockOut = promoteRecord(rec.ClockOutTime, rec.ClockOutStatus)
		}

		days = append(days, entry)
	}

	monthly, err := dto.NewMonthlyAttendance(yearMonth, days)
	if err != nil {
		return nil, err
	}

	log.Printf("Assembled month %s: %d days, %d with clock data", yearMonth, daysInMonth, len(byDay))
	return monthly, nil
}

// promoteRecord applies the promotion rule: a present time with a
// still-NotClocked status becomes Normal.
func promoteRecord(timeStr string, status dto.ClockStatus) dto.ClockRecord {
	if timeStr != "" && status == dto.StatusNotClocked {
		status = dto.StatusNormal
	}
	return dto.ClockRecord{Time: timeStr, Status: status}
}
