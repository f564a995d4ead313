package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	timeFormatRegexp = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
	whitespaceRegexp = regexp.MustCompile(`\s+`)

	timeShapePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(\d{1,2}):(\d{2})$`),
		regexp.MustCompile(`^(\d{1,2})\.(\d{2})$`),
		regexp.MustCompile(`^(\d{1,2})-(\d{2})$`),
		regexp.MustCompile(`^(\d{1,2})(\d{2})$`),
	}
)

// ValidateTimeFormat reports whether s is empty or a valid "HH:MM" time.
func ValidateTimeFormat(s string) bool {
	if s == "" {
		return true
	}
	return timeFormatRegexp.MatchString(s)
}

// NormalizeTimeFormat converts common OCR time shapes (H:MM, HH.MM, HH-MM,
// HHMM, bare hour) into "HH:MM". Unparseable input is returned unchanged.
func NormalizeTimeFormat(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if digitsOnly(s) && len(s) <= 2 {
		if hour, err := strconv.Atoi(s); err == nil && hour >= 0 && hour <= 23 {
			return fmt.Sprintf("%02d:00", hour)
		}
	}

	for _, pattern := range timeShapePatterns {
		m := pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59 {
			return fmt.Sprintf("%02d:%02d", hour, minute)
		}
	}

	return s
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// weekdays is Monday-first, matching time.Weekday via (wd+6)%7.
var weekdays = []string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

// WeekdayChinese returns the Chinese weekday name for date ("YYYY-MM-DD"),
// or "" if the date does not parse.
func WeekdayChinese(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return weekdays[(int(t.Weekday())+6)%7]
}

// CleanOCRText collapses whitespace and fixes the usual OCR confusions
// seen in time columns (vertical bar for 1, letter O for zero).
func CleanOCRText(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRegexp.ReplaceAllString(strings.TrimSpace(text), " ")
	text = strings.ReplaceAll(text, "|", "1")
	text = strings.ReplaceAll(text, "O", "0")
	return text
}

// CalculateWorkHours returns the duration in hours between two "HH:MM"
// times, treating a clock-out earlier than clock-in as crossing midnight.
// Returns false when either time is empty or malformed.
func CalculateWorkHours(clockIn, clockOut string) (float64, bool) {
	if clockIn == "" || clockOut == "" {
		return 0, false
	}

	in, err := time.Parse("15:04", clockIn)
	if err != nil {
		return 0, false
	}
	out, err := time.Parse("15:04", clockOut)
	if err != nil {
		return 0, false
	}

	if out.Before(in) {
		out = out.Add(24 * time.Hour)
	}
	return out.Sub(in).Hours(), true
}

// FormatDuration renders hours as "X小时Y分钟".
func FormatDuration(hours float64) string {
	totalMinutes := int(hours * 60)
	return fmt.Sprintf("%d小时%d分钟", totalMinutes/60, totalMinutes%60)
}

// AttendanceRate returns the percentage of fully normal days over
// workdays, 0 when there are no workdays.
func AttendanceRate(normalDays, workDays int) float64 {
	if workDays == 0 {
		return 0
	}
	return float64(normalDays) / float64(workDays) * 100
}

// TimestampedFilename builds "<prefix>_<YYYYMMDD_HHMMSS>.<ext>".
func TimestampedFilename(prefix, extension string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), extension)
}
