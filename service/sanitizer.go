package service

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/kaiyuanzhang/attendance-ocr/dto"
)

// DataSanitizer validates and normalizes daily candidates. It never
// raises: malformed times are blanked, unknown statuses are re-derived
// from the sanitized time, and only a bad day number drops the record.
// Running it twice yields the same result.
type DataSanitizer struct{}

// NewDataSanitizer creates a sanitizer.
func NewDataSanitizer() *DataSanitizer {
	return &DataSanitizer{}
}

// Sanitize cleans the candidate list, dropping records whose day number
// is outside [1,31].
func (s *DataSanitizer) Sanitize(records []dto.DailyCandidate) []dto.DailyCandidate {
	cleaned := make([]dto.DailyCandidate, 0, len(records))

	for _, rec := range records {
		if rec.Day < 1 || rec.Day > 31 {
			continue
		}

		rec.ClockInTime = sanitizeTime(rec.ClockInTime)
		rec.ClockOutTime = sanitizeTime(rec.ClockOutTime)
		rec.ClockInStatus = sanitizeStatus(rec.ClockInStatus, rec.ClockInTime)
		rec.ClockOutStatus = sanitizeStatus(rec.ClockOutStatus, rec.ClockOutTime)

		cleaned = append(cleaned, rec)
	}

	log.Printf("Sanitized attendance candidates: %d valid of %d", len(cleaned), len(records))
	return cleaned
}

// sanitizeTime requires "HH:MM" with hour 0-23 and minute 0-59; anything
// else becomes empty.
func sanitizeTime(t string) string {
	t = strings.TrimSpace(t)
	if t == "" || !strings.Contains(t, ":") {
		return ""
	}

	parts := strings.Split(t, ":")
	if len(parts) != 2 {
		return ""
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ""
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ""
	}

	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// sanitizeStatus keeps canonical statuses and infers the rest from the
// already-sanitized time: a present time means Normal, otherwise
// NotClocked.
func sanitizeStatus(status dto.ClockStatus, sanitizedTime string) dto.ClockStatus {
	if status.Valid() {
		return status
	}
	if sanitizedTime != "" {
		return dto.StatusNormal
	}
	return dto.StatusNotClocked
}
