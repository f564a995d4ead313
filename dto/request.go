package dto

import "fmt"

// UpdateDayRequest edits one field of one day.
type UpdateDayRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Validate checks the request shape; value validity is checked by the model.
func (r *UpdateDayRequest) Validate() error {
	if r.Field == "" {
		return fmt.Errorf("field is required")
	}
	return nil
}

// HolidayEntryRequest adds or removes one holiday/override-workday date.
type HolidayEntryRequest struct {
	Date string `json:"date"` // "YYYY-MM-DD"
	Kind string `json:"kind"` // "holiday" or "workday"
}

// Validate checks the request shape.
func (r *HolidayEntryRequest) Validate() error {
	if r.Date == "" {
		return fmt.Errorf("date is required")
	}
	if r.Kind != "holiday" && r.Kind != "workday" {
		return fmt.Errorf("kind must be \"holiday\" or \"workday\"")
	}
	return nil
}

// ExtractResponse wraps the extraction result.
type ExtractResponse struct {
	ExtractionID string             `json:"extraction_id"`
	Attendance   *MonthlyAttendance `json:"attendance"`
	ProcessedAt  string             `json:"processed_at"`
}

// SummaryResponse carries the plain-text report summary.
type SummaryResponse struct {
	YearMonth string `json:"year_month"`
	Summary   string `json:"summary"`
}
