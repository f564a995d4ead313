package dto

import "errors"

// Pipeline error taxonomy. Stage-level failures wrap one of these
// sentinels; per-cell failures are recorded as skipped CellOutcomes and
// never surface as errors.
var (
	ErrImageLoad      = errors.New("image load failed")
	ErrTableDetection = errors.New("table detection failed")
	ErrCellExtraction = errors.New("cell extraction failed")
	ErrOCRProcessing  = errors.New("ocr processing failed")
	ErrDataValidation = errors.New("data validation failed")
	ErrExport         = errors.New("export failed")
	ErrDateNotFound   = errors.New("date not found")
	ErrNoData         = errors.New("no attendance data loaded")
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
