package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kaiyuanzhang/attendance-ocr/dto"
	"github.com/kaiyuanzhang/attendance-ocr/service"
)

type AttendanceHandler struct {
	extractionService *service.ExtractionService
	exporter          *service.ReportExporter
	maxFileSize       int64
}

func NewAttendanceHandler(extractionService *service.ExtractionService, exporter *service.ReportExporter, maxFileSize int64) *AttendanceHandler {
	return &AttendanceHandler{
		extractionService: extractionService,
		exporter:          exporter,
		maxFileSize:       maxFileSize,
	}
}

// Extract handles POST /api/v1/attendance/extract. It accepts one
// uploaded screenshot (PNG/JPEG/GIF) or a PDF export; PDFs may carry an
// optional "password" form field.
func (h *AttendanceHandler) Extract(c *gin.Context) {
	log.Println("Received attendance extraction request")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "No file provided", err)
		return
	}
	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		h.sendError(c, http.StatusRequestEntityTooLarge, "File too large", nil)
		return
	}

	var monthly *dto.MonthlyAttendance
	if strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		file, openErr := fileHeader.Open()
		if openErr != nil {
			h.sendError(c, http.StatusBadRequest, "Failed to read uploaded file", openErr)
			return
		}
		pdfData, readErr := io.ReadAll(file)
		file.Close()
		if readErr != nil {
			h.sendError(c, http.StatusBadRequest, "Failed to read uploaded file", readErr)
			return
		}
		monthly, err = h.extractionService.ExtractFromPDF(pdfData, c.PostForm("password"))
	} else {
		tempPath := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(fileHeader.Filename))
		if saveErr := c.SaveUploadedFile(fileHeader, tempPath); saveErr != nil {
			h.sendError(c, http.StatusInternalServerError, "Failed to save uploaded file", saveErr)
			return
		}
		defer os.Remove(tempPath)
		monthly, err = h.extractionService.ExtractFromFile(tempPath)
	}

	if err != nil {
		h.sendError(c, http.StatusUnprocessableEntity, "Failed to extract attendance data", err)
		return
	}
	if monthly == nil {
		h.sendError(c, http.StatusUnprocessableEntity, "No attendance data found in file", nil)
		return
	}

	log.Printf("Extraction completed for %s", monthly.YearMonth)
	c.JSON(http.StatusOK, dto.ExtractResponse{
		ExtractionID: uuid.NewString(),
		Attendance:   monthly,
		ProcessedAt:  time.Now().Format(time.RFC3339),
	})
}

// Get handles GET /api/v1/attendance.
func (h *AttendanceHandler) Get(c *gin.Context) {
	monthly, err := h.extractionService.Current()
	if err != nil {
		h.sendError(c, http.StatusNotFound, "No attendance data loaded", err)
		return
	}
	c.JSON(http.StatusOK, monthly)
}

// GetDay handles GET /api/v1/attendance/day/:date.
func (h *AttendanceHandler) GetDay(c *gin.Context) {
	day, err := h.extractionService.GetDay(c.Param("date"))
	if err != nil {
		h.sendError(c, h.lookupStatus(err), "Day not found", err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// UpdateDay handles PUT /api/v1/attendance/day/:date.
func (h *AttendanceHandler) UpdateDay(c *gin.Context) {
	var request dto.UpdateDayRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := request.Validate(); err != nil {
		h.sendError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	date := c.Param("date")
	if err := h.extractionService.UpdateDay(date, request.Field, request.Value); err != nil {
		h.sendError(c, h.lookupStatus(err), "Failed to update day", err)
		return
	}

	day, err := h.extractionService.GetDay(date)
	if err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to reload day", err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// ConfirmDay handles POST /api/v1/attendance/day/:date/confirm.
func (h *AttendanceHandler) ConfirmDay(c *gin.Context) {
	date := c.Param("date")
	if err := h.extractionService.ConfirmDay(date); err != nil {
		h.sendError(c, h.lookupStatus(err), "Failed to confirm day", err)
		return
	}

	day, err := h.extractionService.GetDay(date)
	if err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to reload day", err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// Summary handles GET /api/v1/attendance/summary.
func (h *AttendanceHandler) Summary(c *gin.Context) {
	monthly, err := h.extractionService.Current()
	if err != nil {
		h.sendError(c, http.StatusNotFound, "No attendance data loaded", err)
		return
	}
	c.JSON(http.StatusOK, dto.SummaryResponse{
		YearMonth: monthly.YearMonth,
		Summary:   h.exporter.GenerateReportSummary(monthly),
	})
}

// Export handles GET /api/v1/attendance/export?format=excel|csv|json and
// streams the written file back as an attachment.
func (h *AttendanceHandler) Export(c *gin.Context) {
	monthly, err := h.extractionService.Current()
	if err != nil {
		h.sendError(c, http.StatusNotFound, "No attendance data loaded", err)
		return
	}

	format := c.DefaultQuery("format", "excel")
	path, err := h.exporter.Export(monthly, format)
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "Failed to export attendance data", err)
		return
	}

	log.Printf("Serving export %s", path)
	c.FileAttachment(path, filepath.Base(path))
}

func (h *AttendanceHandler) lookupStatus(err error) int {
	switch {
	case errors.Is(err, dto.ErrNoData), errors.Is(err, dto.ErrDateNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// sendError sends a structured error response
func (h *AttendanceHandler) sendError(c *gin.Context, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = err.Error()
		log.Printf("Error: %s - %v", message, err)
	}

	c.JSON(statusCode, dto.ErrorResponse{
		Error:   "ATTENDANCE_FAILED",
		Message: errorMsg,
		Code:    statusCode,
	})
}
