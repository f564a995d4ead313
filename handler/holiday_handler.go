package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kaiyuanzhang/attendance-ocr/calendar"
	"github.com/kaiyuanzhang/attendance-ocr/dto"
)

type HolidayHandler struct {
	registry *calendar.HolidayRegistry
}

func NewHolidayHandler(registry *calendar.HolidayRegistry) *HolidayHandler {
	return &HolidayHandler{registry: registry}
}

// Reload handles POST /api/v1/holidays/reload. It re-reads the holiday
// configuration file and swaps it in atomically.
func (h *HolidayHandler) Reload(c *gin.Context) {
	h.registry.Reload()
	log.Println("Holiday configuration reloaded")
	c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
}

// Add handles POST /api/v1/holidays: registers one holiday or one
// override workday and persists the configuration.
func (h *HolidayHandler) Add(c *gin.Context) {
	var request dto.HolidayEntryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := request.Validate(); err != nil {
		h.sendError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	if request.Kind == "holiday" {
		h.registry.AddHoliday(request.Date)
	} else {
		h.registry.AddWorkdayOverride(request.Date)
	}
	if err := h.registry.Save(); err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to persist holiday configuration", err)
		return
	}

	log.Printf("Registered %s %s", request.Kind, request.Date)
	c.JSON(http.StatusOK, gin.H{"status": "added", "date": request.Date, "kind": request.Kind})
}

// Remove handles DELETE /api/v1/holidays.
func (h *HolidayHandler) Remove(c *gin.Context) {
	var request dto.HolidayEntryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := request.Validate(); err != nil {
		h.sendError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	if request.Kind == "holiday" {
		h.registry.RemoveHoliday(request.Date)
	} else {
		h.registry.RemoveWorkdayOverride(request.Date)
	}
	if err := h.registry.Save(); err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to persist holiday configuration", err)
		return
	}

	log.Printf("Removed %s %s", request.Kind, request.Date)
	c.JSON(http.StatusOK, gin.H{"status": "removed", "date": request.Date, "kind": request.Kind})
}

// sendError sends a structured error response
func (h *HolidayHandler) sendError(c *gin.Context, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = err.Error()
		log.Printf("Error: %s - %v", message, err)
	}

	c.JSON(statusCode, dto.ErrorResponse{
		Error:   "HOLIDAY_FAILED",
		Message: errorMsg,
		Code:    statusCode,
	})
}
