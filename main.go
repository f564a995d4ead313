package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/kaiyuanzhang/attendance-ocr/calendar"
	"github.com/kaiyuanzhang/attendance-ocr/client"
	"github.com/kaiyuanzhang/attendance-ocr/config"
	"github.com/kaiyuanzhang/attendance-ocr/handler"
	"github.com/kaiyuanzhang/attendance-ocr/service"
)

func main() {
	// Initialize configuration
	cfg := config.LoadConfig()

	// Initialize OCR clients: PaddleOCR primary, Tesseract fallback
	paddleClient := client.NewPaddleClient(cfg.PaddleAPIURL, cfg.Pipeline.ConfidenceThreshold)
	tesseractClient := client.NewTesseractClient(cfg.TesseractDataPath)
	defer tesseractClient.Close()
	recognizer := service.NewRecognizerChain(paddleClient, tesseractClient)

	// Initialize workday calendar
	registry := calendar.NewHolidayRegistry(cfg.Pipeline.HolidayConfigPath)
	workdays := calendar.NewWorkdayCalendar(registry, cfg.Pipeline.RestWeekday)

	// Initialize pipeline stages
	processor := service.NewImageProcessor(cfg.Pipeline)
	parser := service.NewContentParser()
	sanitizer := service.NewDataSanitizer()
	assembler := service.NewAttendanceAssembler(workdays)
	pdfProcessor := service.NewPDFProcessor()

	extractionService := service.NewExtractionService(processor, parser, sanitizer, assembler, recognizer, pdfProcessor, cfg.Pipeline)
	exporter := service.NewReportExporter(cfg.Pipeline.ExportDir)

	// Initialize handler layer
	attendanceHandler := handler.NewAttendanceHandler(extractionService, exporter, cfg.MaxFileSize)
	holidayHandler := handler.NewHolidayHandler(registry)

	// Setup Gin router
	router := gin.Default()

	// Configure max multipart memory (32 MB)
	router.MaxMultipartMemory = 32 << 20

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Attendance OCR",
		})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		attendance := api.Group("/attendance")
		{
			attendance.POST("/extract", attendanceHandler.Extract)
			attendance.GET("", attendanceHandler.Get)
			attendance.GET("/summary", attendanceHandler.Summary)
			attendance.GET("/export", attendanceHandler.Export)
			attendance.GET("/day/:date", attendanceHandler.GetDay)
			attendance.PUT("/day/:date", attendanceHandler.UpdateDay)
			attendance.POST("/day/:date/confirm", attendanceHandler.ConfirmDay)
		}

		holidays := api.Group("/holidays")
		{
			holidays.POST("/reload", holidayHandler.Reload)
			holidays.POST("", holidayHandler.Add)
			holidays.DELETE("", holidayHandler.Remove)
		}
	}

	// Start server
	log.Printf("Starting Attendance OCR Service on port %s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
