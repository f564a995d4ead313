package service

import (
	"fmt"
	"image"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/kaiyuanzhang/attendance-ocr/config"
	"github.com/kaiyuanzhang/attendance-ocr/dto"
)

// ExtractionService runs the full pipeline: preprocess, detect the cell
// grid, recognize and classify every cell, sanitize, and assemble the
// month. It also keeps the most recently extracted month so the HTTP
// layer can read and edit it.
type ExtractionService struct {
	processor  *ImageProcessor
	parser     *ContentParser
	sanitizer  *DataSanitizer
	assembler  *AttendanceAssembler
	recognizer TextRecognizer
	pdfs       PDFProcessor
	maxCells   int

	mu      sync.RWMutex
	current *dto.MonthlyAttendance
}

// NewExtractionService wires the pipeline stages together.
func NewExtractionService(
	processor *ImageProcessor,
	parser *ContentParser,
	sanitizer *DataSanitizer,
	assembler *AttendanceAssembler,
	recognizer TextRecognizer,
	pdfs PDFProcessor,
	cfg config.PipelineConfig,
) *ExtractionService {
	return &ExtractionService{
		processor:  processor,
		parser:     parser,
		sanitizer:  sanitizer,
		assembler:  assembler,
		recognizer: recognizer,
		pdfs:       pdfs,
		maxCells:   cfg.MaxCells,
	}
}

// ExtractFromFile loads an image from disk and extracts its attendance
// grid.
func (s *ExtractionService) ExtractFromFile(path string) (*dto.MonthlyAttendance, error) {
	img, err := s.processor.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return s.Extract(img)
}

// ExtractFromPDF runs the pipeline over the images embedded in a PDF
// export, largest image first. The PDF text layer, when it carries a
// year-month caption, backs up the in-grid header.
func (s *ExtractionService) ExtractFromPDF(pdfData []byte, password string) (*dto.MonthlyAttendance, error) {
	images, err := s.pdfs.ExtractImages(pdfData, password)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		log.Printf("PDF contains no embedded images")
		return nil, nil
	}

	var hint *dto.HeaderCandidate
	if text, err := s.pdfs.ExtractText(pdfData, password); err == nil {
		hint = MatchYearMonthLoose(text)
	}

	for _, img := range images {
		monthly, err := s.extract(img, hint)
		if err != nil {
			log.Printf("PDF image yielded no attendance grid: %v", err)
			continue
		}
		if monthly != nil {
			return monthly, nil
		}
	}
	return nil, nil
}

// Extract runs the pipeline on an already-decoded image. A screenshot
// that yields no usable cells or no valid daily records is not an
// error: the result is (nil, nil) and the caller reports "no data".
// Individual cell failures never abort the run.
func (s *ExtractionService) Extract(img image.Image) (*dto.MonthlyAttendance, error) {
	return s.extract(img, nil)
}

func (s *ExtractionService) extract(img image.Image, hint *dto.HeaderCandidate) (*dto.MonthlyAttendance, error) {
	bin, err := s.processor.Preprocess(img)
	if err != nil {
		return nil, err
	}

	cells, err := s.processor.DetectTableCells(bin)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		log.Printf("No cells passed the area filter, nothing to extract")
		return nil, nil
	}

	// Row-major order so "last write wins" resolves duplicate day cells
	// the same way a human reads the grid.
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
	if s.maxCells > 0 && len(cells) > s.maxCells {
		log.Printf("Capping cell count %d to %d", len(cells), s.maxCells)
		cells = cells[:s.maxCells]
	}

	outcomes := s.collectOutcomes(img, cells)

	var (
		header    *dto.HeaderCandidate
		records   []dto.DailyCandidate
		fragments []string
		skipped   int
	)
	for _, outcome := range outcomes {
		if outcome.Skipped {
			skipped++
			log.Printf("Skipped cell row=%d col=%d: %s", outcome.Cell.Row, outcome.Cell.Col, outcome.SkipReason)
			continue
		}
		if outcome.Candidate == nil {
			continue
		}
		switch outcome.Candidate.Kind {
		case dto.CandidateHeader:
			if header == nil {
				header = outcome.Candidate.Header
			}
		case dto.CandidateDaily:
			records = append(records, *outcome.Candidate.Daily)
		case dto.CandidateFragment:
			fragments = append(fragments, outcome.Candidate.FragmentText)
		}
	}
	log.Printf("Processed %d cells: %d daily, %d fragments, %d skipped, header=%v",
		len(outcomes), len(records), len(fragments), skipped, header != nil)

	if header == nil {
		header = hint
	}
	if header == nil {
		header = s.fallbackHeader(img, fragments)
	}

	cleaned := s.sanitizer.Sanitize(records)
	if len(cleaned) == 0 {
		log.Printf("No valid daily records survived sanitization")
		return nil, nil
	}

	yearMonth := s.assembler.ResolveYearMonth(header, cleaned)
	monthly, err := s.assembler.Assemble(yearMonth, cleaned)
	if err != nil {
		return nil, err
	}

	// The caller gets its own object; the stored copy is the one the
	// editing API mutates under the lock.
	s.mu.Lock()
	s.current = monthly.Clone()
	s.mu.Unlock()
	return monthly, nil
}

// collectOutcomes runs the per-cell stage over every cell. A bad cell
// yields a skipped outcome, never an error.
func (s *ExtractionService) collectOutcomes(img image.Image, cells []dto.CellGeometry) []dto.CellOutcome {
	outcomes := make([]dto.CellOutcome, 0, len(cells))
	for _, cell := range cells {
		outcomes = append(outcomes, s.processCell(img, cell))
	}
	return outcomes
}

// processCell crops, recognizes and classifies one cell. A failed crop
// skips the cell; a failed recognition degrades to empty text because
// the colored dots may still carry status information.
func (s *ExtractionService) processCell(img image.Image, cell dto.CellGeometry) dto.CellOutcome {
	crop, err := s.processor.ExtractCellImage(img, cell)
	if err != nil {
		return dto.CellOutcome{Cell: cell, Skipped: true, SkipReason: err.Error()}
	}

	texts, err := s.recognizer.Recognize(crop)
	if err != nil {
		log.Printf("OCR failed for cell row=%d col=%d, continuing with dots only: %v", cell.Row, cell.Col, err)
		texts = nil
	}

	dots := s.processor.DetectDots(crop)
	candidate := s.parser.ParseCell(texts, dots, cell.Row, cell.Col)
	return dto.CellOutcome{Cell: cell, Candidate: candidate}
}

// fallbackHeader escalates when no cell yielded a year-month: first the
// retained caption fragments, then an OCR pass over the top-left region
// where captions usually sit, finally the whole image. The loose
// 6-digit pattern is only acceptable at this stage.
func (s *ExtractionService) fallbackHeader(img image.Image, fragments []string) *dto.HeaderCandidate {
	if len(fragments) > 0 {
		if header := MatchYearMonthLoose(strings.Join(fragments, " ")); header != nil {
			log.Printf("Year-month recovered from caption fragments: %04d-%02d", header.Year, header.Month)
			return header
		}
	}

	bounds := img.Bounds()
	region := dto.CellGeometry{
		X:      0,
		Y:      0,
		Width:  bounds.Dx() * 3 / 5,
		Height: bounds.Dy() / 4,
	}
	if header := s.recognizeRegion(img, region); header != nil {
		log.Printf("Year-month recovered from top-left region: %04d-%02d", header.Year, header.Month)
		return header
	}

	if texts, err := s.recognizer.Recognize(img); err == nil {
		if header := MatchYearMonthLoose(strings.Join(texts, " ")); header != nil {
			log.Printf("Year-month recovered from whole image: %04d-%02d", header.Year, header.Month)
			return header
		}
	}

	return nil
}

func (s *ExtractionService) recognizeRegion(img image.Image, region dto.CellGeometry) *dto.HeaderCandidate {
	crop, err := s.processor.ExtractCellImage(img, region)
	if err != nil {
		return nil
	}
	texts, err := s.recognizer.Recognize(crop)
	if err != nil {
		return nil
	}
	return MatchYearMonthLoose(strings.Join(texts, " "))
}

// Current returns a detached copy of the most recently extracted month.
// Handlers serialize the copy outside the lock, so the editing API can
// never race with a reader.
func (s *ExtractionService) Current() (*dto.MonthlyAttendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, dto.ErrNoData
	}
	return s.current.Clone(), nil
}

// GetDay returns a copy of one day of the current month.
func (s *ExtractionService) GetDay(date string) (*dto.DailyAttendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, dto.ErrNoData
	}
	day, err := s.current.GetDay(date)
	if err != nil {
		return nil, err
	}
	cp := *day
	return &cp, nil
}

// UpdateDay edits one field of one day in the current month and
// recomputes the statistics.
func (s *ExtractionService) UpdateDay(date, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return dto.ErrNoData
	}
	if _, err := s.current.GetDay(date); err != nil {
		return err
	}
	if !s.current.UpdateDay(date, field, value) {
		return fmt.Errorf("%w: field %q value %q", dto.ErrDataValidation, field, value)
	}
	return nil
}

// ConfirmDay marks one day of the current month as reviewed.
func (s *ExtractionService) ConfirmDay(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return dto.ErrNoData
	}
	if !s.current.ConfirmDay(date) {
		return fmt.Errorf("%w: %s", dto.ErrDateNotFound, date)
	}
	return nil
}
