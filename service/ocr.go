package service

import (
	"fmt"
	"image"
	"log"

	"github.com/kaiyuanzhang/attendance-ocr/dto"
)

// TextRecognizer is the external text-recognition collaborator. It may
// fail or return nothing; callers must tolerate both.
type TextRecognizer interface {
	Recognize(img image.Image) ([]string, error)
}

// RecognizerChain tries each recognizer in order and returns the first
// non-empty result. PaddleOCR first, Tesseract as fallback, mirroring
// the engines' accuracy on mixed Chinese/digit screenshots.
type RecognizerChain struct {
	recognizers []TextRecognizer
}

// NewRecognizerChain builds a chain over the given recognizers.
func NewRecognizerChain(recognizers ...TextRecognizer) *RecognizerChain {
	return &RecognizerChain{recognizers: recognizers}
}

// Recognize returns the first non-empty recognition result. When every
// engine fails, the last error is reported wrapped as an OCR error.
func (c *RecognizerChain) Recognize(img image.Image) ([]string, error) {
	var lastErr error
	for _, rec := range c.recognizers {
		texts, err := rec.Recognize(img)
		if err != nil {
			log.Printf("Recognizer failed, trying next: %v", err)
			lastErr = err
			continue
		}
		if len(texts) > 0 {
			return texts, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrOCRProcessing, lastErr)
	}
	return nil, nil
}
