package client

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractClient is the fallback text recognizer, used when PaddleOCR is
// unreachable or returns nothing usable. Attendance screenshots mix
// Chinese and digits, so both chi_sim and eng are loaded.
type TesseractClient struct {
	dataPath string
}

// NewTesseractClient creates a new Tesseract-backed recognizer.
func NewTesseractClient(dataPath string) *TesseractClient {
	return &TesseractClient{
		dataPath: dataPath,
	}
}

// Recognize extracts text fragments from an image, one per non-empty line.
func (tc *TesseractClient) Recognize(img image.Image) ([]string, error) {
	tempFile, err := saveTempImage(img)
	if err != nil {
		return nil, fmt.Errorf("failed to save temp image: %w", err)
	}
	defer os.Remove(tempFile)

	return tc.extractLines(tempFile)
}

func (tc *TesseractClient) extractLines(filePath string) ([]string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	client.SetTessdataPrefix(tc.dataPath)

	if err := client.SetLanguage("chi_sim", "eng"); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetImage(filePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Close performs cleanup
func (tc *TesseractClient) Close() {
	log.Println("Tesseract client closed")
}

// saveTempImage saves an image.Image to a temporary PNG file.
func saveTempImage(img image.Image) (string, error) {
	tempFile, err := os.CreateTemp("", "attendance-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tempFile.Close()

	if err := png.Encode(tempFile, img); err != nil {
		os.Remove(tempFile.Name())
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	return tempFile.Name(), nil
}
