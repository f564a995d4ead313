package service

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kaiyuanzhang/attendance-ocr/dto"
)

// PDFProcessor pulls attendance screenshots out of uploaded PDFs. Some
// attendance apps export the monthly grid as an embedded page image;
// the text layer, when present, often carries the year-month caption.
type PDFProcessor interface {
	ExtractText(pdfData []byte, password string) (string, error)
	ExtractImages(pdfData []byte, password string) ([]image.Image, error)
}

type pdfProcessor struct{}

func NewPDFProcessor() PDFProcessor {
	return &pdfProcessor{}
}

// ExtractText concatenates the text layer of every page. Encrypted
// documents are not supported here; the image path handles passwords.
func (p *pdfProcessor) ExtractText(pdfData []byte, password string) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrImageLoad, err)
	}

	var textBuilder bytes.Buffer
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		rows, _ := page.GetTextByRow()
		for _, row := range rows {
			for _, word := range row.Content {
				textBuilder.WriteString(word.S)
			}
			textBuilder.WriteString("\n")
		}
	}
	return textBuilder.String(), nil
}

// ExtractImages decodes every embedded image, largest first, so the
// caller can try the full-page screenshot before any icons or logos.
func (p *pdfProcessor) ExtractImages(pdfData []byte, password string) ([]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "attendance_pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempFile, err := os.CreateTemp("", "attendance-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(pdfData); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("failed to write pdf data: %w", err)
	}
	tempFile.Close()

	conf := model.NewDefaultConfiguration()
	if password != "" {
		conf.UserPW = password
	}

	if err := api.ExtractImagesFile(tempFile.Name(), tempDir, nil, conf); err != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrImageLoad, err)
	}

	files, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp dir: %w", err)
	}

	var images []image.Image
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		imgFile, err := os.Open(filepath.Join(tempDir, file.Name()))
		if err != nil {
			continue
		}

		img, _, err := image.Decode(imgFile)
		imgFile.Close()
		if err != nil {
			continue
		}
		images = append(images, img)
	}

	sort.SliceStable(images, func(i, j int) bool {
		bi, bj := images[i].Bounds(), images[j].Bounds()
		return bi.Dx()*bi.Dy() > bj.Dx()*bj.Dy()
	})

	return images, nil
}
