package service

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiyuanzhang/attendance-ocr/config"
	"github.com/kaiyuanzhang/attendance-ocr/dto"
)

func testProcessor() *ImageProcessor {
	return NewImageProcessor(config.PipelineConfig{
		MinCellArea:          100,
		MinDotArea:           10,
		CircularityThreshold: 0.7,
		MaxCells:             100,
	})
}

func fillRect(bin *BinaryImage, x, y, w, h int) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			bin.Set(xx, yy, true)
		}
	}
}

func fillDisk(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	return img
}

func TestLoadImage(t *testing.T) {
	p := testProcessor()

	path := filepath.Join(t.TempDir(), "grid.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, whiteImage(10, 10)))
	require.NoError(t, f.Close())

	img, err := p.LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestLoadImageErrors(t *testing.T) {
	p := testProcessor()

	_, err := p.LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, dto.ErrImageLoad)

	empty := filepath.Join(t.TempDir(), "empty.png")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = p.LoadImage(empty)
	assert.ErrorIs(t, err, dto.ErrImageLoad)

	garbage := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	_, err = p.LoadImage(garbage)
	assert.ErrorIs(t, err, dto.ErrImageLoad)
}

func TestDetectTableCells(t *testing.T) {
	p := testProcessor()

	bin := NewBinaryImage(100, 60)
	fillRect(bin, 5, 5, 20, 10)  // row 0, col 0
	fillRect(bin, 40, 5, 20, 10) // row 0, col 1
	fillRect(bin, 5, 40, 20, 10) // row 1, col 0
	fillRect(bin, 70, 7, 3, 3)   // below MinCellArea, dropped

	cells, err := p.DetectTableCells(bin)
	require.NoError(t, err)
	require.Len(t, cells, 3)

	byPos := make(map[[2]int]dto.CellGeometry)
	for _, cell := range cells {
		byPos[[2]int{cell.Row, cell.Col}] = cell
	}

	assert.Equal(t, 5, byPos[[2]int{0, 0}].X)
	assert.Equal(t, 40, byPos[[2]int{0, 1}].X)
	assert.Equal(t, 40, byPos[[2]int{1, 0}].Y)
	assert.Equal(t, 20, byPos[[2]int{0, 0}].Width)
	assert.Equal(t, 10, byPos[[2]int{0, 0}].Height)
}

func TestDetectTableCellsEmptyImage(t *testing.T) {
	p := testProcessor()

	_, err := p.DetectTableCells(NewBinaryImage(50, 50))
	assert.ErrorIs(t, err, dto.ErrTableDetection)
}

func TestAssignCellPositionsGreedyRows(t *testing.T) {
	// The second cell is 4px lower but within half the first cell's
	// height, so it joins the first row.
	cells := []dto.CellGeometry{
		{X: 10, Y: 20, Width: 30, Height: 12},
		{X: 50, Y: 24, Width: 30, Height: 12},
		{X: 10, Y: 60, Width: 30, Height: 12},
	}

	assignCellPositions(cells)

	byY := make(map[int]dto.CellGeometry)
	for _, cell := range cells {
		byY[cell.Y] = cell
	}
	assert.Equal(t, 0, byY[20].Row)
	assert.Equal(t, 0, byY[20].Col)
	assert.Equal(t, 0, byY[24].Row)
	assert.Equal(t, 1, byY[24].Col)
	assert.Equal(t, 1, byY[60].Row)
	assert.Equal(t, 0, byY[60].Col)
}

func TestExtractCellImage(t *testing.T) {
	p := testProcessor()
	img := whiteImage(200, 200)

	crop, err := p.ExtractCellImage(img, dto.CellGeometry{X: 10, Y: 10, Width: 50, Height: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, crop.Bounds().Dx())

	// Small crops come back doubled for OCR.
	small, err := p.ExtractCellImage(img, dto.CellGeometry{X: 10, Y: 10, Width: 20, Height: 20})
	require.NoError(t, err)
	assert.Equal(t, 40, small.Bounds().Dx())
}

func TestExtractCellImageOutOfBounds(t *testing.T) {
	p := testProcessor()
	img := whiteImage(100, 100)

	_, err := p.ExtractCellImage(img, dto.CellGeometry{X: 90, Y: 90, Width: 50, Height: 50})
	assert.ErrorIs(t, err, dto.ErrCellExtraction)

	_, err = p.ExtractCellImage(img, dto.CellGeometry{X: 10, Y: 10, Width: 0, Height: 5})
	assert.ErrorIs(t, err, dto.ErrCellExtraction)
}

func TestDetectDots(t *testing.T) {
	p := testProcessor()

	img := whiteImage(60, 30)
	fillDisk(img, 15, 15, 8, color.RGBA{0, 200, 0, 255})    // green dot
	fillDisk(img, 45, 15, 8, color.RGBA{128, 128, 128, 255}) // gray dot

	dots := p.DetectDots(img)
	require.Len(t, dots, 2)

	colors := map[dto.MarkerColor]int{}
	for _, dot := range dots {
		colors[dot.Color]++
		assert.InDelta(t, 15, dot.Y, 1)
		assert.GreaterOrEqual(t, dot.Radius, 7)
	}
	assert.Equal(t, 1, colors[dto.MarkerGreen])
	assert.Equal(t, 1, colors[dto.MarkerGray])
}

func TestDetectDotsFiltersNoise(t *testing.T) {
	p := testProcessor()

	img := whiteImage(60, 30)
	fillDisk(img, 10, 10, 1, color.RGBA{0, 200, 0, 255}) // too small
	for x := 20; x < 50; x++ {                           // thin line, not circular
		img.SetRGBA(x, 25, color.RGBA{0, 200, 0, 255})
	}

	assert.Empty(t, p.DetectDots(img))
}

func TestDetectDotsEmptyCell(t *testing.T) {
	p := testProcessor()
	assert.Empty(t, p.DetectDots(whiteImage(40, 40)))
}
