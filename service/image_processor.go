package service

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"math"
	"os"
	"sort"

	"github.com/makiuchi-d/gozxing"
	xdraw "golang.org/x/image/draw"

	"github.com/kaiyuanzhang/attendance-ocr/config"
	"github.com/kaiyuanzhang/attendance-ocr/dto"
)

// Cell crops smaller than this on either side are upscaled before OCR.
const minOCRCellSize = 40

// BinaryImage is a preprocessed bitmap where true marks foreground.
type BinaryImage struct {
	Width  int
	Height int
	pix    []bool
}

// NewBinaryImage allocates an all-background bitmap.
func NewBinaryImage(width, height int) *BinaryImage {
	return &BinaryImage{Width: width, Height: height, pix: make([]bool, width*height)}
}

// At reports whether (x, y) is foreground; out-of-bounds is background.
func (b *BinaryImage) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	return b.pix[y*b.Width+x]
}

// Set marks (x, y) as foreground or background.
func (b *BinaryImage) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.pix[y*b.Width+x] = v
}

// ImageProcessor performs image loading, preprocessing, table cell
// detection and colored dot detection.
type ImageProcessor struct {
	cfg config.PipelineConfig
}

// NewImageProcessor creates a processor with the given tunables.
func NewImageProcessor(cfg config.PipelineConfig) *ImageProcessor {
	return &ImageProcessor{cfg: cfg}
}

// LoadImage decodes the image at path. Missing, empty or undecodable
// files fail with ErrImageLoad.
func (p *ImageProcessor) LoadImage(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dto.ErrImageLoad, path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", dto.ErrImageLoad, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dto.ErrImageLoad, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dto.ErrImageLoad, path, err)
	}

	bounds := img.Bounds()
	log.Printf("Loaded image %s (%dx%d, %d bytes)", path, bounds.Dx(), bounds.Dy(), info.Size())
	return img, nil
}

// Preprocess runs grayscale, 5x5 Gaussian blur, hybrid binarization and a
// 3x3 morphological close, yielding the binary table image.
func (p *ImageProcessor) Preprocess(img image.Image) (*BinaryImage, error) {
	gray := toGray(img)
	blurred := gaussianBlur5(gray)

	bmp, err := gozxing.NewBinaryBitmapFromImage(blurred)
	if err != nil {
		return nil, fmt.Errorf("%w: binarization: %v", dto.ErrTableDetection, err)
	}
	matrix, err := bmp.GetBlackMatrix()
	if err != nil {
		return nil, fmt.Errorf("%w: binarization: %v", dto.ErrTableDetection, err)
	}

	bin := NewBinaryImage(matrix.GetWidth(), matrix.GetHeight())
	for y := 0; y < bin.Height; y++ {
		for x := 0; x < bin.Width; x++ {
			bin.Set(x, y, matrix.Get(x, y))
		}
	}

	return morphClose3(bin), nil
}

// DetectTableCells finds external contours of the binary image, keeps the
// bounding boxes whose area passes the minimum, and assigns row/column
// indices by clustering. An image with no contours at all fails with
// ErrTableDetection.
func (p *ImageProcessor) DetectTableCells(bin *BinaryImage) ([]dto.CellGeometry, error) {
	components := findComponents(bin)
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: no contours found", dto.ErrTableDetection)
	}

	var cells []dto.CellGeometry
	for _, comp := range components {
		if comp.area < p.cfg.MinCellArea {
			continue
		}
		cells = append(cells, dto.CellGeometry{
			X:      comp.minX,
			Y:      comp.minY,
			Width:  comp.maxX - comp.minX + 1,
			Height: comp.maxY - comp.minY + 1,
			Row:    -1,
			Col:    -1,
		})
	}

	assignCellPositions(cells)

	log.Printf("Detected %d table cells", len(cells))
	return cells, nil
}

// assignCellPositions clusters cells into rows and assigns row/col
// indices. The clustering is deliberately greedy and order-dependent:
// cells are sorted by y, the first member of each row pins the row's
// vertical tolerance to half its own height, and a cell joins the row
// when its y-distance to the row's last member is below that tolerance.
func assignCellPositions(cells []dto.CellGeometry) {
	if len(cells) == 0 {
		return
	}

	sort.SliceStable(cells, func(i, j int) bool { return cells[i].Y < cells[j].Y })

	var rows [][]int // indices into cells
	current := []int{0}
	threshold := float64(cells[0].Height) * 0.5

	for i := 1; i < len(cells); i++ {
		last := current[len(current)-1]
		if math.Abs(float64(cells[i].Y-cells[last].Y)) < threshold {
			current = append(current, i)
		} else {
			rows = append(rows, current)
			current = []int{i}
			threshold = float64(cells[i].Height) * 0.5
		}
	}
	rows = append(rows, current)

	rowLens := make([]int, 0, len(rows))
	for rowIdx, row := range rows {
		sort.SliceStable(row, func(a, b int) bool { return cells[row[a]].X < cells[row[b]].X })
		for colIdx, cellIdx := range row {
			cells[cellIdx].Row = rowIdx
			cells[cellIdx].Col = colIdx
		}
		rowLens = append(rowLens, len(row))
	}

	log.Printf("Assigned %d rows, cells per row: %v", len(rows), rowLens)
}

// ExtractCellImage crops one cell from the original image. Geometry
// outside the image bounds fails with ErrCellExtraction. Small crops are
// upscaled so the recognizer gets enough pixels to work with.
func (p *ImageProcessor) ExtractCellImage(img image.Image, cell dto.CellGeometry) (image.Image, error) {
	bounds := img.Bounds()
	rect := image.Rect(
		bounds.Min.X+cell.X,
		bounds.Min.Y+cell.Y,
		bounds.Min.X+cell.X+cell.Width,
		bounds.Min.Y+cell.Y+cell.Height,
	)
	if cell.Width <= 0 || cell.Height <= 0 || !rect.In(bounds) {
		return nil, fmt.Errorf("%w: cell (%d,%d %dx%d) outside image %dx%d",
			dto.ErrCellExtraction, cell.X, cell.Y, cell.Width, cell.Height, bounds.Dx(), bounds.Dy())
	}

	crop := image.NewRGBA(image.Rect(0, 0, cell.Width, cell.Height))
	draw.Draw(crop, crop.Bounds(), img, rect.Min, draw.Src)

	if cell.Width < minOCRCellSize || cell.Height < minOCRCellSize {
		scaled := image.NewRGBA(image.Rect(0, 0, cell.Width*2, cell.Height*2))
		xdraw.BiLinear.Scale(scaled, scaled.Bounds(), crop, crop.Bounds(), xdraw.Over, nil)
		return scaled, nil
	}

	return crop, nil
}

// DetectDots finds the colored circular status markers inside a cell
// crop. Green and gray are two independent passes over disjoint HSV
// masks; blobs below the minimum area or the circularity threshold are
// discarded. No dots is a normal outcome, not an error.
func (p *ImageProcessor) DetectDots(cellImg image.Image) []dto.Marker {
	greenMask, grayMask := hsvMasks(cellImg)

	var dots []dto.Marker
	dots = append(dots, p.maskDots(greenMask, dto.MarkerGreen)...)
	dots = append(dots, p.maskDots(grayMask, dto.MarkerGray)...)
	return dots
}

func (p *ImageProcessor) maskDots(mask *BinaryImage, color dto.MarkerColor) []dto.Marker {
	var dots []dto.Marker
	for _, comp := range findComponents(mask) {
		if comp.area < p.cfg.MinDotArea {
			continue
		}

		perimeter := comp.perimeter(mask)
		if perimeter == 0 {
			continue
		}
		circularity := 4 * math.Pi * float64(comp.area) / (perimeter * perimeter)
		if circularity <= p.cfg.CircularityThreshold {
			continue
		}

		cx, cy, radius := comp.enclosingCircle()
		dots = append(dots, dto.Marker{
			X:      cx,
			Y:      cy,
			Radius: radius,
			Color:  color,
		})
	}
	return dots
}

// hsvMasks splits a cell crop into the green-dot and gray-dot masks.
// Ranges follow the OpenCV HSV scale (H in [0,180), S and V in [0,255]):
// green is H 35-85 with saturated, bright pixels; gray is low saturation
// at mid-high value. The saturation cut keeps the two masks disjoint.
func hsvMasks(img image.Image) (green, gray *BinaryImage) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	green = NewBinaryImage(w, h)
	gray = NewBinaryImage(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			hue, sat, val := rgbToHSV(uint8(r>>8), uint8(g>>8), uint8(b>>8))

			if hue >= 35 && hue <= 85 && sat >= 50 && val >= 50 {
				green.Set(x, y, true)
			} else if sat < 50 && val >= 50 && val <= 200 {
				gray.Set(x, y, true)
			}
		}
	}
	return green, gray
}

// rgbToHSV converts to the OpenCV scale: H in [0,180), S,V in [0,255].
func rgbToHSV(r, g, b uint8) (hue, sat, val int) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxV := math.Max(rf, math.Max(gf, bf))
	minV := math.Min(rf, math.Min(gf, bf))
	delta := maxV - minV

	val = int(maxV)
	if maxV > 0 {
		sat = int(delta / maxV * 255)
	}

	if delta == 0 {
		return 0, sat, val
	}

	var h float64
	switch maxV {
	case rf:
		h = 60 * (gf - bf) / delta
	case gf:
		h = 120 + 60*(bf-rf)/delta
	default:
		h = 240 + 60*(rf-gf)/delta
	}
	if h < 0 {
		h += 360
	}
	return int(h / 2), sat, val
}

// component is one external contour: a 4-connected foreground region.
type component struct {
	area                   int
	minX, minY, maxX, maxY int
	pixels                 []image.Point
}

// findComponents labels 4-connected foreground regions.
func findComponents(bin *BinaryImage) []component {
	visited := make([]bool, bin.Width*bin.Height)
	var comps []component

	for y := 0; y < bin.Height; y++ {
		for x := 0; x < bin.Width; x++ {
			idx := y*bin.Width + x
			if visited[idx] || !bin.pix[idx] {
				continue
			}

			comp := component{minX: x, minY: y, maxX: x, maxY: y}
			queue := []image.Point{{X: x, Y: y}}
			visited[idx] = true

			for len(queue) > 0 {
				pt := queue[0]
				queue = queue[1:]

				comp.area++
				comp.pixels = append(comp.pixels, pt)
				if pt.X < comp.minX {
					comp.minX = pt.X
				}
				if pt.X > comp.maxX {
					comp.maxX = pt.X
				}
				if pt.Y < comp.minY {
					comp.minY = pt.Y
				}
				if pt.Y > comp.maxY {
					comp.maxY = pt.Y
				}

				for _, d := range [4]image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nx, ny := pt.X+d.X, pt.Y+d.Y
					if nx < 0 || ny < 0 || nx >= bin.Width || ny >= bin.Height {
						continue
					}
					nidx := ny*bin.Width + nx
					if !visited[nidx] && bin.pix[nidx] {
						visited[nidx] = true
						queue = append(queue, image.Point{X: nx, Y: ny})
					}
				}
			}

			comps = append(comps, comp)
		}
	}
	return comps
}

// perimeter counts component pixels bordering the background.
func (c *component) perimeter(bin *BinaryImage) float64 {
	count := 0
	for _, pt := range c.pixels {
		if !bin.At(pt.X+1, pt.Y) || !bin.At(pt.X-1, pt.Y) || !bin.At(pt.X, pt.Y+1) || !bin.At(pt.X, pt.Y-1) {
			count++
		}
	}
	return float64(count)
}

// enclosingCircle approximates the minimal enclosing circle by the
// centroid and the farthest member pixel.
func (c *component) enclosingCircle() (cx, cy, radius int) {
	var sumX, sumY int
	for _, pt := range c.pixels {
		sumX += pt.X
		sumY += pt.Y
	}
	fx := float64(sumX) / float64(c.area)
	fy := float64(sumY) / float64(c.area)

	var maxDist float64
	for _, pt := range c.pixels {
		d := math.Hypot(float64(pt.X)-fx, float64(pt.Y)-fy)
		if d > maxDist {
			maxDist = d
		}
	}
	return int(fx), int(fy), int(math.Ceil(maxDist))
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

// gaussianBlur5 applies a separable 5x5 Gaussian kernel (1 4 6 4 1)/16.
func gaussianBlur5(src *image.Gray) *image.Gray {
	kernel := [5]int{1, 4, 6, 4, 1}
	w, h := src.Rect.Dx(), src.Rect.Dy()

	tmp := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, weight int
			for k := -2; k <= 2; k++ {
				xx := x + k
				if xx < 0 || xx >= w {
					continue
				}
				kw := kernel[k+2]
				sum += int(src.GrayAt(src.Rect.Min.X+xx, src.Rect.Min.Y+y).Y) * kw
				weight += kw
			}
			tmp.SetGray(x, y, grayValue(sum, weight))
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, weight int
			for k := -2; k <= 2; k++ {
				yy := y + k
				if yy < 0 || yy >= h {
					continue
				}
				kw := kernel[k+2]
				sum += int(tmp.GrayAt(x, yy).Y) * kw
				weight += kw
			}
			dst.SetGray(x, y, grayValue(sum, weight))
		}
	}
	return dst
}

func grayValue(sum, weight int) color.Gray {
	return color.Gray{Y: uint8(sum / weight)}
}

// morphClose3 is a 3x3 dilation followed by a 3x3 erosion, sealing small
// gaps in the detected table structure.
func morphClose3(bin *BinaryImage) *BinaryImage {
	dilated := NewBinaryImage(bin.Width, bin.Height)
	for y := 0; y < bin.Height; y++ {
		for x := 0; x < bin.Width; x++ {
			if anyNeighbor(bin, x, y) {
				dilated.Set(x, y, true)
			}
		}
	}

	closed := NewBinaryImage(bin.Width, bin.Height)
	for y := 0; y < bin.Height; y++ {
		for x := 0; x < bin.Width; x++ {
			if allNeighbors(dilated, x, y) {
				closed.Set(x, y, true)
			}
		}
	}
	return closed
}

func anyNeighbor(bin *BinaryImage, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if bin.At(x+dx, y+dy) {
				return true
			}
		}
	}
	return false
}

func allNeighbors(bin *BinaryImage, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			xx, yy := x+dx, y+dy
			// border pixels keep their dilated value instead of eroding away
			if xx < 0 || yy < 0 || xx >= bin.Width || yy >= bin.Height {
				continue
			}
			if !bin.At(xx, yy) {
				return false
			}
		}
	}
	return bin.At(x, y)
}
