package dto

// CellGeometry is the bounding rectangle of one detected table cell plus
// its grid coordinates. Row and Col stay -1 until clustering assigns them.
type CellGeometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
	Row    int `json:"row"`
	Col    int `json:"col"`
}

// Area returns the rectangle area in pixels.
func (c CellGeometry) Area() int {
	return c.Width * c.Height
}

// MarkerColor is the detected dot color category.
type MarkerColor string

const (
	MarkerGreen MarkerColor = "green"
	MarkerGray  MarkerColor = "gray"
)

// Marker is a small circular status indicator found inside one cell.
// Coordinates are local to the cell crop.
type Marker struct {
	X      int         `json:"x"`
	Y      int         `json:"y"`
	Radius int         `json:"radius"`
	Color  MarkerColor `json:"color"`
}

// CandidateKind tags a FieldCandidate variant.
type CandidateKind string

const (
	CandidateHeader   CandidateKind = "header"
	CandidateDaily    CandidateKind = "daily"
	CandidateFragment CandidateKind = "fragment"
)

// FieldCandidate is the raw, unvalidated result of parsing one cell.
// Exactly one variant is populated according to Kind: Header for a
// year-month caption, Daily for a day entry, FragmentText for an
// unclassified header-area fragment kept for fallback extraction.
type FieldCandidate struct {
	Kind         CandidateKind
	Header       *HeaderCandidate
	Daily        *DailyCandidate
	FragmentText string
}

// HeaderCandidate is an extracted year-month caption.
type HeaderCandidate struct {
	Year  int
	Month int
}

// DailyCandidate is one cell's extracted day entry before sanitizing.
// Any field other than Day may be empty or unknown.
type DailyCandidate struct {
	Day            int
	Weekday        string
	ClockInTime    string
	ClockOutTime   string
	ClockInStatus  ClockStatus
	ClockOutStatus ClockStatus
	Row            int
	Col            int
}

// CellOutcome is the per-cell processing result. A cell either produced a
// candidate or was skipped for a recorded reason; a skip never aborts the
// image.
type CellOutcome struct {
	Cell       CellGeometry
	Candidate  *FieldCandidate
	Skipped    bool
	SkipReason string
}
