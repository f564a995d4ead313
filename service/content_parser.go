package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaiyuanzhang/attendance-ocr/dto"
	"github.com/kaiyuanzhang/attendance-ocr/utils"
)

// yearMonthPatterns is the header pattern priority list. The first
// pattern that matches with a plausible year and month wins, so order
// matters: the explicit 年/月 forms outrank the separator forms.
var yearMonthPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})年(\d{1,2})月`),
	regexp.MustCompile(`(\d{4})年0?(\d{1,2})月`),
	regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月`),
	regexp.MustCompile(`(\d{4})-(\d{1,2})`),
	regexp.MustCompile(`(\d{4})\.(\d{1,2})`),
	regexp.MustCompile(`(\d{4})/(\d{1,2})`),
}

// compactYearMonthPattern is the last-resort "202509" form, used only by
// the whole-image fallback where the looser shape is acceptable.
var compactYearMonthPattern = regexp.MustCompile(`(20\d{2})(0[1-9]|1[0-2])`)

var (
	dayPattern  = regexp.MustCompile(`(\d{1,2})日?`)
	timePattern = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

// weekdayKeywords maps recognized weekday spellings to the canonical
// name. 周天/星期天 are spoken-language synonyms for Sunday.
var weekdayKeywords = []struct {
	pattern *regexp.Regexp
	name    string
}{
	{regexp.MustCompile(`周日|星期日|周天|星期天`), "周日"},
	{regexp.MustCompile(`周一|星期一`), "周一"},
	{regexp.MustCompile(`周二|星期二`), "周二"},
	{regexp.MustCompile(`周三|星期三`), "周三"},
	{regexp.MustCompile(`周四|星期四`), "周四"},
	{regexp.MustCompile(`周五|星期五`), "周五"},
	{regexp.MustCompile(`周六|星期六`), "周六"},
}

// headerFragmentKeywords tag first-row/first-column cells that look like
// part of the table caption even though no year-month was matched.
var headerFragmentKeywords = []string{"月", "年", "考勤", "打卡", "出勤"}

// ContentParser turns raw per-cell text fragments and detected markers
// into field candidates.
type ContentParser struct{}

// NewContentParser creates a parser.
func NewContentParser() *ContentParser {
	return &ContentParser{}
}

// ParseCell classifies one cell. It returns nil when the cell carries
// nothing recognizable.
func (cp *ContentParser) ParseCell(texts []string, dots []dto.Marker, row, col int) *dto.FieldCandidate {
	combined := utils.CleanOCRText(strings.Join(texts, " "))
	if combined == "" && len(dots) == 0 {
		return nil
	}

	if header := MatchYearMonth(combined); header != nil {
		return &dto.FieldCandidate{Kind: dto.CandidateHeader, Header: header}
	}

	if daily := cp.parseDaily(combined, dots, row, col); daily != nil {
		return &dto.FieldCandidate{Kind: dto.CandidateDaily, Daily: daily}
	}

	// A caption-looking cell on the table edge is kept as a raw fragment
	// so the fallback header extraction can use it.
	if (row == 0 || col == 0) && containsAny(combined, headerFragmentKeywords) {
		return &dto.FieldCandidate{Kind: dto.CandidateFragment, FragmentText: combined}
	}

	return nil
}

// MatchYearMonth tries the header patterns in priority order and accepts
// the first match with year in [2020,2030] and month in [1,12]. The
// window rejects stray large numbers that happen to look like a year.
func MatchYearMonth(text string) *dto.HeaderCandidate {
	for _, pattern := range yearMonthPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		year, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		month, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if year >= 2020 && year <= 2030 && month >= 1 && month <= 12 {
			return &dto.HeaderCandidate{Year: year, Month: month}
		}
	}
	return nil
}

// MatchYearMonthLoose additionally tries the compact 6-digit form. Used
// for the escalating whole-image fallback only.
func MatchYearMonthLoose(text string) *dto.HeaderCandidate {
	if header := MatchYearMonth(text); header != nil {
		return header
	}
	if m := compactYearMonthPattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if year >= 2020 && year <= 2030 {
			return &dto.HeaderCandidate{Year: year, Month: month}
		}
	}
	return nil
}

func (cp *ContentParser) parseDaily(text string, dots []dto.Marker, row, col int) *dto.DailyCandidate {
	dayMatch := dayPattern.FindStringSubmatch(text)
	if dayMatch == nil {
		return nil
	}
	day, err := strconv.Atoi(dayMatch[1])
	if err != nil || day < 1 || day > 31 {
		return nil
	}

	clockIn, clockOut := extractTimes(text)
	inStatus, outStatus := statusFromDots(dots)

	return &dto.DailyCandidate{
		Day:            day,
		Weekday:        extractWeekday(text),
		ClockInTime:    clockIn,
		ClockOutTime:   clockOut,
		ClockInStatus:  inStatus,
		ClockOutStatus: outStatus,
		Row:            row,
		Col:            col,
	}
}

func extractWeekday(text string) string {
	for _, entry := range weekdayKeywords {
		if entry.pattern.MatchString(text) {
			return entry.name
		}
	}
	return ""
}

// extractTimes pulls up to two HH:MM tokens out of the fragment: the
// first is clock-in, the second clock-out, missing ones stay empty.
func extractTimes(text string) (clockIn, clockOut string) {
	matches := timePattern.FindAllStringSubmatch(text, -1)
	if len(matches) >= 1 {
		hour, _ := strconv.Atoi(matches[0][1])
		clockIn = fmt.Sprintf("%02d:%s", hour, matches[0][2])
	}
	if len(matches) >= 2 {
		hour, _ := strconv.Atoi(matches[1][1])
		clockOut = fmt.Sprintf("%02d:%s", hour, matches[1][2])
	}
	return clockIn, clockOut
}

// statusFromDots derives the two statuses from the marker counts. The
// mapping is asymmetric on purpose: a lone green dot proves clock-in
// only, and clock-out stays NotClocked unless a gray dot testifies
// otherwise.
func statusFromDots(dots []dto.Marker) (clockIn, clockOut dto.ClockStatus) {
	clockIn, clockOut = dto.StatusNotClocked, dto.StatusNotClocked

	var green, gray int
	for _, dot := range dots {
		switch dot.Color {
		case dto.MarkerGreen:
			green++
		case dto.MarkerGray:
			gray++
		}
	}

	switch {
	case green >= 2:
		clockIn = dto.StatusNormal
		clockOut = dto.StatusNormal
	case green == 1:
		clockIn = dto.StatusNormal
		if gray >= 1 {
			clockOut = dto.StatusAbnormal
		}
	case gray >= 1:
		clockIn = dto.StatusAbnormal
		if gray >= 2 {
			clockOut = dto.StatusAbnormal
		}
	}

	return clockIn, clockOut
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
