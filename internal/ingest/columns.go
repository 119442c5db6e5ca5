package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xinlong-d2/signup-admin/internal/domain"
)

// Header texts of the survey export. A column is identified by its exact
// header, so columns may be reordered but not renamed.
const (
	ColActivity         = "以下活動請擇一"
	ColName             = "姓名"
	ColEmail            = "電子郵件"
	ColPhone            = "聯絡電話"
	ColGender           = "性別"
	ColAge              = "參與者年齡"
	ColLineID           = "Line ID（意者可留）"
	ColChildrenCount    = "小孩人數"
	ColResident         = "請問您是興隆社宅2區的住戶嗎？"
	ColHousingLocation  = "您是來自哪個臺北市社會住宅？"
	ColSportsExperience = "運動經歷幾年？"
	ColInjuryHistory    = "是否有受傷病史？（沒有請填無）"
	ColInfoSource       = "請問您從何處得知本次活動資訊？"
	ColSuggestions      = "針對活動，有什麼建議或想和主辦單位說的話嗎？請在這裡留言喔～謝謝您！"
	ColSubmittedAt      = "填答時間"
	ColDedupHash        = "雜湊值"
)

// ErrMissingField marks a row without one of the required cells.
var ErrMissingField = errors.New("missing required field")

var requiredColumns = []string{ColName, ColEmail, ColPhone, ColActivity}

// Columns maps header text to cell index.
type Columns map[string]int

// NewColumns indexes a header row. On repeated headers the first wins.
func NewColumns(header []string) Columns {
	c := make(Columns, len(header))
	for i, h := range header {
		if _, seen := c[h]; !seen {
			c[h] = i
		}
	}
	return c
}

// cell returns the value under header, or "" when the column or cell is absent.
func (c Columns) cell(cells []string, header string) string {
	i, ok := c[header]
	if !ok || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func (c Columns) text(cells []string, header string) string {
	return strings.TrimSpace(c.cell(cells, header))
}

// Row is one mapped survey response. Registration.RegistrantID is filled
// in by the pipeline.
type Row struct {
	Registrant   domain.Registrant
	Registration domain.Registration

	// TimeParsed is false when the submission time fell back to now.
	TimeParsed bool
}

// MapRow maps the cells of one data row. now is the processing time used
// when the submission time cannot be parsed; loc is the zone naive
// timestamps are read in.
func MapRow(cols Columns, cells []string, now time.Time, loc *time.Location) (Row, error) {
	var missing []string
	for _, h := range requiredColumns {
		if cols.text(cells, h) == "" {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return Row{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	// The resident answer is matched exactly as exported, no trimming.
	status := domain.ParseResidentStatus(cols.cell(cells, ColResident))
	submitted, ok := ParseTimestamp(cols.text(cells, ColSubmittedAt), loc)
	if !ok {
		submitted = now.UTC()
	}

	row := Row{
		Registrant: domain.Registrant{
			Name:            cols.text(cells, ColName),
			Email:           cols.text(cells, ColEmail),
			Phone:           cols.text(cells, ColPhone),
			Gender:          cols.text(cells, ColGender),
			Age:             cols.text(cells, ColAge),
			LineID:          cols.text(cells, ColLineID),
			ResidentStatus:  status,
			HousingLocation: cols.text(cells, ColHousingLocation),
			UpdatedAt:       submitted,
		},
		Registration: domain.Registration{
			ActivityName:     cols.text(cells, ColActivity),
			SubmittedAt:      submitted,
			Age:              cols.text(cells, ColAge),
			ChildrenCount:    cols.text(cells, ColChildrenCount),
			SportsExperience: cols.text(cells, ColSportsExperience),
			InjuryHistory:    cols.text(cells, ColInjuryHistory),
			InfoSource:       cols.text(cells, ColInfoSource),
			Suggestions:      cols.text(cells, ColSuggestions),
			ResidentStatus:   status,
			DedupHash:        cols.text(cells, ColDedupHash),
		},
		TimeParsed: ok,
	}
	return row, nil
}

// MissingColumns lists the required headers absent from a table. Every row
// of such a table will be skipped; callers may want to say so up front.
func MissingColumns(cols Columns) []string {
	var out []string
	for _, h := range requiredColumns {
		if _, ok := cols[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}
