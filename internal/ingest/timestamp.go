package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// timestampLayouts are tried in order. Single-digit month, day and hour
// fields also accept two digits.
var timestampLayouts = []string{
	"2006/1/2 15:04:05",
	"2006-1-2 15:04:05",
	"2006/1/2 PM 3:04:05",
	"2006/1/2 15:04",
	"2006-1-2 15:04",
	"2006/1/2 PM 3:04",
	"2006/1/2",
	"2006-1-2",
	"1/2/2006 15:04:05",
	"1/2/06 15:04",
}

// Excel serial numbers outside this range are not dates.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465 // 9999-12-31
)

var meridiem = strings.NewReplacer("上午", "AM", "下午", "PM")

// ParseTimestamp reads a survey submission time. Zone-less values are read
// in loc. ok is false when nothing matched.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}

	local := meridiem.Replace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, local, loc); err == nil {
			return t.UTC(), true
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minExcelSerial && f < maxExcelSerial {
		wall, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, false
		}
		wall = wall.Round(time.Second)
		t := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
		return t.UTC(), true
	}
	return time.Time{}, false
}
