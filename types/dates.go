package types

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ISODate is the date layout used in notice keys and rendered reports.
const ISODate = "2006-01-02"

// Excel serial day numbers between 1954 and 2119 are accepted as dates.
const (
	MinExcelSerial = 20000
	MaxExcelSerial = 80000
)

// ExcelSerialDate decodes a spreadsheet serial day number such as "45672".
// It reports false for anything that is not a number in the accepted range.
func ExcelSerialDate(raw string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial < MinExcelSerial || serial > MaxExcelSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
