package warnfeed

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/lgadye/warn-monitor/types"
)

// companyHeaders are matched case-insensitively as substrings of a header.
var companyHeaders = []string{"company", "employer", "company name", "business name", "name"}

// headerScanRows bounds how far down the sheet the header row is searched
// for; report files sometimes carry a title block above the table.
const headerScanRows = 20

// ErrEmptyWorkbook is returned when the first sheet has no rows.
var ErrEmptyWorkbook = errors.New("WARN report has no rows")

// ParseXLSX reads the first sheet of a WARN report. Cells are read raw and
// serial numbers in date columns are rewritten as YYYY-MM-DD, so records
// show the same dates whatever number format the sheet used.
func ParseXLSX(data []byte) ([]types.ObservedRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}

	headerIdx, companyCol := findHeader(rows)
	headers := headerNames(rows[headerIdx])
	if companyCol < 0 {
		log.Printf("Warning: could not identify company column in %v; using first column", headers)
		companyCol = 0
	}
	dateCol := findDateColumn(headers)
	if dateCol < 0 {
		log.Printf("Warning: could not identify notice date column in %v", headers)
	}
	log.Printf("Using column %q for company matching", headerAt(headers, companyCol))
	dates := dateColumns(headers)

	records := make([]types.ObservedRecord, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		if isBlank(row) {
			continue
		}
		values := make([]string, max(len(headers), len(row)))
		for i := range values {
			values[i] = cell(row, i)
			if i < len(dates) && dates[i] {
				values[i] = displayDate(values[i])
			}
		}
		raw := make(map[string]string, len(headers))
		for i, h := range headers {
			raw[h] = values[i]
		}
		records = append(records, types.ObservedRecord{
			OrganizationName: valueAt(values, companyCol),
			NoticeDate:       valueAt(values, dateCol),
			RawRow:           raw,
			Columns:          headers,
		})
	}
	log.Printf("Found %d total WARN notices in file", len(records))
	return records, nil
}

// findHeader returns the index of the header row and the company column in
// it, or (0, -1) when no row names a company-like column.
func findHeader(rows [][]string) (int, int) {
	limit := min(len(rows), headerScanRows)
	for i := 0; i < limit; i++ {
		if col := findCompanyColumn(rows[i]); col >= 0 {
			return i, col
		}
	}
	return 0, -1
}

func findCompanyColumn(header []string) int {
	for i, h := range header {
		lower := strings.ToLower(h)
		for _, candidate := range companyHeaders {
			if strings.Contains(lower, candidate) {
				return i
			}
		}
	}
	return -1
}

func findDateColumn(headers []string) int {
	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(h)
	}
	for i, h := range lowered {
		if strings.Contains(h, "notice") && strings.Contains(h, "date") {
			return i
		}
	}
	for i, h := range lowered {
		if strings.Contains(h, "received") {
			return i
		}
	}
	for i, h := range lowered {
		if strings.Contains(h, "date") {
			return i
		}
	}
	return -1
}

// headerNames trims header cells, names unnamed columns and disambiguates
// repeats so every column keeps its own RawRow entry.
func headerNames(row []string) []string {
	names := make([]string, len(row))
	used := make(map[string]int, len(row))
	for i, h := range row {
		name := strings.Join(strings.Fields(h), " ")
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		if n := used[name]; n > 0 {
			used[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			used[name] = 1
		}
		names[i] = name
	}
	return names
}

// dateColumns flags headers with a "date" or "received" word, e.g.
// "Notice Date" or "Received". "Updated" is not a date column.
func dateColumns(headers []string) []bool {
	flags := make([]bool, len(headers))
	for i, h := range headers {
		words := strings.FieldsFunc(strings.ToLower(h), func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		for _, w := range words {
			if w == "date" || w == "dates" || w == "received" {
				flags[i] = true
			}
		}
	}
	return flags
}

func displayDate(v string) string {
	if t, ok := types.ExcelSerialDate(v); ok {
		return t.Format(types.ISODate)
	}
	return v
}

func headerAt(headers []string, i int) string {
	if i < 0 || i >= len(headers) {
		return ""
	}
	return headers[i]
}

func valueAt(values []string, i int) string {
	if i < 0 || i >= len(values) {
		return ""
	}
	return values[i]
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
