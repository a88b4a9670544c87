package deduplication

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/lgadye/warn-monitor/types"
)

var errEmptyDate = errors.New("empty date")

// KeyFor builds the dedup key "<organization>|<YYYY-MM-DD>" for a record.
// The organization is trimmed, lower-cased and whitespace-collapsed but not
// fuzzy-normalized. Records whose date cannot be parsed yield a
// *types.ValidationError.
func KeyFor(record types.ObservedRecord) (types.NoticeKey, error) {
	date, err := NormalizeDate(record.NoticeDate)
	if err != nil {
		return "", &types.ValidationError{Field: "notice date", Value: record.NoticeDate, Err: err}
	}
	return types.NoticeKey(normalizeOrganization(record.OrganizationName) + types.KeySeparator + date), nil
}

// NormalizeDate converts a spreadsheet or free-form date into YYYY-MM-DD.
// Excel serial numbers are decoded; anything else goes through dateparse,
// which reads slash dates as month/day.
func NormalizeDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errEmptyDate
	}

	if t, ok := types.ExcelSerialDate(s); ok {
		return t.Format(types.ISODate), nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		// Only compact YYYYMMDD is a date among the remaining numbers.
		if len(s) != 8 {
			return "", fmt.Errorf("numeric value %q is not a calendar date", s)
		}
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return "", err
	}
	return t.Format(types.ISODate), nil
}

func normalizeOrganization(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
