package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IST is the Indian Standard Time zone the Power BI reports are read in.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// ReportLayout is the wall-clock layout used for human-readable timestamps.
const ReportLayout = "2006-01-02 15:04:05"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp as sent by PostHog. Values
// without a zone offset are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}

// TimestampMillis parses s and returns epoch milliseconds, or 0 when s is
// missing or malformed.
func TimestampMillis(s string) int64 {
	t, err := ParseTimestamp(s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// MillisToTime converts epoch milliseconds to a UTC time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ISO formats epoch milliseconds the way the events API expects its
// after/before parameters.
func ISO(ms int64) string {
	return MillisToTime(ms).Format("2006-01-02T15:04:05.000Z07:00")
}

// TimestampToIST re-renders an ISO-8601 timestamp in IST, or "" when it does
// not parse.
func TimestampToIST(s string) string {
	t, err := ParseTimestamp(s)
	if err != nil {
		return ""
	}
	return t.In(IST).Format(ReportLayout)
}

// MillisToIST renders an epoch-millisecond value in IST. Missing, zero and
// non-numeric values render as "".
func MillisToIST(v interface{}) string {
	ms, ok := toFloat(v)
	if !ok || ms == 0 {
		return ""
	}
	return time.UnixMilli(int64(ms)).In(IST).Format(ReportLayout)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ConvertToInt64 converts driver and JSON values to int64.
func ConvertToInt64(val interface{}) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", val)
	}
}
