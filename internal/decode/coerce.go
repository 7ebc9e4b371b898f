package decode

import (
	"strconv"
	"strings"

	"github.com/parquetry/parquetry/pkg/schema"
)

// millisThreshold separates integer timestamps in seconds from ones in
// milliseconds: any magnitude above it is taken as milliseconds.
const millisThreshold = 10_000_000_000

// Coerce converts raw field text into a typed value per the declared
// type. Empty or whitespace-only text is null; so is any text that fails
// to parse into the declared type. Parse failure is never an error.
func Coerce(raw string, tag schema.TypeTag) schema.Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return schema.Null()
	}

	switch tag {
	case schema.TypeString:
		return schema.String(trimmed)
	case schema.TypeInteger:
		v, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return schema.Null()
		}
		return schema.Int(v)
	case schema.TypeFloat:
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return schema.Null()
		}
		return schema.Float(v)
	case schema.TypeBoolean:
		if v, ok := parseBool(trimmed); ok {
			return schema.Bool(v)
		}
		return schema.Null()
	case schema.TypeDate:
		if days, ok := parseDateDays(trimmed); ok {
			return schema.Date(days)
		}
		return schema.Null()
	case schema.TypeDateTime, schema.TypeTimestamp:
		if nanos, ok := parseTimestampNanos(trimmed); ok {
			return schema.Timestamp(nanos)
		}
		return schema.Null()
	default:
		return schema.Null()
	}
}

// parseBool matches a fixed truthy/falsy vocabulary, case-insensitively.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y", "t":
		return true, true
	case "false", "0", "no", "n", "f":
		return false, true
	default:
		return false, false
	}
}

// parseDateDays parses a date into whole days since 1970-01-01. The ISO
// form YYYY-MM-DD is the fast path, recognized by fixed-position
// hyphens; slash-separated forms are tried in the order MM/DD/YYYY,
// DD/MM/YYYY, YYYY/MM/DD, first successful parse winning.
func parseDateDays(s string) (int32, bool) {
	if len(s) == 10 && s[4] == '-' && s[7] == '-' {
		if days, ok := parseDateParts(s[0:4], s[5:7], s[8:10]); ok {
			return days, true
		}
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return 0, false
	}

	// MM/DD/YYYY, then DD/MM/YYYY, then YYYY/MM/DD.
	if days, ok := parseDateParts(parts[2], parts[0], parts[1]); ok {
		return days, true
	}
	if days, ok := parseDateParts(parts[2], parts[1], parts[0]); ok {
		return days, true
	}
	if days, ok := parseDateParts(parts[0], parts[1], parts[2]); ok {
		return days, true
	}
	return 0, false
}

func parseDateParts(yearStr, monthStr, dayStr string) (int32, bool) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return 0, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return 0, false
	}
	return daysSinceEpoch(year, month, day)
}

// daysSinceEpoch computes the day count of a proleptic Gregorian date
// relative to 1970-01-01 by explicit calendar arithmetic.
func daysSinceEpoch(year, month, day int) (int32, bool) {
	if month < 1 || month > 12 || day < 1 || day > daysInMonth(year, month) {
		return 0, false
	}

	const epochYear = 1970
	days := 0
	if year >= epochYear {
		for y := epochYear; y < year; y++ {
			days += daysInYear(y)
		}
	} else {
		for y := year; y < epochYear; y++ {
			days -= daysInYear(y)
		}
	}

	for m := 1; m < month; m++ {
		days += daysInMonth(year, m)
	}
	days += day - 1

	return int32(days), true
}

func daysInYear(year int) int {
	if isLeapYear(year) {
		return 366
	}
	return 365
}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func daysInMonth(year, month int) int {
	if month == 2 && isLeapYear(year) {
		return 29
	}
	return monthDays[month-1]
}

// isLeapYear applies the standard Gregorian rule: divisible by 4 and not
// by 100, unless also divisible by 400.
func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// parseTimestampNanos parses a timestamp into nanoseconds since the Unix
// epoch, UTC. Whole-integer text is a Unix timestamp, in milliseconds
// when its magnitude exceeds the threshold, otherwise in seconds.
// Anything else is tried as YYYY-MM-DD[ T]HH:MM[:SS[.fraction]][Z].
func parseTimestampNanos(s string) (int64, bool) {
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ts > millisThreshold || ts < -millisThreshold {
			return ts * 1_000_000, true
		}
		return ts * 1_000_000_000, true
	}
	return parseISODateTime(s)
}

func parseISODateTime(s string) (int64, bool) {
	s = strings.Replace(s, "T", " ", 1)
	parts := strings.Split(s, " ")
	if len(parts) != 2 {
		return 0, false
	}

	datePart := parts[0]
	timePart := strings.TrimSuffix(parts[1], "Z")

	dateParts := strings.Split(datePart, "-")
	if len(dateParts) != 3 {
		return 0, false
	}
	days, ok := parseDateParts(dateParts[0], dateParts[1], dateParts[2])
	if !ok {
		return 0, false
	}

	timeParts := strings.Split(timePart, ":")
	if len(timeParts) < 2 || len(timeParts) > 3 {
		return 0, false
	}

	hour, err := strconv.Atoi(timeParts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(timeParts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}

	second := 0
	nanos := 0
	if len(timeParts) == 3 {
		secParts := strings.SplitN(timeParts[2], ".", 2)
		second, err = strconv.Atoi(secParts[0])
		if err != nil || second < 0 || second > 59 {
			return 0, false
		}
		if len(secParts) == 2 {
			nanos, ok = parseFractionNanos(secParts[1])
			if !ok {
				return 0, false
			}
		}
	}

	totalSeconds := int64(days)*86400 + int64(hour)*3600 + int64(minute)*60 + int64(second)
	return totalSeconds*1_000_000_000 + int64(nanos), true
}

// parseFractionNanos normalizes a fractional-seconds string to exactly
// nine digits: longer fractions are truncated, shorter ones zero-padded.
func parseFractionNanos(frac string) (int, bool) {
	if frac == "" {
		return 0, false
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	for len(frac) < 9 {
		frac += "0"
	}
	n, err := strconv.Atoi(frac)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
