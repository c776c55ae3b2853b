// Package types converts between UPnP wire datatypes and Go values.
//
// Every UPnP action argument is bound to a state variable with a declared
// datatype (ui4, boolean, dateTime.tz, ...). Encode turns a caller-supplied
// Go value into the canonical wire string for that datatype; Decode is the
// inverse. Both reject values outside the datatype's domain so bad input
// never reaches the network.
package types

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// intLimits maps the signed integer datatypes to their value bounds.
var intLimits = map[string][2]int64{
	"i1":  {math.MinInt8, math.MaxInt8},
	"i2":  {math.MinInt16, math.MaxInt16},
	"i4":  {math.MinInt32, math.MaxInt32},
	"i8":  {math.MinInt64, math.MaxInt64},
	"int": {math.MinInt64, math.MaxInt64},
}

// uintLimits maps the unsigned integer datatypes to their upper bound.
var uintLimits = map[string]uint64{
	"ui1": math.MaxUint8,
	"ui2": math.MaxUint16,
	"ui4": math.MaxUint32,
	"ui8": math.MaxUint64,
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
	timeLayout     = "15:04:05"
)

// ConversionError reports a value that cannot be represented in a datatype.
type ConversionError struct {
	Datatype string
	Value    any
	Reason   string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %v to UPnP type %q: %s", e.Value, e.Datatype, e.Reason)
}

func convErr(datatype string, v any, format string, args ...any) error {
	return &ConversionError{Datatype: datatype, Value: v, Reason: fmt.Sprintf(format, args...)}
}

// IsKnown reports whether datatype is a UPnP datatype this codec handles.
func IsKnown(datatype string) bool {
	if _, ok := intLimits[datatype]; ok {
		return true
	}
	if _, ok := uintLimits[datatype]; ok {
		return true
	}
	switch datatype {
	case "r4", "r8", "float", "number", "fixed.14.4",
		"boolean", "string", "char",
		"bin.base64", "bin.hex", "uri", "uuid",
		"date", "dateTime", "dateTime.tz", "time", "time.tz":
		return true
	}
	return false
}

// Encode converts a Go value into the wire string for the given datatype.
// Accepted Go types depend on the datatype; strings are always accepted and
// re-parsed, so values decoded from user input round-trip cleanly. The
// exception is bin.base64 and bin.hex, which take a string as the raw bytes
// to encode.
func Encode(datatype string, v any) (string, error) {
	if limits, ok := intLimits[datatype]; ok {
		n, err := toInt64(datatype, v)
		if err != nil {
			return "", err
		}
		if n < limits[0] || n > limits[1] {
			return "", convErr(datatype, v, "value out of range [%d, %d]", limits[0], limits[1])
		}
		return strconv.FormatInt(n, 10), nil
	}
	if limit, ok := uintLimits[datatype]; ok {
		n, err := toUint64(datatype, v)
		if err != nil {
			return "", err
		}
		if n > limit {
			return "", convErr(datatype, v, "value out of range [0, %d]", limit)
		}
		return strconv.FormatUint(n, 10), nil
	}

	switch datatype {
	case "r4":
		f, err := toFloat64(datatype, v)
		if err != nil {
			return "", err
		}
		if f != 0 && !math.IsInf(f, 0) && (math.Abs(f) > math.MaxFloat32 || math.Abs(f) < math.SmallestNonzeroFloat32) {
			return "", convErr(datatype, v, "value outside single-precision range")
		}
		return strconv.FormatFloat(f, 'G', -1, 32), nil
	case "r8", "float", "number":
		f, err := toFloat64(datatype, v)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'G', -1, 64), nil
	case "fixed.14.4":
		f, err := toFloat64(datatype, v)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'f', 4, 64), nil
	case "boolean":
		b, err := toBool(v)
		if err != nil {
			return "", err
		}
		if b {
			return "1", nil
		}
		return "0", nil
	case "string", "char", "uuid":
		return toString(datatype, v)
	case "bin.base64":
		raw, err := toBytes(datatype, v)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(raw), nil
	case "bin.hex":
		raw, err := toBytes(datatype, v)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(raw), nil
	case "uri":
		s, err := toString(datatype, v)
		if err != nil {
			return "", err
		}
		if _, err := url.Parse(s); err != nil {
			return "", convErr(datatype, v, "not a valid URI reference: %v", err)
		}
		return s, nil
	case "date":
		t, err := toTime(datatype, v, dateLayout)
		if err != nil {
			return "", err
		}
		return t.Format(dateLayout), nil
	case "dateTime":
		t, err := toTime(datatype, v, dateTimeLayout)
		if err != nil {
			return "", err
		}
		return t.Format(dateTimeLayout), nil
	case "dateTime.tz":
		t, err := toTime(datatype, v, dateTimeLayout+"-07:00")
		if err != nil {
			return "", err
		}
		return t.Format(dateTimeLayout + "-07:00"), nil
	case "time":
		t, err := toTime(datatype, v, timeLayout)
		if err != nil {
			return "", err
		}
		return t.Format(timeLayout), nil
	case "time.tz":
		t, err := toTime(datatype, v, timeLayout+"-07:00")
		if err != nil {
			return "", err
		}
		return t.Format(timeLayout + "-07:00"), nil
	}
	return "", convErr(datatype, v, "unknown datatype")
}

// Decode parses a wire string into the Go value for the given datatype.
// Surrounding whitespace is tolerated on all datatypes except string and
// char.
func Decode(datatype string, s string) (any, error) {
	if datatype != "string" && datatype != "char" {
		s = strings.TrimSpace(s)
	}

	if limits, ok := intLimits[datatype]; ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, convErr(datatype, s, "not a decimal integer")
		}
		if n < limits[0] || n > limits[1] {
			return nil, convErr(datatype, s, "value out of range [%d, %d]", limits[0], limits[1])
		}
		return n, nil
	}
	if limit, ok := uintLimits[datatype]; ok {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, convErr(datatype, s, "not an unsigned decimal integer")
		}
		if n > limit {
			return nil, convErr(datatype, s, "value out of range [0, %d]", limit)
		}
		return n, nil
	}

	switch datatype {
	case "r4", "r8", "float", "number", "fixed.14.4":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, convErr(datatype, s, "not a decimal number")
		}
		return f, nil
	case "boolean":
		return toBool(s)
	case "string", "char", "uuid":
		return s, nil
	case "bin.base64":
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, convErr(datatype, s, "invalid base64: %v", err)
		}
		return raw, nil
	case "bin.hex":
		raw, err := hex.DecodeString(strings.ToLower(s))
		if err != nil {
			return nil, convErr(datatype, s, "invalid hex: %v", err)
		}
		return raw, nil
	case "uri":
		if _, err := url.Parse(s); err != nil {
			return nil, convErr(datatype, s, "not a valid URI reference: %v", err)
		}
		return s, nil
	case "date":
		return parseTime(datatype, s, dateLayout)
	case "dateTime":
		return parseTime(datatype, s, dateTimeLayout)
	case "dateTime.tz":
		return parseTime(datatype, s, dateTimeLayout+"-07:00", dateTimeLayout+"Z07:00")
	case "time":
		return parseTime(datatype, s, timeLayout)
	case "time.tz":
		return parseTime(datatype, s, timeLayout+"-07:00", timeLayout+"Z07:00")
	}
	return nil, convErr(datatype, s, "unknown datatype")
}

func parseTime(datatype, s string, layouts ...string) (time.Time, error) {
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, convErr(datatype, s, "bad timestamp: %v", lastErr)
}

// --- Go value coercion ---

func toInt64(datatype string, v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, convErr(datatype, v, "value overflows int64")
		}
		return int64(n), nil
	case float32:
		return floatToInt64(datatype, float64(n))
	case float64:
		return floatToInt64(datatype, n)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, convErr(datatype, v, "not a decimal integer")
		}
		return parsed, nil
	}
	return 0, convErr(datatype, v, "unsupported Go type %T", v)
}

func floatToInt64(datatype string, f float64) (int64, error) {
	if f != math.Trunc(f) {
		return 0, convErr(datatype, f, "not an integral value")
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return 0, convErr(datatype, f, "value overflows int64")
	}
	return int64(f), nil
}

func toUint64(datatype string, v any) (uint64, error) {
	switch n := v.(type) {
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case int, int8, int16, int32, int64:
		signed, err := toInt64(datatype, v)
		if err != nil {
			return 0, err
		}
		if signed < 0 {
			return 0, convErr(datatype, v, "value out of range [0, %d]", uintLimits[datatype])
		}
		return uint64(signed), nil
	case float32:
		return floatToUint64(datatype, float64(n))
	case float64:
		return floatToUint64(datatype, n)
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, convErr(datatype, v, "not an unsigned decimal integer")
		}
		return parsed, nil
	}
	return 0, convErr(datatype, v, "unsupported Go type %T", v)
}

func floatToUint64(datatype string, f float64) (uint64, error) {
	if f != math.Trunc(f) {
		return 0, convErr(datatype, f, "not an integral value")
	}
	if f < 0 || f > math.MaxUint64 {
		return 0, convErr(datatype, f, "value out of range")
	}
	return uint64(f), nil
}

func toFloat64(datatype string, v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int, int8, int16, int32, int64:
		signed, _ := toInt64(datatype, v)
		return float64(signed), nil
	case uint, uint8, uint16, uint32, uint64:
		unsigned, _ := toUint64("ui8", v)
		return float64(unsigned), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, convErr(datatype, v, "not a decimal number")
		}
		return f, nil
	}
	return 0, convErr(datatype, v, "unsupported Go type %T", v)
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, _ := toInt64("boolean", v)
		switch n {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes":
			return true, nil
		case "0", "false", "no":
			return false, nil
		}
	}
	return false, convErr("boolean", v, "expected one of 0/1/true/false/yes/no")
}

func toString(datatype string, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return "", convErr(datatype, v, "unsupported Go type %T", v)
}

func toBytes(datatype string, v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	}
	return nil, convErr(datatype, v, "unsupported Go type %T", v)
}

func toTime(datatype string, v any, layout string) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return parseTime(datatype, strings.TrimSpace(t), layout)
	}
	return time.Time{}, convErr(datatype, v, "unsupported Go type %T", v)
}
