package serializer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/littlelemon/restaurant/internal/model"
)

var jsonNull = []byte("null")

// parseString accepts a JSON string and trims surrounding whitespace.
func parseString(raw json.RawMessage) (string, string) {
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return "", msgNull
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", msgString
	}
	return strings.TrimSpace(s), ""
}

// numberText returns the literal text of a JSON number, or the trimmed
// content of a JSON string.
func numberText(raw json.RawMessage) (text string, msg string) {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, jsonNull) {
		return "", msgNull
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", msgNumber
		}
		return strings.TrimSpace(s), ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", msgNumber
	}
	return n.String(), ""
}

func isJSONNumber(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] != '"'
}

// parseInt accepts integral JSON numbers (including 4.0) and numeric
// strings.
func parseInt(raw json.RawMessage) (int64, string) {
	text, msg := numberText(raw)
	if msg != "" {
		if msg == msgNumber {
			msg = msgInteger
		}
		return 0, msg
	}
	d, err := decimal.NewFromString(text)
	if err != nil || !d.IsInteger() {
		return 0, msgInteger
	}
	if !d.BigInt().IsInt64() {
		return 0, msgInteger
	}
	return d.IntPart(), ""
}

// parseDate accepts a "YYYY-MM-DD" JSON string.
func parseDate(raw json.RawMessage) (time.Time, string) {
	s, msg := parseString(raw)
	if msg != "" {
		if msg == msgString {
			msg = msgDate
		}
		return time.Time{}, msg
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, msgDate
	}
	return d, ""
}

// parseDecimal parses the literal text of a number so that 2.99 stays
// exactly 2.99, then enforces maxDigits/places precision.  Trailing
// zeros beyond places are dropped from JSON numbers (2.990 is 2.99) but
// kept for strings, which are checked as written.
func parseDecimal(raw json.RawMessage, maxDigits, places int) (decimal.Decimal, string) {
	text, msg := numberText(raw)
	if msg != "" {
		return decimal.Decimal{}, msg
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, msgNumber
	}
	if isJSONNumber(raw) && -d.Exponent() > int32(places) {
		if t := d.Truncate(int32(places)); t.Equal(d) {
			d = t
		}
	}
	if msg := precisionMessage(d, maxDigits, places); msg != "" {
		return decimal.Decimal{}, msg
	}
	return d, ""
}

// precisionMessage counts digits the way a DECIMAL(maxDigits, places)
// column would see the literal value, trailing zeros included.
func precisionMessage(d decimal.Decimal, maxDigits, places int) string {
	coef := strings.TrimPrefix(d.Coefficient().String(), "-")
	exp := int(d.Exponent())
	var digits, decimals int
	switch {
	case exp >= 0:
		digits, decimals = len(coef)+exp, 0
	case -exp > len(coef):
		digits, decimals = -exp, -exp
	default:
		digits, decimals = len(coef), -exp
	}
	whole := digits - decimals
	switch {
	case digits > maxDigits:
		return "Ensure that there are no more than " + strconv.Itoa(maxDigits) + " digits in total."
	case decimals > places:
		return "Ensure that there are no more than " + strconv.Itoa(places) + " decimal places."
	case whole > maxDigits-places:
		return "Ensure that there are no more than " + strconv.Itoa(maxDigits-places) + " digits before the decimal point."
	}
	return ""
}
