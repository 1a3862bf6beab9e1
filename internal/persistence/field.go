package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldValue is a snapshot field that may have been stored as a JSON string or a JSON number.
type FieldValue struct {
	raw string
}

// Text wraps a raw field value.
func Text(raw string) FieldValue {
	return FieldValue{raw: raw}
}

// Number formats v in its shortest exact decimal form.
func Number(v float64) FieldValue {
	return FieldValue{raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

// String returns the raw text.
func (v FieldValue) String() string {
	return v.raw
}

// Blank reports whether the field holds nothing.
func (v FieldValue) Blank() bool {
	return strings.TrimSpace(v.raw) == ""
}

// Float parses the field as a finite number.
func (v FieldValue) Float() (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.raw), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", v.raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", v.raw)
	}
	return f, nil
}

// UnmarshalJSON accepts a string, a number or null.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		v.raw = ""
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &v.raw)
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("field must be a string or a number: %w", err)
	}
	v.raw = n.String()
	return nil
}

// MarshalJSON writes numbers as JSON numbers and anything else as a JSON string.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.Blank() {
		return []byte(`""`), nil
	}
	if _, err := v.Float(); err == nil {
		return []byte(strings.TrimSpace(v.raw)), nil
	}
	return json.Marshal(v.raw)
}
