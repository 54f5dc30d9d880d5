package models

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Millis is a timestamp exchanged with the auction API. The backend emits
// epoch milliseconds for some endpoints and ISO-8601 strings (with or
// without a zone) for others, so decoding accepts all three.
type Millis struct {
	time.Time
}

// MillisOf wraps t.
func MillisOf(t time.Time) Millis {
	return Millis{Time: t}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		m.Time = time.Time{}
		return nil
	}

	if data[0] != '"' {
		return m.setNumber(string(data))
	}

	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	if s == "" {
		m.Time = time.Time{}
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return m.setNumber(s)
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			m.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (m *Millis) setNumber(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	m.Time = time.UnixMilli(int64(math.Floor(f)))
	return nil
}

// MarshalJSON writes epoch milliseconds, or null for the zero time.
func (m Millis) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(m.UnixMilli(), 10)), nil
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}
