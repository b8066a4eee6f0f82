package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Decimal is a nullable decimal that accepts a JSON number, a numeric string
// or a BSON extended-JSON wrapper such as {"$numberDecimal": "0.0012"}.
type Decimal struct {
	decimal.NullDecimal
}

func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{decimal.NewNullDecimal(d)}
}

type numberMarker struct {
	NumberDecimal *string `json:"$numberDecimal"`
	NumberDouble  *string `json:"$numberDouble"`
	NumberInt     *string `json:"$numberInt"`
	NumberLong    *string `json:"$numberLong"`
}

func (m numberMarker) value() (string, bool) {
	for _, v := range []*string{m.NumberDecimal, m.NumberDouble, m.NumberInt, m.NumberLong} {
		if v != nil {
			return *v, true
		}
	}
	return "", false
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*d = Decimal{}
		return nil
	}
	var text string
	switch b[0] {
	case '{':
		var m numberMarker
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		v, ok := m.value()
		if !ok {
			return errors.New("decimal: unsupported wrapper " + string(b))
		}
		text = v
	case '"':
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			*d = Decimal{}
			return nil
		}
	default:
		text = string(b)
	}
	v, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return err
	}
	*d = NewDecimal(v)
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return []byte(d.Decimal.String()), nil
}

// Timestamp keeps both the parsed time and the original text; Text is used
// when the input could not be parsed.
type Timestamp struct {
	Time time.Time
	Text string
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*t = Timestamp{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	switch b[0] {
	case '{':
		var w struct {
			Date json.RawMessage `json:"$date"`
		}
		if err := json.Unmarshal(b, &w); err != nil {
			return err
		}
		if len(w.Date) == 0 {
			t.Text = string(b)
			return nil
		}
		if bytes.HasPrefix(bytes.TrimSpace(w.Date), []byte("{")) {
			var long numberMarker
			if err := json.Unmarshal(w.Date, &long); err != nil {
				return err
			}
			if v, ok := long.value(); ok {
				return t.UnmarshalJSON([]byte(v))
			}
		}
		return t.UnmarshalJSON(w.Date)
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t.Text = s
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = parsed.UTC()
		}
		return nil
	default:
		ms, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			t.Text = string(b)
			return nil
		}
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
}

func (t Timestamp) IsZero() bool {
	return t.Time.IsZero() && t.Text == ""
}

// String renders the timestamp for report cells.
func (t Timestamp) String() string {
	if !t.Time.IsZero() {
		return t.Time.Format(time.RFC3339)
	}
	return t.Text
}
