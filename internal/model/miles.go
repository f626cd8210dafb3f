package model

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Miles is a decimal distance in statute miles. It renders with exactly one
// decimal place in JSON and text; arithmetic keeps full precision.
type Miles struct {
	decimal.Decimal
}

var two = decimal.NewFromInt(2)

// NewMiles wraps d.
func NewMiles(d decimal.Decimal) Miles {
	return Miles{Decimal: d}
}

// MilesFromFloat converts a user supplied float (e.g. a threshold).
func MilesFromFloat(f float64) Miles {
	return Miles{Decimal: decimal.NewFromFloat(f)}
}

// ParseMiles parses a plain decimal string such as "15.3".
func ParseMiles(s string) (Miles, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Miles{}, err
	}
	return Miles{Decimal: d}, nil
}

// Add returns m + o.
func (m Miles) Add(o Miles) Miles {
	return Miles{Decimal: m.Decimal.Add(o.Decimal)}
}

// Double returns 2*m rounded to one decimal place.
func (m Miles) Double() Miles {
	return Miles{Decimal: m.Decimal.Mul(two).Round(1)}
}

// AtMost reports whether m <= limit.
func (m Miles) AtMost(limit Miles) bool {
	return m.Decimal.LessThanOrEqual(limit.Decimal)
}

func (m Miles) String() string {
	return m.StringFixed(1)
}

// MarshalJSON renders a JSON number with one decimal place.
func (m Miles) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(1)), nil
}

func (m *Miles) UnmarshalJSON(b []byte) error {
	s := string(b)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	m.Decimal = d
	return nil
}
