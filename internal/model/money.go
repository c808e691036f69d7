package model

import (
	"strconv"
	"strings"
)

// Money is a monetary amount as the remote API serializes it. The backend
// emits decimals as JSON strings ("12.50") in most places and bare numbers in
// a few older ones; null, absent, or non-numeric values decode to zero so
// aggregate views treat every record uniformly.
type Money float64

// UnmarshalJSON accepts a JSON number, a quoted numeric string, or null.
// Anything unparsable decodes to zero rather than failing the whole payload.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*m = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*m = 0
		return nil
	}
	*m = Money(v)
	return nil
}

// MarshalJSON encodes as a quoted two-decimal string, matching the API.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

func (m Money) String() string {
	return strconv.FormatFloat(float64(m), 'f', 2, 64)
}
