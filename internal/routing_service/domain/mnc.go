package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// WildcardMNC is the stored sentinel for a per-country fallback rate tier.
const WildcardMNC = "*"

// MNC is a mobile network code: either a specific numeric code or the
// wildcard tier covering every operator under an MCC. Rate documents in the
// source system mixed string "*" and numeric values in the same field; here
// the two cases are explicit.
type MNC struct {
	Wildcard bool
	Code     int
}

// SpecificMNC returns the MNC for a concrete network code.
func SpecificMNC(code int) MNC {
	return MNC{Code: code}
}

// TheWildcardMNC returns the wildcard MNC.
func TheWildcardMNC() MNC {
	return MNC{Wildcard: true}
}

// ParseMNC parses a raw MNC token. Recognized wildcard tokens are "*",
// "star" and "wildcard" (case-insensitive); anything else must be a base-10
// integer.
func ParseMNC(raw string) (MNC, error) {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "*", "star", "wildcard":
		return MNC{Wildcard: true}, nil
	}
	code, err := strconv.Atoi(trimmed)
	if err != nil {
		return MNC{}, fmt.Errorf("%w: MNC %q is neither numeric nor a wildcard token", ErrValidation, raw)
	}
	return MNC{Code: code}, nil
}

// String renders "*" for the wildcard and the decimal code otherwise.
// This is also the stored form and the sort key: '*' (0x2A) orders before
// any digit, so wildcard rows sort first.
func (m MNC) String() string {
	if m.Wildcard {
		return WildcardMNC
	}
	return strconv.Itoa(m.Code)
}

// Less orders MNCs by their string form.
func (m MNC) Less(other MNC) bool {
	return m.String() < other.String()
}

// Equal reports whether two MNCs denote the same tier.
func (m MNC) Equal(other MNC) bool {
	if m.Wildcard || other.Wildcard {
		return m.Wildcard == other.Wildcard
	}
	return m.Code == other.Code
}

// MarshalJSON emits the wildcard as the string "*" and specific codes as
// numbers, matching the wire shape consumers of the admin API expect.
func (m MNC) MarshalJSON() ([]byte, error) {
	if m.Wildcard {
		return json.Marshal(WildcardMNC)
	}
	return json.Marshal(m.Code)
}

// UnmarshalJSON accepts both the string and numeric shapes.
func (m *MNC) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		parsed, perr := ParseMNC(asString)
		if perr != nil {
			return perr
		}
		*m = parsed
		return nil
	}
	var asInt int
	if err := json.Unmarshal(data, &asInt); err != nil {
		return fmt.Errorf("%w: MNC must be a number or wildcard string", ErrValidation)
	}
	*m = MNC{Code: asInt}
	return nil
}
