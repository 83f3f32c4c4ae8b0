package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultSum replaces missing or garbage sums on deposit-class postbacks.
// Empirically the platform's minimum deposit.
const DefaultSum = 59.0

// ParseSum parses the sum query parameter. Non-numeric or non-positive values
// fall back to def, except for revenue corrections where zero and negative
// values are legitimate and must be preserved.
func ParseSum(raw string, kind EventKind, def float64) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if kind == KindRevenue {
			return 0
		}
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if kind == KindRevenue {
			return 0
		}
		return def
	}
	if kind == KindRevenue {
		return v
	}
	if v <= 0 {
		return def
	}
	return v
}

// ParseCommission parses the commission parameter. Missing, malformed or
// negative values become nil rather than an error.
func ParseCommission(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// NormalizeIdentifier filters out values that mean "absent": empty strings and
// unsubstituted tracker macros like {clickid} that leak through when a sender
// never filled the template.
func NormalizeIdentifier(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "{") && strings.HasSuffix(v, "}") {
		return ""
	}
	switch strings.ToLower(v) {
	case "null", "undefined", "none":
		return ""
	}
	return v
}

// IsValidSubscriberID reports whether v is a well-formed UUID. Malformed
// subscriber ids are dropped instead of being matched literally.
func IsValidSubscriberID(v string) bool {
	if v == "" {
		return false
	}
	_, err := uuid.Parse(v)
	return err == nil
}
