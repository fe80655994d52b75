package services

import (
	"strconv"
	"strings"
)

// Sentinel bounds for the approximate_age range category.
const (
	AgeUnknown = -1
	AgeFloor   = 0
	AgeCeiling = 120
)

// Numeric categories cap out at 300 (inches, pounds and the like all fit).
const NumberCeiling = 300.0

// AgeFieldName is the one range-typed category in use today.
const AgeFieldName = "approximate_age"

// payloadValue looks a category name up in a payload. Category names are
// stored first-letter-capitalized while clients and extraction output use
// lowercase keys, so the lookup falls back to case-insensitive matching.
func payloadValue(payload map[string]interface{}, name string) (interface{}, bool) {
	if v, ok := payload[name]; ok {
		return v, true
	}
	lower := strings.ToLower(name)
	if v, ok := payload[lower]; ok {
		return v, true
	}
	for k, v := range payload {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// payloadKey returns the key under which a category's value actually sits in
// the payload, so corrections land on the caller's own key.
func payloadKey(payload map[string]interface{}, name string) (string, bool) {
	if _, ok := payload[name]; ok {
		return name, true
	}
	lower := strings.ToLower(name)
	if _, ok := payload[lower]; ok {
		return lower, true
	}
	for k := range payload {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	return "", false
}

func toFloat64(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toInt(v interface{}) (int, bool) {
	f, ok := toFloat64(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// parseAgeRange decodes a two-element [min,max] list from JSON-shaped input.
func parseAgeRange(v interface{}) (int, int, bool) {
	items, ok := v.([]interface{})
	if !ok {
		if ints, isInts := v.([]int); isInts && len(ints) == 2 {
			return ints[0], ints[1], true
		}
		return 0, 0, false
	}
	if len(items) != 2 {
		return 0, 0, false
	}
	lo, okLo := toInt(items[0])
	hi, okHi := toInt(items[1])
	if !okLo || !okHi {
		return 0, 0, false
	}
	return lo, hi, true
}

// ageRangeValid accepts the unknown sentinel or an ordered in-bounds range.
func ageRangeValid(lo, hi int) bool {
	if lo == AgeUnknown && hi == AgeUnknown {
		return true
	}
	return lo >= AgeFloor && lo <= hi && hi <= AgeCeiling
}

// isEmptyValue mirrors the auto-trigger presence rule: nil, zero and the
// empty string do not count as populated.
func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case float64:
		return t == 0
	case float32:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case []interface{}:
		return len(t) == 0
	default:
		return false
	}
}

func toStringValue(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
