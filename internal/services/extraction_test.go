package services

import (
	"testing"
)

func TestPostProcessDropsUnknownFields(t *testing.T) {
	raw := map[string]interface{}{
		"name":       "Alex",
		"shoe_size":  11.0,
		"skin_color": "Medium",
	}
	payload, fieldErrors := postProcessExtraction(raw, baseRegistry(t))
	if _, ok := payload["shoe_size"]; ok {
		t.Fatal("unknown field must be dropped")
	}
	if payload["name"] != "Alex" || payload["skin_color"] != "Medium" {
		t.Fatalf("known fields lost: %v", payload)
	}
	if len(fieldErrors) != 0 {
		t.Fatalf("unexpected field errors %v", fieldErrors)
	}
}

func TestPostProcessCoercesNumericStrings(t *testing.T) {
	raw := map[string]interface{}{"height": "70"}
	payload, fieldErrors := postProcessExtraction(raw, baseRegistry(t))
	if h, ok := payload["height"].(float64); !ok || h != 70 {
		t.Fatalf("height=%v, want float64 70", payload["height"])
	}
	if len(fieldErrors) != 0 {
		t.Fatalf("unexpected field errors %v", fieldErrors)
	}
}

func TestPostProcessReportsNonNumeric(t *testing.T) {
	raw := map[string]interface{}{"height": "about six feet"}
	payload, fieldErrors := postProcessExtraction(raw, baseRegistry(t))
	if _, ok := payload["height"]; ok {
		t.Fatal("unparseable number must not survive")
	}
	if len(fieldErrors) != 1 || fieldErrors[0].Field != "Height" {
		t.Fatalf("fieldErrors=%v, want one for Height", fieldErrors)
	}
}

func TestPostProcessFiltersMultiSelectToDeclaredOptions(t *testing.T) {
	raw := map[string]interface{}{
		"substances": []interface{}{"Alcohol", "Caffeine", "Opioids"},
	}
	payload, _ := postProcessExtraction(raw, baseRegistry(t))
	kept, ok := payload["substances"].([]interface{})
	if !ok || len(kept) != 2 {
		t.Fatalf("substances=%v, want the two declared options", payload["substances"])
	}
}

func TestPostProcessMalformedAgeBecomesSentinel(t *testing.T) {
	cases := []interface{}{
		"mid thirties",
		[]interface{}{30.0},
		[]interface{}{50.0, 40.0},
		[]interface{}{-5.0, 20.0},
	}
	for _, malformed := range cases {
		raw := map[string]interface{}{"approximate_age": malformed}
		payload, fieldErrors := postProcessExtraction(raw, baseRegistry(t))
		lo, hi, ok := parseAgeRange(payload["approximate_age"])
		if !ok || lo != AgeUnknown || hi != AgeUnknown {
			t.Fatalf("age %v -> %v, want sentinel", malformed, payload["approximate_age"])
		}
		if len(fieldErrors) != 1 {
			t.Fatalf("age %v: fieldErrors=%v, want one", malformed, fieldErrors)
		}
	}
}

func TestPostProcessKeysAreLowercase(t *testing.T) {
	raw := map[string]interface{}{"Name": "Alex"}
	payload, _ := postProcessExtraction(raw, baseRegistry(t))
	if _, ok := payload["name"]; !ok {
		t.Fatalf("payload keys must be lowercase: %v", payload)
	}
}
