package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/streetlink-backend/internal/types"
)

func TestParseComparatorResponse(t *testing.T) {
	known := &types.Individual{ID: uuid.New(), Name: "John Smith"}
	candidates := []*types.Individual{known}

	raw := map[string]interface{}{
		"matches": []interface{}{
			map[string]interface{}{"id": known.ID.String(), "name": "Johnny", "confidence": 140.0},
			map[string]interface{}{"id": uuid.New().String(), "name": "Made Up", "confidence": 90.0},
			map[string]interface{}{"id": "not-a-uuid", "name": "Broken", "confidence": 50.0},
			"garbage row",
		},
	}

	matches := parseComparatorResponse(raw, candidates)
	if len(matches) != 1 {
		t.Fatalf("matches=%v, want only the known candidate", matches)
	}
	if matches[0].ID != known.ID {
		t.Fatalf("id=%s, want %s", matches[0].ID, known.ID)
	}
	// The name comes from our record, not from the model output.
	if matches[0].Name != "John Smith" {
		t.Fatalf("name=%q, want John Smith", matches[0].Name)
	}
	if matches[0].Confidence != 100 {
		t.Fatalf("confidence=%d, want clamped 100", matches[0].Confidence)
	}
}

func TestParseComparatorResponseClampsNegative(t *testing.T) {
	known := &types.Individual{ID: uuid.New(), Name: "A"}
	raw := map[string]interface{}{
		"matches": []interface{}{
			map[string]interface{}{"id": known.ID.String(), "name": "A", "confidence": -20.0},
		},
	}
	matches := parseComparatorResponse(raw, []*types.Individual{known})
	if len(matches) != 1 || matches[0].Confidence != 0 {
		t.Fatalf("matches=%v, want confidence clamped to 0", matches)
	}
}

func TestParseComparatorResponseMalformedRoot(t *testing.T) {
	matches := parseComparatorResponse(map[string]interface{}{"matches": "nope"}, nil)
	if matches == nil || len(matches) != 0 {
		t.Fatalf("matches=%v, want empty non-nil", matches)
	}
}
