package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/types"
)

// PotentialMatch is one candidate the comparator judged against the
// tentative payload. Confidence sits in [0,100].
type PotentialMatch struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Confidence int       `json:"confidence"`
}

// ComparatorService judges whether a tentative payload describes one of the
// retrieved candidates. The current implementation is an LLM prompt; the
// {id, name, confidence} shape is fixed.
type ComparatorService interface {
	Compare(ctx context.Context, payload map[string]interface{}, candidates []*types.Individual) ([]PotentialMatch, error)
}

type comparatorService struct {
	log      *logger.Logger
	aiClient OpenAIClient
}

func NewComparatorService(baseLog *logger.Logger, aiClient OpenAIClient) ComparatorService {
	serviceLog := baseLog.With("service", "ComparatorService")
	return &comparatorService{log: serviceLog, aiClient: aiClient}
}

const comparatorSystemPrompt = `You compare a new field observation against known individuals and estimate, per candidate, the confidence (0-100) that they are the same person.
Consider name similarity, physical attributes and any overlapping details. Return every candidate you were given, highest confidence first.`

func (cs *comparatorService) Compare(ctx context.Context, payload map[string]interface{}, candidates []*types.Individual) ([]PotentialMatch, error) {
	if len(candidates) == 0 {
		return []PotentialMatch{}, nil
	}

	user, err := buildComparatorPrompt(payload, candidates)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to build comparator prompt: %w", err))
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"matches": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":         map[string]any{"type": "string"},
						"name":       map[string]any{"type": "string"},
						"confidence": map[string]any{"type": "integer"},
					},
					"required": []string{"id", "name", "confidence"},
				},
			},
		},
		"required": []string{"matches"},
	}

	raw, err := cs.aiClient.GenerateJSON(ctx, comparatorSystemPrompt, user, "duplicate_comparison", schema)
	if err != nil {
		return nil, apierr.Upstream(fmt.Errorf("Comparator model failed: %w", err))
	}

	return parseComparatorResponse(raw, candidates), nil
}

func buildComparatorPrompt(payload map[string]interface{}, candidates []*types.Individual) (string, error) {
	var b strings.Builder
	b.WriteString("New observation:\n")
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	b.Write(payloadJSON)
	b.WriteString("\n\nKnown individuals:\n")
	for _, candidate := range candidates {
		entry := map[string]interface{}{
			"id":   candidate.ID.String(),
			"name": candidate.Name,
			"data": map[string]interface{}(candidate.Data),
		}
		entryJSON, mErr := json.Marshal(entry)
		if mErr != nil {
			return "", mErr
		}
		b.Write(entryJSON)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// parseComparatorResponse keeps only rows that reference a real candidate
// and clamps confidence into [0,100].
func parseComparatorResponse(raw map[string]interface{}, candidates []*types.Individual) []PotentialMatch {
	byID := map[uuid.UUID]*types.Individual{}
	for _, candidate := range candidates {
		byID[candidate.ID] = candidate
	}

	matches := []PotentialMatch{}
	rows, ok := raw["matches"].([]interface{})
	if !ok {
		return matches
	}
	for _, row := range rows {
		obj, isObj := row.(map[string]interface{})
		if !isObj {
			continue
		}
		idStr, _ := obj["id"].(string)
		id, err := uuid.Parse(strings.TrimSpace(idStr))
		if err != nil {
			continue
		}
		candidate, known := byID[id]
		if !known {
			continue
		}
		confidence := 0
		if c, okC := toFloat64(obj["confidence"]); okC {
			confidence = int(c)
		}
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 100 {
			confidence = 100
		}
		matches = append(matches, PotentialMatch{
			ID:         id,
			Name:       candidate.Name,
			Confidence: confidence,
		})
	}
	return matches
}
