package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/types"
)

// ExtractionService turns a transcript into a categorized payload against
// the live registry via the structured-output model.
type ExtractionService interface {
	Extract(ctx context.Context, transcript string, categories []*types.Category) (map[string]interface{}, []FieldError, error)
}

type extractionService struct {
	log      *logger.Logger
	aiClient OpenAIClient
}

func NewExtractionService(baseLog *logger.Logger, aiClient OpenAIClient) ExtractionService {
	serviceLog := baseLog.With("service", "ExtractionService")
	return &extractionService{log: serviceLog, aiClient: aiClient}
}

const extractionSystemPrompt = `You extract structured observation data from an outreach worker's spoken notes about one encountered individual.
Rules:
- Attempt a value for every required field.
- Return null for optional fields the transcript does not mention.
- Emit approximate_age strictly as a two-element [min,max] list of integers, or [-1,-1] when the age is unknown. Never return prose for age.
- Translate height phrases like "5'4\"" or "six feet" into total inches.
- Map informal skin-color words onto the declared skin_color option labels.
- For select fields, use only the declared option labels, matching their exact spelling.`

func (es *extractionService) Extract(ctx context.Context, transcript string, categories []*types.Category) (map[string]interface{}, []FieldError, error) {
	user := buildExtractionPrompt(transcript, categories)
	schema := buildExtractionSchema(categories)

	raw, err := es.aiClient.GenerateJSON(ctx, extractionSystemPrompt, user, "categorized_observation", schema)
	if err != nil {
		return nil, nil, apierr.Upstream(fmt.Errorf("Extraction model failed: %w", err))
	}

	payload, fieldErrors := postProcessExtraction(raw, categories)
	return payload, fieldErrors, nil
}

func buildExtractionPrompt(transcript string, categories []*types.Category) string {
	var b strings.Builder
	b.WriteString("Fields to extract:\n")
	for _, category := range categories {
		key := strings.ToLower(category.Name)
		b.WriteString("- ")
		b.WriteString(key)
		b.WriteString(" (")
		b.WriteString(string(category.Type))
		if category.IsRequired {
			b.WriteString(", required")
		}
		b.WriteString(")")
		switch category.Type {
		case types.CategoryTypeSingleSelect:
			if opts, err := category.SelectOptions(); err == nil && len(opts) > 0 {
				labels := make([]string, 0, len(opts))
				for _, opt := range opts {
					labels = append(labels, opt.Label)
				}
				b.WriteString(" allowed labels: ")
				b.WriteString(strings.Join(labels, ", "))
			}
		case types.CategoryTypeMultiSelect:
			if opts, err := category.MultiSelectOptions(); err == nil && len(opts) > 0 {
				b.WriteString(" allowed options: ")
				b.WriteString(strings.Join(opts, ", "))
			}
		case types.CategoryTypeRange:
			b.WriteString(" as [min,max] integers, [-1,-1] if unknown")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}

func buildExtractionSchema(categories []*types.Category) map[string]any {
	properties := map[string]any{}
	for _, category := range categories {
		key := strings.ToLower(category.Name)
		switch category.Type {
		case types.CategoryTypeNumber:
			properties[key] = map[string]any{"type": []string{"number", "null"}}
		case types.CategoryTypeSingleSelect:
			properties[key] = map[string]any{"type": []string{"string", "null"}}
		case types.CategoryTypeMultiSelect:
			properties[key] = map[string]any{
				"type":  []string{"array", "null"},
				"items": map[string]any{"type": "string"},
			}
		case types.CategoryTypeRange:
			properties[key] = map[string]any{
				"type":  []string{"array", "null"},
				"items": map[string]any{"type": "integer"},
			}
		case types.CategoryTypeLocation:
			properties[key] = map[string]any{"type": []string{"object", "string", "null"}}
		default:
			properties[key] = map[string]any{"type": []string{"string", "null"}}
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
}

// postProcessExtraction cleans the model response: unknown fields dropped,
// numeric strings coerced, undeclared multi_select elements removed, and a
// malformed age overwritten with the unknown sentinel.
func postProcessExtraction(raw map[string]interface{}, categories []*types.Category) (map[string]interface{}, []FieldError) {
	payload := map[string]interface{}{}
	fieldErrors := []FieldError{}

	byKey := map[string]*types.Category{}
	for _, category := range categories {
		byKey[strings.ToLower(category.Name)] = category
	}

	for key, value := range raw {
		category, known := byKey[strings.ToLower(key)]
		if !known || value == nil {
			continue
		}
		lowerKey := strings.ToLower(category.Name)

		switch category.Type {
		case types.CategoryTypeNumber:
			num, ok := toFloat64(value)
			if !ok {
				fieldErrors = append(fieldErrors, FieldError{
					Field:   category.Name,
					Message: fmt.Sprintf("model returned non-numeric %v for %s", value, category.Name),
				})
				continue
			}
			payload[lowerKey] = num
		case types.CategoryTypeMultiSelect:
			items, ok := value.([]interface{})
			if !ok {
				continue
			}
			declared, err := category.MultiSelectOptions()
			if err != nil {
				continue
			}
			kept := []interface{}{}
			for _, item := range items {
				label, isString := toStringValue(item)
				if isString && multiSelectOptionDeclared(declared, label) {
					kept = append(kept, label)
				}
			}
			if len(kept) > 0 {
				payload[lowerKey] = kept
			}
		case types.CategoryTypeRange:
			lo, hi, ok := parseAgeRange(value)
			if !ok || !ageRangeValid(lo, hi) {
				fieldErrors = append(fieldErrors, FieldError{
					Field:   category.Name,
					Message: fmt.Sprintf("model returned malformed age %v, substituting unknown", value),
				})
				payload[lowerKey] = []interface{}{float64(AgeUnknown), float64(AgeUnknown)}
				continue
			}
			payload[lowerKey] = []interface{}{float64(lo), float64(hi)}
		default:
			payload[lowerKey] = value
		}
	}

	return payload, fieldErrors
}
