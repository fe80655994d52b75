package services

import (
	"fmt"

	"github.com/yungbote/streetlink-backend/internal/types"
)

// FieldError is one per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of checking a categorized payload against
// the live registry.
type ValidationResult struct {
	IsValid          bool         `json:"is_valid"`
	MissingRequired  []string     `json:"missing_required"`
	ValidationErrors []FieldError `json:"validation_errors"`
}

// ValidatePayload checks a categorized payload against the registry. A
// recognisably-wrong approximate_age is reported as an error and rewritten
// to the unknown sentinel in place, so the rest of the pipeline can proceed.
func ValidatePayload(payload map[string]interface{}, categories []*types.Category) ValidationResult {
	result := ValidationResult{
		MissingRequired:  []string{},
		ValidationErrors: []FieldError{},
	}

	for _, category := range categories {
		value, present := payloadValue(payload, category.Name)

		if category.IsRequired && (!present || value == nil) {
			result.MissingRequired = append(result.MissingRequired, category.Name)
			continue
		}
		if !present || value == nil {
			continue
		}

		switch category.Type {
		case types.CategoryTypeNumber:
			num, ok := toFloat64(value)
			if !ok {
				result.ValidationErrors = append(result.ValidationErrors, FieldError{
					Field:   category.Name,
					Message: fmt.Sprintf("%s must be numeric", category.Name),
				})
				continue
			}
			if num < 0 || num > NumberCeiling {
				result.ValidationErrors = append(result.ValidationErrors, FieldError{
					Field:   category.Name,
					Message: fmt.Sprintf("%s must be between 0 and %d", category.Name, int(NumberCeiling)),
				})
			}
		case types.CategoryTypeSingleSelect:
			label, ok := toStringValue(value)
			if !ok {
				result.ValidationErrors = append(result.ValidationErrors, FieldError{
					Field:   category.Name,
					Message: fmt.Sprintf("%s must be a string option", category.Name),
				})
				continue
			}
			opts, err := category.SelectOptions()
			if err != nil {
				result.ValidationErrors = append(result.ValidationErrors, FieldError{
					Field:   category.Name,
					Message: err.Error(),
				})
				continue
			}
			if !singleSelectLabelDeclared(opts, label) {
				result.ValidationErrors = append(result.ValidationErrors, FieldError{
					Field:   category.Name,
					Message: fmt.Sprintf("%q is not a declared option of %s", label, category.Name),
				})
			}
		case types.CategoryTypeMultiSelect:
			items, ok := value.([]interface{})
			if !ok {
				result.ValidationErrors = append(result.ValidationErrors, FieldError{
					Field:   category.Name,
					Message: fmt.Sprintf("%s must be a list of options", category.Name),
				})
				continue
			}
			declared, err := category.MultiSelectOptions()
			if err != nil {
				result.ValidationErrors = append(result.ValidationErrors, FieldError{
					Field:   category.Name,
					Message: err.Error(),
				})
				continue
			}
			for _, item := range items {
				label, isString := toStringValue(item)
				if !isString || !multiSelectOptionDeclared(declared, label) {
					result.ValidationErrors = append(result.ValidationErrors, FieldError{
						Field:   category.Name,
						Message: fmt.Sprintf("%v is not a declared option of %s", item, category.Name),
					})
				}
			}
		case types.CategoryTypeRange:
			lo, hi, ok := parseAgeRange(value)
			if !ok || !ageRangeValid(lo, hi) {
				result.ValidationErrors = append(result.ValidationErrors, FieldError{
					Field:   category.Name,
					Message: fmt.Sprintf("%s must be [min,max] with 0 <= min <= max <= %d, or [-1,-1] for unknown", category.Name, AgeCeiling),
				})
				// Substitute the sentinel so downstream stages still have a
				// well-formed value to carry.
				if key, found := payloadKey(payload, category.Name); found {
					payload[key] = []interface{}{float64(AgeUnknown), float64(AgeUnknown)}
				}
			}
		}
	}

	result.IsValid = len(result.MissingRequired) == 0 && len(result.ValidationErrors) == 0
	return result
}

// MissingRequiredFields runs only the required-field check. The save path
// uses it when creating a brand-new individual.
func MissingRequiredFields(payload map[string]interface{}, categories []*types.Category) []string {
	missing := []string{}
	for _, category := range categories {
		if !category.IsRequired {
			continue
		}
		value, present := payloadValue(payload, category.Name)
		if !present || value == nil {
			missing = append(missing, category.Name)
		}
	}
	return missing
}

func singleSelectLabelDeclared(opts []types.SelectOption, label string) bool {
	for _, opt := range opts {
		if opt.Label == label {
			return true
		}
	}
	return false
}

func multiSelectOptionDeclared(declared []string, label string) bool {
	for _, opt := range declared {
		if opt == label {
			return true
		}
	}
	return false
}
