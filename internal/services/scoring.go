package services

import (
	"github.com/yungbote/streetlink-backend/internal/types"
)

// ComputeUrgencyScore derives the 0..100 urgency/danger score for a payload
// against the registry.
//
// Any populated auto-trigger category short-circuits the whole computation
// to 100. Otherwise the score is the weighted average of number and
// single_select contributions, truncated toward zero.
func ComputeUrgencyScore(payload map[string]interface{}, categories []*types.Category) int {
	for _, category := range categories {
		if !category.AutoTrigger || !category.SupportsWeight() {
			continue
		}
		value, present := payloadValue(payload, category.Name)
		if present && !isEmptyValue(value) {
			return 100
		}
	}

	totalWeight := 0
	sum := 0.0
	for _, category := range categories {
		if category.UrgencyWeight <= 0 || !category.SupportsWeight() {
			continue
		}
		totalWeight += category.UrgencyWeight
		value, present := payloadValue(payload, category.Name)
		if !present || value == nil {
			continue
		}
		switch category.Type {
		case types.CategoryTypeNumber:
			num, ok := toFloat64(value)
			if !ok {
				continue
			}
			ratio := num / NumberCeiling
			if ratio > 1.0 {
				ratio = 1.0
			}
			if ratio < 0 {
				ratio = 0
			}
			sum += ratio * float64(category.UrgencyWeight)
		case types.CategoryTypeSingleSelect:
			label, ok := toStringValue(value)
			if !ok {
				continue
			}
			opts, err := category.SelectOptions()
			if err != nil {
				continue
			}
			for _, opt := range opts {
				if opt.Label == label {
					sum += opt.Value * float64(category.UrgencyWeight)
					break
				}
			}
		}
	}

	if totalWeight == 0 {
		return 0
	}
	return int(sum / float64(totalWeight) * 100)
}
