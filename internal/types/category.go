package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CategoryType string

const (
	CategoryTypeText         CategoryType = "text"
	CategoryTypeNumber       CategoryType = "number"
	CategoryTypeSingleSelect CategoryType = "single_select"
	CategoryTypeMultiSelect  CategoryType = "multi_select"
	CategoryTypeDate         CategoryType = "date"
	CategoryTypeLocation     CategoryType = "location"
	CategoryTypeRange        CategoryType = "range"
)

type CategoryPriority string

const (
	CategoryPriorityHigh   CategoryPriority = "high"
	CategoryPriorityMedium CategoryPriority = "medium"
	CategoryPriorityLow    CategoryPriority = "low"
)

// SelectOption is one entry of a single_select category. Value feeds the
// urgency score and must sit in [0,1].
type SelectOption struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Category is a typed attribute definition applying to every individual's
// data bag. The Options payload is type-discriminated: []SelectOption for
// single_select, []string for multi_select, absent otherwise.
type Category struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string           `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Type          CategoryType     `gorm:"not null;column:type" json:"type"`
	IsRequired    bool             `gorm:"not null;default:false;column:is_required" json:"is_required"`
	IsPreset      bool             `gorm:"not null;default:false;column:is_preset" json:"is_preset"`
	Priority      CategoryPriority `gorm:"not null;default:'medium';column:priority" json:"priority"`
	UrgencyWeight int              `gorm:"not null;default:0;column:urgency_weight" json:"urgency_weight"`
	AutoTrigger   bool             `gorm:"not null;default:false;column:auto_trigger" json:"auto_trigger"`
	Options       datatypes.JSON   `gorm:"column:options" json:"options,omitempty"`
	CreatedAt     time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"not null" json:"updated_at"`
}

func (Category) TableName() string {
	return "category"
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// SupportsWeight reports whether the type participates in urgency scoring.
func (c *Category) SupportsWeight() bool {
	return c.Type == CategoryTypeNumber || c.Type == CategoryTypeSingleSelect
}

func (c *Category) SelectOptions() ([]SelectOption, error) {
	if c.Type != CategoryTypeSingleSelect {
		return nil, fmt.Errorf("category %q is not single_select", c.Name)
	}
	if len(c.Options) == 0 {
		return nil, nil
	}
	var opts []SelectOption
	if err := json.Unmarshal(c.Options, &opts); err != nil {
		return nil, fmt.Errorf("decode options for category %q: %w", c.Name, err)
	}
	return opts, nil
}

func (c *Category) MultiSelectOptions() ([]string, error) {
	if c.Type != CategoryTypeMultiSelect {
		return nil, fmt.Errorf("category %q is not multi_select", c.Name)
	}
	if len(c.Options) == 0 {
		return nil, nil
	}
	var opts []string
	if err := json.Unmarshal(c.Options, &opts); err != nil {
		return nil, fmt.Errorf("decode options for category %q: %w", c.Name, err)
	}
	return opts, nil
}
