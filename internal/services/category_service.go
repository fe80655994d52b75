package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/repos"
	"github.com/yungbote/streetlink-backend/internal/types"
)

// CategoryCreateInput is the admin-surface shape for a new category. Options
// stays raw because its shape is discriminated by Type.
type CategoryCreateInput struct {
	Name          string                 `json:"name"`
	Type          types.CategoryType     `json:"type"`
	IsRequired    bool                   `json:"is_required"`
	Priority      types.CategoryPriority `json:"priority"`
	UrgencyWeight int                    `json:"urgency_weight"`
	AutoTrigger   bool                   `json:"auto_trigger"`
	Options       json.RawMessage        `json:"options,omitempty"`
}

type CategoryService interface {
	List(ctx context.Context) ([]*types.Category, error)
	Create(ctx context.Context, tx *gorm.DB, input CategoryCreateInput) (*types.Category, error)
	SeedPresets(ctx context.Context, path string) error
}

type categoryService struct {
	db           *gorm.DB
	log          *logger.Logger
	categoryRepo repos.CategoryRepo
}

func NewCategoryService(db *gorm.DB, baseLog *logger.Logger, categoryRepo repos.CategoryRepo) CategoryService {
	serviceLog := baseLog.With("service", "CategoryService")
	return &categoryService{db: db, log: serviceLog, categoryRepo: categoryRepo}
}

func (cs *categoryService) List(ctx context.Context) ([]*types.Category, error) {
	categories, err := cs.categoryRepo.List(ctx, nil)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to list categories: %w", err))
	}
	return categories, nil
}

func (cs *categoryService) Create(ctx context.Context, tx *gorm.DB, input CategoryCreateInput) (*types.Category, error) {
	category, err := buildCategory(input)
	if err != nil {
		return nil, err
	}

	exists, err := cs.categoryRepo.NameExists(ctx, tx, category.Name)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to check category name: %w", err))
	}
	if exists {
		return nil, apierr.Conflict(fmt.Errorf("category %q already exists", category.Name))
	}

	created, err := cs.categoryRepo.Create(ctx, tx, category)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to create category: %w", err))
	}
	return created, nil
}

// NormalizeCategoryName stores names first-letter capitalized, remainder
// lowercase, making case-insensitive uniqueness an exact-match property.
func NormalizeCategoryName(name string) string {
	trimmed := strings.TrimSpace(strings.ToLower(name))
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func buildCategory(input CategoryCreateInput) (*types.Category, error) {
	name := NormalizeCategoryName(input.Name)
	if name == "" {
		return nil, apierr.Validationf("category name is required")
	}

	switch input.Type {
	case types.CategoryTypeText, types.CategoryTypeNumber, types.CategoryTypeSingleSelect,
		types.CategoryTypeMultiSelect, types.CategoryTypeDate, types.CategoryTypeLocation,
		types.CategoryTypeRange:
	default:
		return nil, apierr.Validationf("unknown category type %q", input.Type)
	}

	priority := input.Priority
	if priority == "" {
		priority = types.CategoryPriorityMedium
	}
	switch priority {
	case types.CategoryPriorityHigh, types.CategoryPriorityMedium, types.CategoryPriorityLow:
	default:
		return nil, apierr.Validationf("unknown priority %q", input.Priority)
	}

	category := &types.Category{
		Name:          name,
		Type:          input.Type,
		IsRequired:    input.IsRequired,
		Priority:      priority,
		UrgencyWeight: input.UrgencyWeight,
		AutoTrigger:   input.AutoTrigger,
	}

	if input.UrgencyWeight < 0 || input.UrgencyWeight > 100 {
		return nil, apierr.Validationf("urgency_weight must be in [0,100]")
	}
	if input.UrgencyWeight > 0 && !category.SupportsWeight() {
		return nil, apierr.Validationf("urgency_weight is only allowed on number and single_select categories")
	}
	if input.AutoTrigger && !category.SupportsWeight() {
		return nil, apierr.Validationf("auto_trigger is only allowed on number and single_select categories")
	}

	switch input.Type {
	case types.CategoryTypeSingleSelect:
		if len(input.Options) == 0 {
			return nil, apierr.Validationf("single_select categories require options")
		}
		var opts []types.SelectOption
		if err := json.Unmarshal(input.Options, &opts); err != nil {
			return nil, apierr.Validationf("options must be a list of {label, value} pairs: %v", err)
		}
		if len(opts) == 0 {
			return nil, apierr.Validationf("single_select categories require at least one option")
		}
		seen := map[string]bool{}
		for _, opt := range opts {
			if strings.TrimSpace(opt.Label) == "" {
				return nil, apierr.Validationf("option labels must be non-empty")
			}
			if seen[opt.Label] {
				return nil, apierr.Validationf("duplicate option label %q", opt.Label)
			}
			seen[opt.Label] = true
			if opt.Value < 0 || opt.Value > 1 {
				return nil, apierr.Validationf("option value for %q must be in [0,1]", opt.Label)
			}
		}
		raw, _ := json.Marshal(opts)
		category.Options = datatypes.JSON(raw)
	case types.CategoryTypeMultiSelect:
		if len(input.Options) == 0 {
			return nil, apierr.Validationf("multi_select categories require options")
		}
		var opts []string
		if err := json.Unmarshal(input.Options, &opts); err != nil {
			return nil, apierr.Validationf("options must be a list of strings: %v", err)
		}
		if len(opts) == 0 {
			return nil, apierr.Validationf("multi_select categories require at least one option")
		}
		seen := map[string]bool{}
		for _, opt := range opts {
			if strings.TrimSpace(opt) == "" {
				return nil, apierr.Validationf("options must be non-empty strings")
			}
			if seen[opt] {
				return nil, apierr.Validationf("duplicate option %q", opt)
			}
			seen[opt] = true
		}
		raw, _ := json.Marshal(opts)
		category.Options = datatypes.JSON(raw)
	default:
		if len(input.Options) != 0 {
			return nil, apierr.Validationf("options are not allowed on %s categories", input.Type)
		}
	}

	return category, nil
}

type presetCategoryFile struct {
	Categories []presetCategory `yaml:"categories"`
}

type presetCategory struct {
	Name          string                 `yaml:"name"`
	Type          types.CategoryType     `yaml:"type"`
	IsRequired    bool                   `yaml:"is_required"`
	Priority      types.CategoryPriority `yaml:"priority"`
	UrgencyWeight int                    `yaml:"urgency_weight"`
	AutoTrigger   bool                   `yaml:"auto_trigger"`
	Options       interface{}            `yaml:"options"`
}

// SeedPresets applies the preset category file idempotently at boot.
// Categories already present by name are left untouched.
func (cs *categoryService) SeedPresets(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Failed to read preset categories file: %w", err)
	}
	var file presetCategoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("Failed to parse preset categories file: %w", err)
	}

	for _, preset := range file.Categories {
		input := CategoryCreateInput{
			Name:          preset.Name,
			Type:          preset.Type,
			IsRequired:    preset.IsRequired,
			Priority:      preset.Priority,
			UrgencyWeight: preset.UrgencyWeight,
			AutoTrigger:   preset.AutoTrigger,
		}
		if preset.Options != nil {
			optRaw, mErr := json.Marshal(preset.Options)
			if mErr != nil {
				return fmt.Errorf("Failed to encode options for preset %q: %w", preset.Name, mErr)
			}
			input.Options = optRaw
		}

		category, bErr := buildCategory(input)
		if bErr != nil {
			return fmt.Errorf("Invalid preset category %q: %w", preset.Name, bErr)
		}
		category.IsPreset = true

		exists, eErr := cs.categoryRepo.NameExists(ctx, nil, category.Name)
		if eErr != nil {
			return fmt.Errorf("Failed to check preset category %q: %w", preset.Name, eErr)
		}
		if exists {
			continue
		}
		if _, cErr := cs.categoryRepo.Create(ctx, nil, category); cErr != nil {
			return fmt.Errorf("Failed to create preset category %q: %w", preset.Name, cErr)
		}
		cs.log.Info("Seeded preset category", "category", category.Name, "type", category.Type)
	}
	return nil
}
