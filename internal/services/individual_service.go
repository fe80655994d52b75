package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/repos"
	"github.com/yungbote/streetlink-backend/internal/types"
)

// SaveRequest is one persistence call: either a brand-new individual or a
// merge into an existing one, plus the interaction metadata describing the
// observation itself.
type SaveRequest struct {
	Data          map[string]interface{} `json:"data"`
	MergeWithID   *uuid.UUID             `json:"merge_with_id"`
	Location      *types.Location        `json:"location,omitempty"`
	Transcription *string                `json:"transcription,omitempty"`
	AudioURL      *string                `json:"audio_url,omitempty"`
	PhotoURL      *string                `json:"photo_url,omitempty"`
	UserName      string                 `json:"-"`
}

type SaveResult struct {
	Individual  *types.Individual  `json:"individual"`
	Interaction *types.Interaction `json:"interaction"`
}

type IndividualService interface {
	Save(ctx context.Context, req SaveRequest) (*SaveResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Individual, error)
	ListInteractions(ctx context.Context, id uuid.UUID) ([]*types.Interaction, error)
	SetUrgencyOverride(ctx context.Context, id uuid.UUID, override *int) (*types.Individual, error)
}

type individualService struct {
	db              *gorm.DB
	log             *logger.Logger
	categoryRepo    repos.CategoryRepo
	individualRepo  repos.IndividualRepo
	interactionRepo repos.InteractionRepo

	now func() time.Time
}

func NewIndividualService(
	db *gorm.DB,
	baseLog *logger.Logger,
	categoryRepo repos.CategoryRepo,
	individualRepo repos.IndividualRepo,
	interactionRepo repos.InteractionRepo,
) IndividualService {
	serviceLog := baseLog.With("service", "IndividualService")
	return &individualService{
		db:              db,
		log:             serviceLog,
		categoryRepo:    categoryRepo,
		individualRepo:  individualRepo,
		interactionRepo: interactionRepo,
		now:             time.Now,
	}
}

func (ivs *individualService) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	if len(req.Data) == 0 {
		return nil, apierr.Validationf("data is required")
	}

	categories, err := ivs.categoryRepo.List(ctx, nil)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to load category registry: %w", err))
	}

	if req.MergeWithID == nil {
		return ivs.createNew(ctx, req, categories)
	}
	return ivs.mergeInto(ctx, req, *req.MergeWithID, categories)
}

func (ivs *individualService) createNew(ctx context.Context, req SaveRequest, categories []*types.Category) (*SaveResult, error) {
	if missing := MissingRequiredFields(req.Data, categories); len(missing) > 0 {
		return nil, apierr.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}

	name := extractName(req.Data)
	now := ivs.now()

	individual := types.Individual{
		Name:         name,
		Data:         datatypes.JSONMap(req.Data),
		UrgencyScore: ComputeUrgencyScore(req.Data, categories),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.PhotoURL != nil && *req.PhotoURL != "" {
		individual = SetPhoto(individual, *req.PhotoURL, now)
	}

	var saved *types.Individual
	var interaction *types.Interaction
	err := ivs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, cErr := ivs.individualRepo.Create(ctx, tx, &individual)
		if cErr != nil {
			return cErr
		}
		saved = created

		interaction = ivs.buildInteraction(created.ID, req, req.Data)
		if _, iErr := ivs.interactionRepo.Create(ctx, tx, interaction); iErr != nil {
			return iErr
		}
		return nil
	})
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to persist new individual: %w", err))
	}

	ivs.log.Info("Created individual", "individual_id", saved.ID, "urgency_score", saved.UrgencyScore)
	return &SaveResult{Individual: saved, Interaction: interaction}, nil
}

func (ivs *individualService) mergeInto(ctx context.Context, req SaveRequest, targetID uuid.UUID, categories []*types.Category) (*SaveResult, error) {
	individual, err := ivs.individualRepo.GetByID(ctx, nil, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("individual %s does not exist", targetID))
		}
		return nil, apierr.Internal(fmt.Errorf("Failed to load merge target: %w", err))
	}

	if individual.Data == nil {
		individual.Data = datatypes.JSONMap{}
	}

	// Delta covers only payload-provided keys; unmentioned keys are
	// preserved untouched.
	delta := map[string]interface{}{}
	for key, value := range req.Data {
		existing, present := individual.Data[key]
		if !present || !jsonValuesEqual(existing, value) {
			delta[key] = value
			individual.Data[key] = value
		}
	}

	if name := extractName(req.Data); name != "" && name != individual.Name {
		individual.Name = name
	}

	now := ivs.now()
	changed := len(delta) > 0

	newScore := ComputeUrgencyScore(individual.Data, categories)
	if newScore != individual.UrgencyScore {
		individual.UrgencyScore = newScore
		changed = true
	}

	if req.PhotoURL != nil && *req.PhotoURL != "" {
		current := ""
		if individual.PhotoURL != nil {
			current = *individual.PhotoURL
		}
		if *req.PhotoURL != current {
			*individual = SetPhoto(*individual, *req.PhotoURL, now)
			changed = true
		}
	}

	if changed {
		individual.UpdatedAt = now
	}

	var interaction *types.Interaction
	err = ivs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if changed {
			if uErr := ivs.individualRepo.Update(ctx, tx, individual); uErr != nil {
				return uErr
			}
		}
		interaction = ivs.buildInteraction(individual.ID, req, delta)
		if _, iErr := ivs.interactionRepo.Create(ctx, tx, interaction); iErr != nil {
			return iErr
		}
		return nil
	})
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to persist merge: %w", err))
	}

	ivs.log.Info("Merged into individual", "individual_id", individual.ID, "changed_fields", len(delta))
	return &SaveResult{Individual: individual, Interaction: interaction}, nil
}

func (ivs *individualService) buildInteraction(individualID uuid.UUID, req SaveRequest, changes map[string]interface{}) *types.Interaction {
	interaction := &types.Interaction{
		IndividualID:  individualID,
		UserName:      req.UserName,
		Transcription: req.Transcription,
		AudioURL:      req.AudioURL,
		Changes:       datatypes.JSONMap(changes),
		CreatedAt:     ivs.now(),
	}
	interaction.SetLocation(req.Location)
	return interaction
}

func (ivs *individualService) GetByID(ctx context.Context, id uuid.UUID) (*types.Individual, error) {
	individual, err := ivs.individualRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("individual %s does not exist", id))
		}
		return nil, apierr.Internal(fmt.Errorf("Failed to load individual: %w", err))
	}
	return individual, nil
}

func (ivs *individualService) ListInteractions(ctx context.Context, id uuid.UUID) ([]*types.Interaction, error) {
	if _, err := ivs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	interactions, err := ivs.interactionRepo.ListByIndividual(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to list interactions: %w", err))
	}
	return interactions, nil
}

func (ivs *individualService) SetUrgencyOverride(ctx context.Context, id uuid.UUID, override *int) (*types.Individual, error) {
	if override != nil && (*override < 0 || *override > 100) {
		return nil, apierr.Validationf("urgency override must be in [0,100]")
	}
	individual, err := ivs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	individual.UrgencyOverride = override
	individual.UpdatedAt = ivs.now()
	if err := ivs.individualRepo.Update(ctx, nil, individual); err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to update urgency override: %w", err))
	}
	return individual, nil
}

func extractName(payload map[string]interface{}) string {
	value, _ := payloadValue(payload, "name")
	name, _ := toStringValue(value)
	return strings.TrimSpace(name)
}

// jsonValuesEqual compares two JSON-shaped values structurally. Marshal
// round-trips flatten the int/float64 distinction that creeps in between
// decoded request bodies and stored JSONMap columns.
func jsonValuesEqual(a, b interface{}) bool {
	aj, aErr := json.Marshal(a)
	bj, bErr := json.Marshal(b)
	if aErr != nil || bErr != nil {
		return false
	}
	return string(aj) == string(bj)
}
