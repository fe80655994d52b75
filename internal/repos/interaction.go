package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/types"
)

type InteractionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, interaction *types.Interaction) (*types.Interaction, error)
	ListByIndividual(ctx context.Context, tx *gorm.DB, individualID uuid.UUID) ([]*types.Interaction, error)
	LatestPerIndividual(ctx context.Context, tx *gorm.DB, individualIDs []uuid.UUID) (map[uuid.UUID]*types.Interaction, error)
}

type interactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInteractionRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRepo {
	repoLog := baseLog.With("repo", "InteractionRepo")
	return &interactionRepo{db: db, log: repoLog}
}

func (ir *interactionRepo) Create(ctx context.Context, tx *gorm.DB, interaction *types.Interaction) (*types.Interaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if err := transaction.WithContext(ctx).Create(interaction).Error; err != nil {
		return nil, err
	}
	return interaction, nil
}

func (ir *interactionRepo) ListByIndividual(ctx context.Context, tx *gorm.DB, individualID uuid.UUID) ([]*types.Interaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var results []*types.Interaction
	if err := transaction.WithContext(ctx).
		Where("individual_id = ?", individualID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// LatestPerIndividual returns the most recent interaction for each given
// individual. Used by distance sort, which keys off the last observed
// location.
func (ir *interactionRepo) LatestPerIndividual(ctx context.Context, tx *gorm.DB, individualIDs []uuid.UUID) (map[uuid.UUID]*types.Interaction, error) {
	out := make(map[uuid.UUID]*types.Interaction, len(individualIDs))
	if len(individualIDs) == 0 {
		return out, nil
	}
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var results []*types.Interaction
	if err := transaction.WithContext(ctx).
		Where("individual_id IN ?", individualIDs).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	for _, in := range results {
		if _, seen := out[in.IndividualID]; !seen {
			out[in.IndividualID] = in
		}
	}
	return out, nil
}
