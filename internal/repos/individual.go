package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/types"
)

type IndividualRepo interface {
	Create(ctx context.Context, tx *gorm.DB, individual *types.Individual) (*types.Individual, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Individual, error)
	Update(ctx context.Context, tx *gorm.DB, individual *types.Individual) error
	GetByExactName(ctx context.Context, tx *gorm.DB, name string) ([]*types.Individual, error)
	GetByNameToken(ctx context.Context, tx *gorm.DB, token string, limit int) ([]*types.Individual, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Individual, error)
}

type individualRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIndividualRepo(db *gorm.DB, baseLog *logger.Logger) IndividualRepo {
	repoLog := baseLog.With("repo", "IndividualRepo")
	return &individualRepo{db: db, log: repoLog}
}

func (ir *individualRepo) Create(ctx context.Context, tx *gorm.DB, individual *types.Individual) (*types.Individual, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if err := transaction.WithContext(ctx).Create(individual).Error; err != nil {
		return nil, err
	}
	return individual, nil
}

func (ir *individualRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Individual, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var result types.Individual
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ir *individualRepo) Update(ctx context.Context, tx *gorm.DB, individual *types.Individual) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	return transaction.WithContext(ctx).Save(individual).Error
}

func (ir *individualRepo) GetByExactName(ctx context.Context, tx *gorm.DB, name string) ([]*types.Individual, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var results []*types.Individual
	if err := transaction.WithContext(ctx).
		Where("name = ?", name).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetByNameToken widens candidate retrieval: case-insensitive containment of
// a single name token. LOWER(...) LIKE keeps the query portable between
// Postgres and the sqlite test databases.
func (ir *individualRepo) GetByNameToken(ctx context.Context, tx *gorm.DB, token string, limit int) ([]*types.Individual, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var results []*types.Individual
	pattern := "%" + strings.ToLower(token) + "%"
	q := transaction.WithContext(ctx).
		Where("LOWER(name) LIKE ?", pattern).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *individualRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Individual, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var results []*types.Individual
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
