package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/types"
)

type PhotoConsentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, consent *types.PhotoConsent) (*types.PhotoConsent, error)
}

type photoConsentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPhotoConsentRepo(db *gorm.DB, baseLog *logger.Logger) PhotoConsentRepo {
	repoLog := baseLog.With("repo", "PhotoConsentRepo")
	return &photoConsentRepo{db: db, log: repoLog}
}

func (pr *photoConsentRepo) Create(ctx context.Context, tx *gorm.DB, consent *types.PhotoConsent) (*types.PhotoConsent, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Create(consent).Error; err != nil {
		return nil, err
	}
	return consent, nil
}
