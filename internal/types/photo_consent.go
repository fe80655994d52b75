package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PhotoConsent records provenance for a stored photo. One row is created
// transactionally with every photo upload.
type PhotoConsent struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	IndividualID    *uuid.UUID     `gorm:"type:uuid;index;column:individual_id" json:"individual_id"`
	PhotoURL        string         `gorm:"not null;column:photo_url" json:"photo_url"`
	ConsentedBy     string         `gorm:"not null;column:consented_by" json:"consented_by"`
	ConsentedAt     time.Time      `gorm:"not null;column:consented_at" json:"consented_at"`
	ConsentLocation datatypes.JSON `gorm:"column:consent_location" json:"consent_location"`
}

func (PhotoConsent) TableName() string {
	return "photo_consent"
}

func (pc *PhotoConsent) BeforeCreate(tx *gorm.DB) error {
	if pc.ID == uuid.Nil {
		pc.ID = uuid.New()
	}
	return nil
}
