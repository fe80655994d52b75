package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PhotoHistoryEntry is one rotated-out photo reference, most-recent-first in
// Individual.PhotoHistory. The list never exceeds three entries.
type PhotoHistoryEntry struct {
	URL     string    `json:"url"`
	AddedAt time.Time `json:"added_at"`
}

// Individual is one observed person accumulating observations over time.
// Data is a sparse bag keyed by category name; values are typed per the
// category registry.
type Individual struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string            `gorm:"index;not null;column:name" json:"name"`
	Data            datatypes.JSONMap `gorm:"column:data" json:"data"`
	UrgencyScore    int               `gorm:"not null;default:0;column:urgency_score" json:"urgency_score"`
	UrgencyOverride *int              `gorm:"column:urgency_override" json:"urgency_override"`
	PhotoURL        *string           `gorm:"column:photo_url" json:"photo_url"`
	PhotoHistory    datatypes.JSON    `gorm:"column:photo_history" json:"photo_history"`
	CreatedAt       time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`
}

func (Individual) TableName() string {
	return "individual"
}

func (i *Individual) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// DisplayUrgency is the value shown everywhere urgency surfaces: the manual
// override when one is set, the computed score otherwise.
func (i *Individual) DisplayUrgency() int {
	if i.UrgencyOverride != nil {
		return *i.UrgencyOverride
	}
	return i.UrgencyScore
}

func (i *Individual) PhotoHistoryEntries() []PhotoHistoryEntry {
	if len(i.PhotoHistory) == 0 {
		return nil
	}
	var entries []PhotoHistoryEntry
	if err := json.Unmarshal(i.PhotoHistory, &entries); err != nil {
		return nil
	}
	return entries
}

func (i *Individual) SetPhotoHistoryEntries(entries []PhotoHistoryEntry) {
	if len(entries) == 0 {
		i.PhotoHistory = nil
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	i.PhotoHistory = datatypes.JSON(raw)
}
