package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Location is a recorded observation site.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Interaction is an append-only event describing one recorded observation
// and the fields it changed. Rows are never mutated after insert.
type Interaction struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	IndividualID  uuid.UUID         `gorm:"type:uuid;index;not null;column:individual_id" json:"individual_id"`
	UserName      string            `gorm:"not null;column:user_name" json:"user_name"`
	Transcription *string           `gorm:"column:transcription" json:"transcription"`
	AudioURL      *string           `gorm:"column:audio_url" json:"audio_url"`
	Location      datatypes.JSON    `gorm:"column:location" json:"location"`
	Changes       datatypes.JSONMap `gorm:"column:changes" json:"changes"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
}

func (Interaction) TableName() string {
	return "interaction"
}

func (in *Interaction) BeforeCreate(tx *gorm.DB) error {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	return nil
}

func (in *Interaction) LocationValue() *Location {
	if len(in.Location) == 0 {
		return nil
	}
	var loc Location
	if err := json.Unmarshal(in.Location, &loc); err != nil {
		return nil
	}
	return &loc
}

func (in *Interaction) SetLocation(loc *Location) {
	if loc == nil {
		in.Location = nil
		return
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return
	}
	in.Location = datatypes.JSON(raw)
}
