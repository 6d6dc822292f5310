package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Collection is a titled set of lectures by a single speaker, typically one
// lecture series or event. Premium status is inherited from the speaker.
type Collection struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SpeakerID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_collection_speaker_slug,unique" json:"speaker_id"`
	Speaker           *Speaker       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SpeakerID;references:ID" json:"speaker,omitempty"`
	Slug              string         `gorm:"column:slug;not null;index:idx_collection_speaker_slug,unique" json:"slug"`
	Title             string         `gorm:"column:title;not null" json:"title"`
	Year              int            `gorm:"column:year" json:"year,omitempty"`
	CoverURL          string         `gorm:"column:cover_url" json:"cover_url,omitempty"`
	ThumbURL          string         `gorm:"column:thumb_url" json:"thumb_url,omitempty"`
	LectureCount      int            `gorm:"column:lecture_count;not null;default:0" json:"lecture_count"`
	TotalDurationSecs int            `gorm:"column:total_duration_secs;not null;default:0" json:"total_duration_secs"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Collection) TableName() string { return "collection" }

func (c *Collection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
