package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Speaker struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Slug            string         `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	Name            string         `gorm:"column:name;not null" json:"name"`
	Bio             string         `gorm:"column:bio" json:"bio,omitempty"`
	ImageURL        string         `gorm:"column:image_url" json:"image_url,omitempty"`
	ThumbURL        string         `gorm:"column:thumb_url" json:"thumb_url,omitempty"`
	Premium         bool           `gorm:"column:premium;not null;default:false" json:"premium"`
	LectureCount    int            `gorm:"column:lecture_count;not null;default:0" json:"lecture_count"`
	CollectionCount int            `gorm:"column:collection_count;not null;default:0" json:"collection_count"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Speaker) TableName() string { return "speaker" }

func (s *Speaker) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
