package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LectureCategory links a lecture into the category tree. At most one row per
// lecture carries IsPrimary.
type LectureCategory struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LectureID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_lecture_category,unique" json:"lecture_id"`
	Lecture    *Lecture   `gorm:"constraint:OnDelete:CASCADE;foreignKey:LectureID;references:ID" json:"lecture,omitempty"`
	CategoryID uuid.UUID  `gorm:"type:uuid;not null;index:idx_lecture_category,unique" json:"category_id"`
	Category   *Category  `gorm:"constraint:OnDelete:CASCADE;foreignKey:CategoryID;references:ID" json:"category,omitempty"`
	IsPrimary  bool       `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
}

func (LectureCategory) TableName() string { return "lecture_category" }

func (lc *LectureCategory) BeforeCreate(tx *gorm.DB) error {
	if lc.ID == uuid.Nil {
		lc.ID = uuid.New()
	}
	return nil
}
