package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CollectionCategory struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CollectionID uuid.UUID   `gorm:"type:uuid;not null;index:idx_collection_category,unique" json:"collection_id"`
	Collection   *Collection `gorm:"constraint:OnDelete:CASCADE;foreignKey:CollectionID;references:ID" json:"collection,omitempty"`
	CategoryID   uuid.UUID   `gorm:"type:uuid;not null;index:idx_collection_category,unique" json:"category_id"`
	Category     *Category   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CategoryID;references:ID" json:"category,omitempty"`
	IsPrimary    bool        `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	CreatedAt    time.Time   `gorm:"not null" json:"created_at"`
}

func (CollectionCategory) TableName() string { return "collection_category" }

func (cc *CollectionCategory) BeforeCreate(tx *gorm.DB) error {
	if cc.ID == uuid.Nil {
		cc.ID = uuid.New()
	}
	return nil
}
