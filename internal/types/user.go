package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is a local mirror of an identity-provider account, created lazily on
// the first authenticated request. Premium is managed out of band and is
// never written from token claims.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Subject     string         `gorm:"column:subject;uniqueIndex;not null" json:"subject"`
	Email       string         `gorm:"column:email;index" json:"email,omitempty"`
	DisplayName string         `gorm:"column:display_name" json:"display_name,omitempty"`
	Premium     bool           `gorm:"column:premium;not null;default:false" json:"premium"`
	Preferences datatypes.JSON `gorm:"column:preferences;type:jsonb" json:"preferences,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "app_user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
