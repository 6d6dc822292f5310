package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lecture is a single audio recording. It references both its collection and
// the collection's speaker; the two speaker references must agree.
type Lecture struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SpeakerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"speaker_id"`
	Speaker       *Speaker       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SpeakerID;references:ID" json:"speaker,omitempty"`
	CollectionID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"collection_id"`
	Collection    *Collection    `gorm:"constraint:OnDelete:CASCADE;foreignKey:CollectionID;references:ID" json:"collection,omitempty"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	FileKey       string         `gorm:"column:file_key;uniqueIndex;not null" json:"file_key"`
	FileName      string         `gorm:"column:file_name" json:"file_name,omitempty"`
	FileSizeBytes int64          `gorm:"column:file_size_bytes;not null;default:0" json:"file_size_bytes"`
	FileFormat    string         `gorm:"column:file_format" json:"file_format,omitempty"`
	DurationSecs  int            `gorm:"column:duration_secs;not null;default:0" json:"duration_secs"`
	PlayCount     int64          `gorm:"column:play_count;not null;default:0" json:"play_count"`
	Position      int            `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Lecture) TableName() string { return "lecture" }

func (l *Lecture) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
