package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlaybackPosition remembers where a user stopped inside a lecture.
// DurationSecs is copied from the lecture so clients can render progress
// without a join.
type PlaybackPosition struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index:idx_playback_user_lecture,unique" json:"user_id"`
	User         *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	LectureID    uuid.UUID `gorm:"type:uuid;not null;index:idx_playback_user_lecture,unique" json:"lecture_id"`
	Lecture      *Lecture  `gorm:"constraint:OnDelete:CASCADE;foreignKey:LectureID;references:ID" json:"lecture,omitempty"`
	PositionSecs int       `gorm:"column:position_secs;not null;default:0" json:"position_secs"`
	DurationSecs int       `gorm:"column:duration_secs;not null;default:0" json:"duration_secs"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (PlaybackPosition) TableName() string { return "playback_position" }

func (p *PlaybackPosition) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
