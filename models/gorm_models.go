// models/gorm_models.go
package models

import (
	"time"
)

// GormSessionEvent 会话日志表
type GormSessionEvent struct {
	ID         uint      `gorm:"primaryKey"`
	PlayerID   int       `gorm:"index;not null"`
	Kind       string    `gorm:"size:16;not null"`
	Color      string    `gorm:"size:7"`
	OccurredAt time.Time `gorm:"index;not null"`
}

func (GormSessionEvent) TableName() string {
	return "session_events"
}

// NewGormSessionEvent converts a journal entry into its table row.
func NewGormSessionEvent(e SessionEvent) GormSessionEvent {
	return GormSessionEvent{
		PlayerID:   e.PlayerID,
		Kind:       string(e.Kind),
		Color:      e.Color,
		OccurredAt: e.OccurredAt,
	}
}
