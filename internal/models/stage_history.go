package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StageHistory is one interval spent by a work order in a stage.
// An entry with CompletedAt == nil is open.
type StageHistory struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	WorkOrderID string     `gorm:"type:varchar(36);not null;index:idx_stage_history_wo_stage" json:"workOrderId"`
	Stage       Stage      `gorm:"type:varchar(32);not null;index:idx_stage_history_wo_stage" json:"stage"`
	StartedAt   time.Time  `gorm:"not null" json:"startedAt"`
	CompletedAt *time.Time `gorm:"index" json:"completedAt,omitempty"`
	Duration    *int       `json:"duration,omitempty"` // minutes
	Notes       string     `gorm:"type:text" json:"notes"`
	UserID      string     `gorm:"not null" json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for StageHistory model
func (StageHistory) TableName() string {
	return "stage_histories"
}

// BeforeCreate assigns the id
func (h *StageHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

// IsOpen returns true while the stage is still running
func (h *StageHistory) IsOpen() bool {
	return h.CompletedAt == nil
}

// DurationMinutes returns whole minutes between from and to, truncated.
// The bool is false when to is before from; the result is then clamped to 0.
func DurationMinutes(from, to time.Time) (int, bool) {
	d := to.Sub(from)
	if d < 0 {
		return 0, false
	}
	return int(d / time.Minute), true
}
