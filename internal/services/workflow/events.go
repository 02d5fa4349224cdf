package workflow

import (
	"time"

	"github.com/xelth-com/garmentflow/internal/models"
)

// Event types published after a stage mutation is committed
const (
	EventStageStarted  = "stage.started"
	EventStageFinished = "stage.finished"
	EventStageUpdated  = "stage.updated"
	EventStageAdvanced = "stage.advanced"
)

// Event describes a committed stage change
type Event struct {
	Type            string       `json:"type"`
	WorkOrderID     string       `json:"workOrderId"`
	WorkOrderNumber string       `json:"workOrderNumber"`
	Stage           models.Stage `json:"stage"`
	CurrentStage    models.Stage `json:"currentStage"`
	Duration        *int         `json:"duration,omitempty"`
	UserID          string       `json:"userId"`
	At              time.Time    `json:"at"`
}

// Publisher receives stage events. Implementations must not block.
type Publisher interface {
	Publish(evt Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}
