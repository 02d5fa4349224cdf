package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// WorkOrder tracks one sales order item through the production stages.
// CurrentStage is only changed by the workflow engine.
type WorkOrder struct {
	ID                  string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	WorkOrderNumber     string     `gorm:"uniqueIndex;not null" json:"workOrderNumber"`
	SalesOrderID        string     `gorm:"type:varchar(36);not null;index" json:"salesOrderId"`
	SalesOrderItemID    string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"salesOrderItemId"`
	ProductName         string     `json:"productName"`
	Quantity            int        `gorm:"not null;default:0" json:"quantity"`
	CurrentStage        Stage      `gorm:"type:varchar(32);not null;index" json:"currentStage"`
	Priority            int        `gorm:"not null;default:5" json:"priority"` // 1 = most urgent
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	Notes               string     `gorm:"type:text" json:"notes"`
	CreatedBy           string     `gorm:"not null" json:"createdBy"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`

	// Relations
	SalesOrder     *SalesOrder     `gorm:"foreignKey:SalesOrderID" json:"salesOrder,omitempty"`
	SalesOrderItem *SalesOrderItem `gorm:"foreignKey:SalesOrderItemID" json:"salesOrderItem,omitempty"`
}

// TableName specifies the table name for WorkOrder model
func (WorkOrder) TableName() string {
	return "work_orders"
}

// BeforeCreate assigns the id and the work order number
func (wo *WorkOrder) BeforeCreate(tx *gorm.DB) error {
	if wo.ID == "" {
		wo.ID = uuid.New().String()
	}
	if wo.WorkOrderNumber == "" {
		wo.WorkOrderNumber = generateNumber("WO", wo.CreatedAt)
	}
	return nil
}

// IsCompleted returns true once the order reached the terminal stage
func (wo *WorkOrder) IsCompleted() bool {
	return wo.CurrentStage.IsTerminal()
}

// generateNumber builds PREFIX-YYYYMMDD-XXXX. The suffix comes from a random
// uuid so two numbers created in the same instant do not collide.
func generateNumber(prefix string, at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return prefix + "-" + at.Format("20060102") + "-" + suffix
}
