package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Disposition is the overall verdict of an inspection
type Disposition string

const (
	DispositionPass   Disposition = "pass"
	DispositionRepair Disposition = "repair"
	DispositionReject Disposition = "reject"
)

// IssueSeverity grades a defect
type IssueSeverity string

const (
	SeverityMinor    IssueSeverity = "minor"
	SeverityMajor    IssueSeverity = "major"
	SeverityCritical IssueSeverity = "critical"
)

// Valid reports whether the severity is known
func (s IssueSeverity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// IssueCategory tells whether a defect is repairable
type IssueCategory string

const (
	IssueCategoryRepair IssueCategory = "repair"
	IssueCategoryReject IssueCategory = "reject"
)

// Valid reports whether the category is known
func (c IssueCategory) Valid() bool {
	return c == IssueCategoryRepair || c == IssueCategoryReject
}

// QualityIssue is one defect found during an inspection
type QualityIssue struct {
	Type             string        `json:"type"`
	Severity         IssueSeverity `json:"severity"`
	Description      string        `json:"description"`
	Position         string        `json:"position,omitempty"`
	AffectedQuantity *int          `json:"affectedQuantity,omitempty"`
	Category         IssueCategory `json:"category"`
}

// InspectionCounts are the unit counts of an inspected batch
type InspectionCounts struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Repaired int `json:"repaired"`
	Rejected int `json:"rejected"`
}

// Balanced reports whether passed + repaired + rejected == total
func (c InspectionCounts) Balanced() bool {
	return c.Passed+c.Repaired+c.Rejected == c.Total
}

// QualityInspection is the recorded outcome of checking a batch of units
type QualityInspection struct {
	ID                   string                            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	WorkOrderID          string                            `gorm:"type:varchar(36);not null;index" json:"workOrderId"`
	Stage                Stage                             `gorm:"type:varchar(32);not null" json:"stage"`
	TotalQuantity        int                               `gorm:"not null" json:"totalQuantity"`
	PassedQuantity       int                               `gorm:"not null;default:0" json:"passedQuantity"`
	RepairedQuantity     int                               `gorm:"not null;default:0" json:"repairedQuantity"`
	RejectedQuantity     int                               `gorm:"not null;default:0" json:"rejectedQuantity"`
	Status               Disposition                       `gorm:"type:varchar(16);not null" json:"status"`
	FinalStatus          Disposition                       `gorm:"type:varchar(16);not null" json:"finalStatus"`
	Issues               datatypes.JSONSlice[QualityIssue] `json:"issues"`
	RepairNotes          string                            `gorm:"type:text" json:"repairNotes"`
	ReinspectionRequired bool                              `gorm:"default:false" json:"reinspectionRequired"`
	ReinspectionDate     *time.Time                        `json:"reinspectionDate,omitempty"`
	Notes                string                            `gorm:"type:text" json:"notes"`
	InspectorID          string                            `gorm:"not null" json:"inspectorId"`
	InspectedAt          time.Time                         `gorm:"not null" json:"inspectedAt"`
	CreatedAt            time.Time                         `json:"createdAt"`
	UpdatedAt            time.Time                         `json:"updatedAt"`
}

// TableName specifies the table name for QualityInspection model
func (QualityInspection) TableName() string {
	return "quality_inspections"
}

// BeforeCreate assigns the id
func (q *QualityInspection) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return nil
}

// Counts returns the unit counts of the inspection
func (q *QualityInspection) Counts() InspectionCounts {
	return InspectionCounts{
		Total:    q.TotalQuantity,
		Passed:   q.PassedQuantity,
		Repaired: q.RepairedQuantity,
		Rejected: q.RejectedQuantity,
	}
}
