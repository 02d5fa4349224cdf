package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SampleStatus is the state of an R&D sample request
type SampleStatus string

const (
	SampleStatusRequested     SampleStatus = "requested"
	SampleStatusInDevelopment SampleStatus = "in_development"
	SampleStatusSent          SampleStatus = "sent"
	SampleStatusApproved      SampleStatus = "approved"
	SampleStatusRejected      SampleStatus = "rejected"
)

// sampleTransitions lists the allowed moves out of each status
var sampleTransitions = map[SampleStatus][]SampleStatus{
	SampleStatusRequested:     {SampleStatusInDevelopment},
	SampleStatusInDevelopment: {SampleStatusSent},
	SampleStatusSent:          {SampleStatusApproved, SampleStatusRejected},
	SampleStatusRejected:      {SampleStatusInDevelopment},
}

// CanTransitionTo reports whether a sample may move from s to next
func (s SampleStatus) CanTransitionTo(next SampleStatus) bool {
	for _, allowed := range sampleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SampleRequest tracks a prototype garment requested by a customer
type SampleRequest struct {
	ID            string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RequestNumber string       `gorm:"uniqueIndex;not null" json:"requestNumber"`
	CustomerID    string       `gorm:"type:varchar(36);not null;index" json:"customerId"`
	Style         string       `gorm:"not null" json:"style"`
	Description   string       `gorm:"type:text" json:"description"`
	Status        SampleStatus `gorm:"type:varchar(16);not null;default:requested;index" json:"status"`
	DueDate       *time.Time   `json:"dueDate,omitempty"`
	Feedback      string       `gorm:"type:text" json:"feedback"`
	RequestedBy   string       `gorm:"not null" json:"requestedBy"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// TableName specifies the table name for SampleRequest model
func (SampleRequest) TableName() string {
	return "sample_requests"
}

// BeforeCreate assigns the id and the request number
func (s *SampleRequest) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.RequestNumber == "" {
		s.RequestNumber = generateNumber("SR", s.CreatedAt)
	}
	return nil
}
