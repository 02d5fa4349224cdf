// Package samples tracks R&D sample requests from customers
package samples

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/garmentflow/internal/apperr"
	"github.com/xelth-com/garmentflow/internal/models"
)

// CreateRequest is the payload for a new sample request
type CreateRequest struct {
	CustomerID  string     `json:"customerId"`
	Style       string     `json:"style"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Service manages sample requests
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a sample request service
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// Create stores a new request in the requested status
func (s *Service) Create(ctx context.Context, req CreateRequest, requestedBy string) (*models.SampleRequest, error) {
	if err := apperr.RequireActor(requestedBy); err != nil {
		return nil, err
	}
	if req.Style == "" {
		return nil, apperr.New(apperr.CodeValidation, "style is required")
	}
	sample := &models.SampleRequest{
		CustomerID:  req.CustomerID,
		Style:       req.Style,
		Description: req.Description,
		Status:      models.SampleStatusRequested,
		DueDate:     req.DueDate,
		RequestedBy: requestedBy,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customers int64
		if err := tx.Model(&models.Customer{}).Where("id = ?", req.CustomerID).Count(&customers).Error; err != nil {
			return fmt.Errorf("failed to check customer: %w", err)
		}
		if customers == 0 {
			return apperr.New(apperr.CodeNotFound, "customer %s not found", req.CustomerID)
		}
		if err := tx.Create(sample).Error; err != nil {
			return fmt.Errorf("failed to create sample request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// Get returns a sample request
func (s *Service) Get(ctx context.Context, id string) (*models.SampleRequest, error) {
	var sample models.SampleRequest
	if err := s.db.WithContext(ctx).Preload("Customer").Where("id = ?", id).First(&sample).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "sample request %s not found", id)
		}
		return nil, fmt.Errorf("failed to load sample request: %w", err)
	}
	return &sample, nil
}

// List returns sample requests, optionally filtered by status
func (s *Service) List(ctx context.Context, status models.SampleStatus) ([]models.SampleRequest, error) {
	query := s.db.WithContext(ctx).Preload("Customer")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var out []models.SampleRequest
	if err := query.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list sample requests: %w", err)
	}
	return out, nil
}

// Transition moves a sample request to a new status
func (s *Service) Transition(ctx context.Context, id string, to models.SampleStatus, feedback, userID string) (*models.SampleRequest, error) {
	if err := apperr.RequireActor(userID); err != nil {
		return nil, err
	}
	var sample models.SampleRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&sample).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.CodeNotFound, "sample request %s not found", id)
			}
			return fmt.Errorf("failed to load sample request: %w", err)
		}
		if !sample.Status.CanTransitionTo(to) {
			return apperr.New(apperr.CodeInvalidTransition, "cannot move sample from %s to %s", sample.Status, to).
				WithDetail("from", string(sample.Status)).
				WithDetail("to", string(to))
		}
		updates := map[string]interface{}{"status": to}
		if feedback != "" {
			updates["feedback"] = feedback
			sample.Feedback = feedback
		}
		sample.Status = to
		if err := tx.Model(&sample).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update sample request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Sample request moved",
		zap.String("sample", sample.RequestNumber),
		zap.String("status", string(to)),
		zap.String("user", userID),
	)
	return &sample, nil
}
