// Package quality implements the quality gate: it records inspections, derives
// their disposition and moves work orders from quality control to finishing.
package quality

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/xelth-com/garmentflow/internal/apperr"
	"github.com/xelth-com/garmentflow/internal/models"
	"github.com/xelth-com/garmentflow/internal/services/workflow"
)

// Reinspection asks for a follow up inspection
type Reinspection struct {
	Required bool       `json:"required"`
	Date     *time.Time `json:"date,omitempty"`
}

// InspectionRequest is the input of RecordInspection
type InspectionRequest struct {
	WorkOrderID  string                  `json:"workOrderId"`
	Stage        models.Stage            `json:"stage"`
	Counts       models.InspectionCounts `json:"counts"`
	Issues       []models.QualityIssue   `json:"issues"`
	RepairNotes  string                  `json:"repairNotes"`
	Reinspection *Reinspection           `json:"reinspection,omitempty"`
	Notes        string                  `json:"notes"`
	InspectorID  string                  `json:"inspectorId"`
}

// Summary aggregates all inspections of a work order
type Summary struct {
	Inspections int                     `json:"inspections"`
	Counts      models.InspectionCounts `json:"counts"`
	Latest      models.Disposition      `json:"latest,omitempty"`
}

// Service is the quality gate engine
type Service struct {
	db     *gorm.DB
	engine *workflow.Engine
	logger *zap.Logger
}

// NewService creates the quality gate. Stage changes go through engine.
func NewService(db *gorm.DB, engine *workflow.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, engine: engine, logger: logger}
}

// Validate checks an inspection request without touching the store
func Validate(req InspectionRequest) error {
	c := req.Counts
	if c.Total < 0 || c.Passed < 0 || c.Repaired < 0 || c.Rejected < 0 {
		return apperr.New(apperr.CodeQuantityMismatch, "quantities must not be negative")
	}
	if !c.Balanced() {
		return apperr.New(apperr.CodeQuantityMismatch,
			"passed (%d) + repaired (%d) + rejected (%d) must equal total (%d)",
			c.Passed, c.Repaired, c.Rejected, c.Total).
			WithDetail("sum", c.Passed+c.Repaired+c.Rejected).
			WithDetail("total", c.Total)
	}
	if (c.Repaired > 0 || c.Rejected > 0) && len(req.Issues) == 0 {
		return apperr.New(apperr.CodeMissingIssues, "issues are required when units are repaired or rejected")
	}
	if req.Reinspection != nil && req.Reinspection.Required && req.Reinspection.Date == nil {
		return apperr.New(apperr.CodeMissingReinspectionDate, "reinspection date is required")
	}
	if c.Repaired > 0 && req.RepairNotes == "" {
		return apperr.New(apperr.CodeMissingRepairNotes, "repair notes are required when units are repaired")
	}
	for i, issue := range req.Issues {
		if !issue.Severity.Valid() {
			return apperr.New(apperr.CodeInvalidIssue, "issue %d has unknown severity %q", i, issue.Severity).
				WithDetail("index", i)
		}
		if !issue.Category.Valid() {
			return apperr.New(apperr.CodeInvalidIssue, "issue %d has unknown category %q", i, issue.Category).
				WithDetail("index", i)
		}
		if issue.AffectedQuantity != nil && (*issue.AffectedQuantity < 0 || *issue.AffectedQuantity > c.Total) {
			return apperr.New(apperr.CodeInvalidIssue, "issue %d affects %d units out of %d", i, *issue.AffectedQuantity, c.Total).
				WithDetail("index", i)
		}
	}
	return nil
}

// RecordInspection validates and stores an inspection. At quality control a
// salvageable batch without rejects moves the work order to finishing.
func (s *Service) RecordInspection(ctx context.Context, req InspectionRequest) (*models.QualityInspection, error) {
	if err := apperr.RequireActor(req.InspectorID); err != nil {
		return nil, err
	}
	if req.Stage == "" {
		req.Stage = models.StageQualityControl
	}
	if !req.Stage.Valid() {
		return nil, apperr.New(apperr.CodeInvalidStage, "unknown stage %q", req.Stage)
	}
	if err := Validate(req); err != nil {
		return nil, err
	}

	disposition := DeriveDisposition(req.Counts)
	advanced := false
	var inspection *models.QualityInspection
	var wo *models.WorkOrder

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		wo, err = s.engine.LockWorkOrder(tx, req.WorkOrderID)
		if err != nil {
			return err
		}

		now := s.engine.Now()
		inspection = &models.QualityInspection{
			WorkOrderID:      wo.ID,
			Stage:            req.Stage,
			TotalQuantity:    req.Counts.Total,
			PassedQuantity:   req.Counts.Passed,
			RepairedQuantity: req.Counts.Repaired,
			RejectedQuantity: req.Counts.Rejected,
			Status:           disposition,
			FinalStatus:      disposition,
			Issues:           datatypes.NewJSONSlice(req.Issues),
			RepairNotes:      req.RepairNotes,
			Notes:            req.Notes,
			InspectorID:      req.InspectorID,
			InspectedAt:      now,
		}
		if req.Issues == nil {
			inspection.Issues = datatypes.NewJSONSlice([]models.QualityIssue{})
		}
		if req.Reinspection != nil {
			inspection.ReinspectionRequired = req.Reinspection.Required
			inspection.ReinspectionDate = req.Reinspection.Date
		}
		if err := tx.Create(inspection).Error; err != nil {
			return fmt.Errorf("failed to store inspection: %w", err)
		}

		if req.Stage != models.StageQualityControl || !ShouldAdvance(req.Counts) {
			return nil
		}
		// only a work order waiting at quality control enters finishing
		if wo.CurrentStage != models.StageQualityControl {
			return nil
		}
		advanced = true
		return s.advanceToFinishing(tx, wo, req, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inspection recorded",
		zap.String("work_order", wo.WorkOrderNumber),
		zap.String("stage", string(req.Stage)),
		zap.String("disposition", string(disposition)),
		zap.Int("passed", req.Counts.Passed),
		zap.Int("repaired", req.Counts.Repaired),
		zap.Int("rejected", req.Counts.Rejected),
		zap.Bool("advanced", advanced),
	)
	if advanced {
		zero := 0
		s.engine.Publish(workflow.Event{
			Type:            workflow.EventStageAdvanced,
			WorkOrderID:     wo.ID,
			WorkOrderNumber: wo.WorkOrderNumber,
			Stage:           models.StageQualityControl,
			CurrentStage:    wo.CurrentStage,
			Duration:        &zero,
			UserID:          req.InspectorID,
			At:              inspection.InspectedAt,
		})
	}
	return inspection, nil
}

// advanceToFinishing force-closes the quality control entry and opens finishing.
// Inspection time is not counted as stage dwell time, so the duration is 0.
func (s *Service) advanceToFinishing(tx *gorm.DB, wo *models.WorkOrder, req InspectionRequest, now time.Time) error {
	entry, err := s.engine.FindOpenEntry(tx, wo.ID, models.StageQualityControl)
	if err != nil {
		return err
	}
	if entry != nil {
		note := fmt.Sprintf("QC completed by %s: %d passed, %d repaired, %d rejected",
			req.InspectorID, req.Counts.Passed, req.Counts.Repaired, req.Counts.Rejected)
		if err := s.engine.CloseEntry(tx, entry, now, 0, note); err != nil {
			return err
		}
	}
	if err := s.engine.AutoStart(tx, wo.ID, models.StageFinishing, req.InspectorID, models.StageQualityControl, now); err != nil {
		return err
	}
	return s.engine.MoveTo(tx, wo, models.StageFinishing, now)
}

// ListInspections returns the inspections of a work order, newest first
func (s *Service) ListInspections(ctx context.Context, workOrderID string) ([]models.QualityInspection, error) {
	var inspections []models.QualityInspection
	if err := s.db.WithContext(ctx).
		Where("work_order_id = ?", workOrderID).
		Order("inspected_at DESC").
		Find(&inspections).Error; err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	return inspections, nil
}

// UpdateInspectionNotes is the only edit allowed on a recorded inspection
func (s *Service) UpdateInspectionNotes(ctx context.Context, inspectionID, notes, userID string) (*models.QualityInspection, error) {
	if err := apperr.RequireActor(userID); err != nil {
		return nil, err
	}
	var inspection models.QualityInspection
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", inspectionID).First(&inspection).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.CodeNotFound, "inspection %s not found", inspectionID)
			}
			return fmt.Errorf("failed to load inspection: %w", err)
		}
		inspection.Notes = notes
		if err := tx.Model(&inspection).Update("notes", notes).Error; err != nil {
			return fmt.Errorf("failed to update inspection notes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Inspection notes edited",
		zap.String("inspection", inspectionID),
		zap.String("user", userID),
	)
	return &inspection, nil
}

// Summarize aggregates the counts of every inspection of a work order
func (s *Service) Summarize(ctx context.Context, workOrderID string) (*Summary, error) {
	inspections, err := s.ListInspections(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Inspections: len(inspections)}
	for i, insp := range inspections {
		sum.Counts.Total += insp.TotalQuantity
		sum.Counts.Passed += insp.PassedQuantity
		sum.Counts.Repaired += insp.RepairedQuantity
		sum.Counts.Rejected += insp.RejectedQuantity
		if i == 0 {
			sum.Latest = insp.FinalStatus
		}
	}
	return sum, nil
}
