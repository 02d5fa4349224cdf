// Package workflow implements the stage transition engine that moves work
// orders through the production stages and keeps the stage history ledger.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/garmentflow/internal/apperr"
	"github.com/xelth-com/garmentflow/internal/models"
)

// StageResult is returned by StartStage and UpdateStage
type StageResult struct {
	Entry     *models.StageHistory `json:"entry"`
	WorkOrder *models.WorkOrder    `json:"workOrder"`
}

// FinishResult is returned by FinishStage
type FinishResult struct {
	Entry     *models.StageHistory `json:"entry"`
	WorkOrder *models.WorkOrder    `json:"workOrder"`
	Duration  int                  `json:"duration"`
	NextStage models.Stage         `json:"nextStage"`
}

// Engine owns WorkOrder.CurrentStage and the stage history ledger
type Engine struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
	events Publisher
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPublisher sets the receiver of committed stage events
func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.events = p
		}
	}
}

// NewEngine creates a stage transition engine over db
func NewEngine(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		now:    time.Now,
		logger: zap.NewNop(),
		events: nopPublisher{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock reading, used by collaborators sharing a transaction
func (e *Engine) Now() time.Time {
	return e.now().UTC()
}

// Publish forwards an event to the configured publisher
func (e *Engine) Publish(evt Event) {
	e.events.Publish(evt)
}

// StartStage opens a history entry for stage and makes it the current stage.
// It fails with StageAlreadyStarted when an open entry already exists.
func (e *Engine) StartStage(ctx context.Context, workOrderID string, stage models.Stage, userID, notes string) (*StageResult, error) {
	if err := apperr.RequireActor(userID); err != nil {
		return nil, err
	}
	if !stage.Valid() {
		return nil, apperr.New(apperr.CodeInvalidStage, "unknown stage %q", stage)
	}
	if stage.IsTerminal() {
		return nil, apperr.New(apperr.CodeInvalidTransition, "stage %s is reached by finishing dispatch, it cannot be started", stage).
			WithDetail("stage", string(stage))
	}

	var result *StageResult
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := e.LockWorkOrder(tx, workOrderID)
		if err != nil {
			return err
		}

		open, err := e.FindOpenEntry(tx, wo.ID, stage)
		if err != nil {
			return err
		}
		if open != nil {
			return apperr.New(apperr.CodeStageAlreadyStarted, "stage %s is already running", stage).
				WithDetail("entryId", open.ID)
		}

		now := e.Now()
		entry, err := e.OpenEntry(tx, wo.ID, stage, userID, notes, now)
		if err != nil {
			return err
		}

		wo.CurrentStage = stage
		if stage == models.StageOrderProcessing {
			wo.StartedAt = &now
		}
		if err := e.SaveWorkOrder(tx, wo); err != nil {
			return err
		}

		result = &StageResult{Entry: entry, WorkOrder: wo}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Stage started",
		zap.String("work_order", result.WorkOrder.WorkOrderNumber),
		zap.String("stage", string(stage)),
		zap.String("user", userID),
	)
	e.Publish(Event{
		Type:            EventStageStarted,
		WorkOrderID:     result.WorkOrder.ID,
		WorkOrderNumber: result.WorkOrder.WorkOrderNumber,
		Stage:           stage,
		CurrentStage:    result.WorkOrder.CurrentStage,
		UserID:          userID,
		At:              result.Entry.StartedAt,
	})
	return result, nil
}

// FinishStage closes the open entry for stage, advances the work order to the
// next stage and auto-starts it unless the next stage is delivered.
func (e *Engine) FinishStage(ctx context.Context, workOrderID string, stage models.Stage, userID, notes string) (*FinishResult, error) {
	if err := apperr.RequireActor(userID); err != nil {
		return nil, err
	}
	if !stage.Valid() {
		return nil, apperr.New(apperr.CodeInvalidStage, "unknown stage %q", stage)
	}

	var result *FinishResult
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := e.LockWorkOrder(tx, workOrderID)
		if err != nil {
			return err
		}

		entry, err := e.FindOpenEntry(tx, wo.ID, stage)
		if err != nil {
			return err
		}
		if entry == nil {
			return apperr.New(apperr.CodeStageNotFound, "no running %s stage for work order %s", stage, wo.WorkOrderNumber)
		}

		now := e.Now()
		duration, ok := models.DurationMinutes(entry.StartedAt, now)
		if !ok {
			e.logger.Warn("Negative stage duration clamped to zero",
				zap.String("work_order", wo.WorkOrderNumber),
				zap.String("stage", string(stage)),
				zap.Time("started_at", entry.StartedAt),
				zap.Time("finished_at", now),
			)
		}
		if err := e.CloseEntry(tx, entry, now, duration, notes); err != nil {
			return err
		}

		next := stage.Next()
		if err := e.MoveTo(tx, wo, next, now); err != nil {
			return err
		}

		if next != models.StageDelivered {
			if err := e.AutoStart(tx, wo.ID, next, userID, stage, now); err != nil {
				return err
			}
		}

		result = &FinishResult{Entry: entry, WorkOrder: wo, Duration: duration, NextStage: next}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Stage finished",
		zap.String("work_order", result.WorkOrder.WorkOrderNumber),
		zap.String("stage", string(stage)),
		zap.String("next_stage", string(result.NextStage)),
		zap.Int("duration_min", result.Duration),
		zap.String("user", userID),
	)
	duration := result.Duration
	e.Publish(Event{
		Type:            EventStageFinished,
		WorkOrderID:     result.WorkOrder.ID,
		WorkOrderNumber: result.WorkOrder.WorkOrderNumber,
		Stage:           stage,
		CurrentStage:    result.NextStage,
		Duration:        &duration,
		UserID:          userID,
		At:              *result.Entry.CompletedAt,
	})
	return result, nil
}

// UpdateStage is the administrative override that jumps a work order to any
// stage. It closes the open entry of the current stage, if there is one, and
// opens an entry for newStage. It is not part of the sequential workflow.
func (e *Engine) UpdateStage(ctx context.Context, workOrderID string, newStage models.Stage, userID, notes string) (*StageResult, error) {
	if err := apperr.RequireActor(userID); err != nil {
		return nil, err
	}
	if !newStage.Valid() {
		return nil, apperr.New(apperr.CodeInvalidStage, "unknown stage %q", newStage)
	}

	var result *StageResult
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo, err := e.LockWorkOrder(tx, workOrderID)
		if err != nil {
			return err
		}
		previous := wo.CurrentStage
		now := e.Now()

		current, err := e.FindOpenEntry(tx, wo.ID, previous)
		if err != nil {
			return err
		}
		if current != nil {
			duration, _ := models.DurationMinutes(current.StartedAt, now)
			note := fmt.Sprintf("closed by manual move to %s", newStage)
			if err := e.CloseEntry(tx, current, now, duration, note); err != nil {
				return err
			}
		}

		entry, err := e.FindOpenEntry(tx, wo.ID, newStage)
		if err != nil {
			return err
		}
		if entry == nil {
			entry, err = e.OpenEntry(tx, wo.ID, newStage, userID, notes, now)
			if err != nil {
				return err
			}
		}
		if newStage == models.StageDelivered {
			// delivered is a milestone, never a running stage
			if err := e.CloseEntry(tx, entry, now, 0, ""); err != nil {
				return err
			}
		}

		if err := e.MoveTo(tx, wo, newStage, now); err != nil {
			return err
		}
		result = &StageResult{Entry: entry, WorkOrder: wo}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Warn("Stage overridden manually",
		zap.String("work_order", result.WorkOrder.WorkOrderNumber),
		zap.String("stage", string(newStage)),
		zap.String("user", userID),
	)
	e.Publish(Event{
		Type:            EventStageUpdated,
		WorkOrderID:     result.WorkOrder.ID,
		WorkOrderNumber: result.WorkOrder.WorkOrderNumber,
		Stage:           newStage,
		CurrentStage:    result.WorkOrder.CurrentStage,
		UserID:          userID,
		At:              result.Entry.StartedAt,
	})
	return result, nil
}

// History returns the ledger of a work order in chronological order
func (e *Engine) History(ctx context.Context, workOrderID string) ([]models.StageHistory, error) {
	if _, err := e.loadWorkOrder(e.db.WithContext(ctx), workOrderID); err != nil {
		return nil, err
	}
	var entries []models.StageHistory
	if err := e.db.WithContext(ctx).
		Where("work_order_id = ?", workOrderID).
		Order("started_at ASC").Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load stage history: %w", err)
	}
	return entries, nil
}

// OpenEntries returns the entries of a work order that are still running
func (e *Engine) OpenEntries(ctx context.Context, workOrderID string) ([]models.StageHistory, error) {
	var entries []models.StageHistory
	if err := e.db.WithContext(ctx).
		Where("work_order_id = ? AND completed_at IS NULL", workOrderID).
		Order("started_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load open stages: %w", err)
	}
	return entries, nil
}

// --- transaction scoped building blocks, shared with the quality gate ---

// LockWorkOrder loads the work order inside tx and locks its row
func (e *Engine) LockWorkOrder(tx *gorm.DB, workOrderID string) (*models.WorkOrder, error) {
	return e.loadWorkOrder(tx.Clauses(clause.Locking{Strength: "UPDATE"}), workOrderID)
}

func (e *Engine) loadWorkOrder(db *gorm.DB, workOrderID string) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	if err := db.Where("id = ?", workOrderID).First(&wo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "work order %s not found", workOrderID)
		}
		return nil, fmt.Errorf("failed to load work order: %w", err)
	}
	return &wo, nil
}

// FindOpenEntry returns the open entry for (work order, stage), or nil
func (e *Engine) FindOpenEntry(tx *gorm.DB, workOrderID string, stage models.Stage) (*models.StageHistory, error) {
	var entries []models.StageHistory
	if err := tx.
		Where("work_order_id = ? AND stage = ? AND completed_at IS NULL", workOrderID, stage).
		Order("started_at DESC").
		Limit(1).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to look up open stage entry: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// OpenEntry inserts a running entry for stage
func (e *Engine) OpenEntry(tx *gorm.DB, workOrderID string, stage models.Stage, userID, notes string, at time.Time) (*models.StageHistory, error) {
	entry := &models.StageHistory{
		WorkOrderID: workOrderID,
		Stage:       stage,
		StartedAt:   at,
		Notes:       notes,
		UserID:      userID,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to open stage entry: %w", err)
	}
	return entry, nil
}

// CloseEntry completes an open entry. Non-empty notes replace the existing ones.
func (e *Engine) CloseEntry(tx *gorm.DB, entry *models.StageHistory, at time.Time, duration int, notes string) error {
	entry.CompletedAt = &at
	entry.Duration = &duration
	if notes != "" {
		entry.Notes = notes
	}
	if err := tx.Save(entry).Error; err != nil {
		return fmt.Errorf("failed to close stage entry: %w", err)
	}
	return nil
}

// SaveWorkOrder persists the work order fields owned by the engine
func (e *Engine) SaveWorkOrder(tx *gorm.DB, wo *models.WorkOrder) error {
	if err := tx.Model(wo).Select("current_stage", "started_at", "completed_at", "updated_at").Updates(wo).Error; err != nil {
		return fmt.Errorf("failed to update work order: %w", err)
	}
	return nil
}

// MoveTo sets the current stage. CompletedAt is set only at delivered.
func (e *Engine) MoveTo(tx *gorm.DB, wo *models.WorkOrder, stage models.Stage, at time.Time) error {
	wo.CurrentStage = stage
	if stage == models.StageDelivered {
		wo.CompletedAt = &at
	} else {
		wo.CompletedAt = nil
	}
	return e.SaveWorkOrder(tx, wo)
}

// AutoStart opens an entry for stage unless one is already running
func (e *Engine) AutoStart(tx *gorm.DB, workOrderID string, stage models.Stage, userID string, after models.Stage, at time.Time) error {
	open, err := e.FindOpenEntry(tx, workOrderID, stage)
	if err != nil {
		return err
	}
	if open != nil {
		return nil
	}
	_, err = e.OpenEntry(tx, workOrderID, stage, userID, fmt.Sprintf("auto-started after completing %s", after), at)
	return err
}
