// Package workorder creates work orders from approved sales order items and
// serves the read side of production tracking.
package workorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/garmentflow/internal/apperr"
	"github.com/xelth-com/garmentflow/internal/models"
	"github.com/xelth-com/garmentflow/internal/services/workflow"
)

// CreateOptions are the optional fields of a new work order
type CreateOptions struct {
	Priority            int        `json:"priority"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	Notes               string     `json:"notes"`
}

// ItemError reports why one item of a bulk request failed
type ItemError struct {
	SalesOrderItemID string      `json:"salesOrderItemId"`
	Code             apperr.Code `json:"code"`
	Message          string      `json:"message"`
}

// BulkSummary counts the outcome of a bulk request
type BulkSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BulkResult is returned by CreateBulkWorkOrders
type BulkResult struct {
	Created []models.WorkOrder `json:"created"`
	Errors  []ItemError        `json:"errors"`
	Summary BulkSummary        `json:"summary"`
}

// ListParams filters work order listings
type ListParams struct {
	Stage        models.Stage
	SalesOrderID string
	Keyword      string
	Page         int
	Size         int
}

// StageCount is one column of the production board
type StageCount struct {
	Stage models.Stage `json:"stage"`
	Label string       `json:"label"`
	Count int64        `json:"count"`
}

// Service creates and reads work orders
type Service struct {
	db     *gorm.DB
	engine *workflow.Engine
	logger *zap.Logger
}

// NewService creates a work order service
func NewService(db *gorm.DB, engine *workflow.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, engine: engine, logger: logger}
}

// CreateWorkOrder turns an approved sales order item into a work order at
// order_processing and opens its first history entry at the same instant.
func (s *Service) CreateWorkOrder(ctx context.Context, salesOrderItemID, createdBy string, opts CreateOptions) (*models.WorkOrder, error) {
	if err := apperr.RequireActor(createdBy); err != nil {
		return nil, err
	}
	priority := opts.Priority
	if priority == 0 {
		priority = models.DefaultPriority
	}
	if priority < models.MinPriority || priority > models.MaxPriority {
		return nil, apperr.New(apperr.CodeInvalidPriority, "priority must be between %d and %d, got %d",
			models.MinPriority, models.MaxPriority, priority)
	}

	var wo *models.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.SalesOrderItem
		if err := tx.Where("id = ?", salesOrderItemID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.CodeNotFound, "sales order item %s not found", salesOrderItemID)
			}
			return fmt.Errorf("failed to load sales order item: %w", err)
		}

		var order models.SalesOrder
		if err := tx.Where("id = ?", item.SalesOrderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.CodeNotFound, "sales order %s not found", item.SalesOrderID)
			}
			return fmt.Errorf("failed to load sales order: %w", err)
		}
		if !order.IsApproved() {
			return apperr.New(apperr.CodeNotApproved, "sales order %s is %s, not approved", order.OrderNumber, order.Status).
				WithDetail("status", string(order.Status))
		}

		var existing int64
		if err := tx.Model(&models.WorkOrder{}).Where("sales_order_item_id = ?", item.ID).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing work orders: %w", err)
		}
		if existing > 0 {
			return apperr.New(apperr.CodeAlreadyExists, "a work order already exists for item %s", item.ID).
				WithDetail("salesOrderItemId", item.ID)
		}

		now := s.engine.Now()
		wo = &models.WorkOrder{
			SalesOrderID:        order.ID,
			SalesOrderItemID:    item.ID,
			ProductName:         item.ProductName,
			Quantity:            item.Quantity,
			CurrentStage:        models.StageOrderProcessing,
			Priority:            priority,
			StartedAt:           &now,
			EstimatedCompletion: opts.EstimatedCompletion,
			Notes:               opts.Notes,
			CreatedBy:           createdBy,
		}
		if err := tx.Create(wo).Error; err != nil {
			return fmt.Errorf("failed to create work order: %w", err)
		}

		_, err := s.engine.OpenEntry(tx, wo.ID, models.StageOrderProcessing, createdBy, "work order created", now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Work order created",
		zap.String("work_order", wo.WorkOrderNumber),
		zap.String("sales_order_item", salesOrderItemID),
		zap.String("user", createdBy),
	)
	s.engine.Publish(workflow.Event{
		Type:            workflow.EventStageStarted,
		WorkOrderID:     wo.ID,
		WorkOrderNumber: wo.WorkOrderNumber,
		Stage:           models.StageOrderProcessing,
		CurrentStage:    models.StageOrderProcessing,
		UserID:          createdBy,
		At:              *wo.StartedAt,
	})
	return wo, nil
}

// CreateBulkWorkOrders creates one work order per item. Items are independent:
// a failed item is reported and the rest of the batch continues.
func (s *Service) CreateBulkWorkOrders(ctx context.Context, itemIDs []string, createdBy string) (*BulkResult, error) {
	if err := apperr.RequireActor(createdBy); err != nil {
		return nil, err
	}
	result := &BulkResult{
		Created: []models.WorkOrder{},
		Errors:  []ItemError{},
		Summary: BulkSummary{Total: len(itemIDs)},
	}
	for _, id := range itemIDs {
		wo, err := s.CreateWorkOrder(ctx, id, createdBy, CreateOptions{})
		if err != nil {
			if !apperr.IsBusiness(err) {
				s.logger.Error("Bulk work order creation failed", zap.String("sales_order_item", id), zap.Error(err))
			}
			result.Errors = append(result.Errors, itemError(id, err))
			continue
		}
		result.Created = append(result.Created, *wo)
	}
	result.Summary.Successful = len(result.Created)
	result.Summary.Failed = len(result.Errors)
	return result, nil
}

func itemError(id string, err error) ItemError {
	if e, ok := apperr.As(err); ok {
		return ItemError{SalesOrderItemID: id, Code: e.Code, Message: e.Message}
	}
	return ItemError{SalesOrderItemID: id, Code: "INTERNAL", Message: err.Error()}
}

// Get returns a work order with its sales order item
func (s *Service) Get(ctx context.Context, id string) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	if err := s.db.WithContext(ctx).Preload("SalesOrderItem").Where("id = ?", id).First(&wo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "work order %s not found", id)
		}
		return nil, fmt.Errorf("failed to load work order: %w", err)
	}
	return &wo, nil
}

func (s *Service) filtered(ctx context.Context, params ListParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.WorkOrder{})
	if params.Stage != "" {
		query = query.Where("current_stage = ?", params.Stage)
	}
	if params.SalesOrderID != "" {
		query = query.Where("sales_order_id = ?", params.SalesOrderID)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("work_order_number LIKE ? OR product_name LIKE ?", kw, kw)
	}
	return query
}

// List returns a page of work orders, most urgent first
func (s *Service) List(ctx context.Context, params ListParams) ([]models.WorkOrder, int64, error) {
	query := s.filtered(ctx, params)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count work orders: %w", err)
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}

	var wos []models.WorkOrder
	err := query.Order("priority ASC").Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&wos).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list work orders: %w", err)
	}
	return wos, total, nil
}

// Export returns every work order matching params in list order, without paging
func (s *Service) Export(ctx context.Context, params ListParams) ([]models.WorkOrder, error) {
	var wos []models.WorkOrder
	if err := s.filtered(ctx, params).Order("priority ASC").Order("created_at DESC").Find(&wos).Error; err != nil {
		return nil, fmt.Errorf("failed to export work orders: %w", err)
	}
	return wos, nil
}

// StageBoard counts work orders per stage in workflow order
func (s *Service) StageBoard(ctx context.Context) ([]StageCount, error) {
	var rows []struct {
		CurrentStage models.Stage
		Count        int64
	}
	if err := s.db.WithContext(ctx).Model(&models.WorkOrder{}).
		Select("current_stage, COUNT(*) AS count").
		Group("current_stage").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count work orders per stage: %w", err)
	}
	counts := make(map[models.Stage]int64, len(rows))
	for _, r := range rows {
		counts[r.CurrentStage] = r.Count
	}
	board := make([]StageCount, 0, len(models.StageSequence))
	for _, st := range models.StageSequence {
		board = append(board, StageCount{Stage: st, Label: st.Label(), Count: counts[st]})
	}
	return board, nil
}
