// Package sales holds the customer and sales order records that feed the
// production workflow.
package sales

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

// CreateCustomerRequest is the payload for a new customer
type CreateCustomerRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// OrderItemRequest is one line of a new sales order
type OrderItemRequest struct {
	ProductName    string                 `json:"productName"`
	Style          string                 `json:"style"`
	Size           string                 `json:"size"`
	Color          string                 `json:"color"`
	Fabric         string                 `json:"fabric"`
	Quantity       int                    `json:"quantity"`
	UnitPrice      float64                `json:"unitPrice"`
	Specifications map[string]interface{} `json:"specifications,omitempty"`
}

// CreateOrderRequest is the payload for a new sales order
type CreateOrderRequest struct {
	CustomerID   string             `json:"customerId"`
	DeliveryDate *time.Time         `json:"deliveryDate,omitempty"`
	Notes        string             `json:"notes"`
	Submit       bool               `json:"submit"` // create as pending instead of draft
	Items        []OrderItemRequest `json:"items"`
}

// Service manages customers and sales orders
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a sales service
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger, now: time.Now}
}

// CreateCustomer stores a new customer
func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*models.Customer, error) {
	if req.Name == "" {
		return nil, apperr.New(apperr.CodeValidation, "customer name is required")
	}
	c := &models.Customer{
		Code:    req.Code,
		Name:    req.Name,
		Contact: req.Contact,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return c, nil
}

// ListCustomers returns all customers ordered by name
func (s *Service) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

// CreateOrder stores a sales order with its items
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest, createdBy string) (*models.SalesOrder, error) {
	if err := apperr.RequireActor(createdBy); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "a sales order needs at least one item")
	}
	for i, it := range req.Items {
		if it.ProductName == "" {
			return nil, apperr.New(apperr.CodeValidation, "item %d has no product name", i).WithDetail("index", i)
		}
		if it.Quantity <= 0 {
			return nil, apperr.New(apperr.CodeValidation, "item %d quantity must be positive", i).WithDetail("index", i)
		}
	}

	status := models.SalesOrderStatusDraft
	if req.Submit {
		status = models.SalesOrderStatusPending
	}
	order := &models.SalesOrder{
		CustomerID:   req.CustomerID,
		Status:       status,
		OrderDate:    s.now().UTC(),
		DeliveryDate: req.DeliveryDate,
		Notes:        req.Notes,
		CreatedBy:    createdBy,
	}
	for _, it := range req.Items {
		order.Items = append(order.Items, models.SalesOrderItem{
			ProductName:    it.ProductName,
			Style:          it.Style,
			Size:           it.Size,
			Color:          it.Color,
			Fabric:         it.Fabric,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Specifications: it.Specifications,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customers int64
		if err := tx.Model(&models.Customer{}).Where("id = ?", req.CustomerID).Count(&customers).Error; err != nil {
			return fmt.Errorf("failed to check customer: %w", err)
		}
		if customers == 0 {
			return apperr.New(apperr.CodeNotFound, "customer %s not found", req.CustomerID)
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create sales order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Sales order created", zap.String("order", order.OrderNumber), zap.Int("items", len(order.Items)))
	return order, nil
}

// GetOrder returns a sales order with customer and items
func (s *Service) GetOrder(ctx context.Context, id string) (*models.SalesOrder, error) {
	var order models.SalesOrder
	if err := s.db.WithContext(ctx).Preload("Customer").Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "sales order %s not found", id)
		}
		return nil, fmt.Errorf("failed to load sales order: %w", err)
	}
	return &order, nil
}

// ListOrders returns sales orders, newest first, optionally filtered by status
func (s *Service) ListOrders(ctx context.Context, status models.SalesOrderStatus) ([]models.SalesOrder, error) {
	query := s.db.WithContext(ctx).Preload("Customer")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var orders []models.SalesOrder
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list sales orders: %w", err)
	}
	return orders, nil
}

// Approve marks a draft or pending order as approved
func (s *Service) Approve(ctx context.Context, id, userID string) (*models.SalesOrder, error) {
	return s.decide(ctx, id, userID, models.SalesOrderStatusApproved)
}

// Reject marks a draft or pending order as rejected
func (s *Service) Reject(ctx context.Context, id, userID string) (*models.SalesOrder, error) {
	return s.decide(ctx, id, userID, models.SalesOrderStatusRejected)
}

func (s *Service) decide(ctx context.Context, id, userID string, to models.SalesOrderStatus) (*models.SalesOrder, error) {
	if err := apperr.RequireActor(userID); err != nil {
		return nil, err
	}
	var order models.SalesOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.CodeNotFound, "sales order %s not found", id)
			}
			return fmt.Errorf("failed to load sales order: %w", err)
		}
		if order.Status != models.SalesOrderStatusDraft && order.Status != models.SalesOrderStatusPending {
			return apperr.New(apperr.CodeInvalidTransition, "sales order %s is already %s", order.OrderNumber, order.Status)
		}
		order.Status = to
		updates := map[string]interface{}{"status": to}
		if to == models.SalesOrderStatusApproved {
			now := s.now().UTC()
			order.ApprovedBy = userID
			order.ApprovedAt = &now
			updates["approved_by"] = userID
			updates["approved_at"] = now
		}
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update sales order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Sales order decided",
		zap.String("order", order.OrderNumber),
		zap.String("status", string(to)),
		zap.String("user", userID),
	)
	return &order, nil
}
