package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SalesOrderStatus defines possible sales order statuses
type SalesOrderStatus string

const (
	SalesOrderStatusDraft     SalesOrderStatus = "draft"
	SalesOrderStatusPending   SalesOrderStatus = "pending"  // Awaiting approval
	SalesOrderStatusApproved  SalesOrderStatus = "approve"  // Work orders may be created
	SalesOrderStatusRejected  SalesOrderStatus = "rejected"
	SalesOrderStatusCancelled SalesOrderStatus = "cancelled"
)

// Customer is a buyer of garments
type Customer struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Code      string    `gorm:"uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"not null;index" json:"name"`
	Contact   string    `json:"contact"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Customer model
func (Customer) TableName() string {
	return "customers"
}

// BeforeCreate assigns the id and the customer code
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Code == "" {
		c.Code = generateNumber("CUS", c.CreatedAt)
	}
	return nil
}

// SalesOrder is a customer order made of garment line items
type SalesOrder struct {
	ID           string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderNumber  string           `gorm:"uniqueIndex;not null" json:"orderNumber"`
	CustomerID   string           `gorm:"type:varchar(36);not null;index" json:"customerId"`
	Status       SalesOrderStatus `gorm:"type:varchar(16);not null;default:draft;index" json:"status"`
	OrderDate    time.Time        `json:"orderDate"`
	DeliveryDate *time.Time       `json:"deliveryDate,omitempty"`
	Notes        string           `gorm:"type:text" json:"notes"`
	CreatedBy    string           `json:"createdBy"`
	ApprovedBy   string           `json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time       `json:"approvedAt,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`

	// Relations
	Customer *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Items    []SalesOrderItem `gorm:"foreignKey:SalesOrderID" json:"items,omitempty"`
}

// TableName specifies the table name for SalesOrder model
func (SalesOrder) TableName() string {
	return "sales_orders"
}

// BeforeCreate assigns the id and the order number
func (so *SalesOrder) BeforeCreate(tx *gorm.DB) error {
	if so.ID == "" {
		so.ID = uuid.New().String()
	}
	if so.OrderNumber == "" {
		so.OrderNumber = generateNumber("SO", so.CreatedAt)
	}
	return nil
}

// IsApproved returns true if work orders may be created from this order
func (so *SalesOrder) IsApproved() bool {
	return so.Status == SalesOrderStatusApproved
}

// SalesOrderItem is one garment line of a sales order
type SalesOrderItem struct {
	ID             string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SalesOrderID   string            `gorm:"type:varchar(36);not null;index" json:"salesOrderId"`
	ProductName    string            `gorm:"not null" json:"productName"`
	Style          string            `json:"style"`
	Size           string            `json:"size"`
	Color          string            `json:"color"`
	Fabric         string            `json:"fabric"`
	Quantity       int               `gorm:"not null" json:"quantity"`
	UnitPrice      float64           `json:"unitPrice"`
	Specifications datatypes.JSONMap `json:"specifications,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`

	// Relations
	SalesOrder *SalesOrder `gorm:"foreignKey:SalesOrderID" json:"salesOrder,omitempty"`
}

// TableName specifies the table name for SalesOrderItem model
func (SalesOrderItem) TableName() string {
	return "sales_order_items"
}

// BeforeCreate assigns the id
func (i *SalesOrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}
