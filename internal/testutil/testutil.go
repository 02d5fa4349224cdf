// Package testutil provides an in-memory store, fixtures and HTTP helpers
// for package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xelth-com/garmentflow/internal/database"
	"github.com/xelth-com/garmentflow/internal/models"
)

// OpenTestDB returns a migrated in-memory SQLite database private to t
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and serializes transactions
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Clock is a manually advanced time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)}
}

// Now returns the current clock time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock by d, which may be negative
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SeedCustomer stores a customer
func SeedCustomer(t *testing.T, db *gorm.DB) *models.Customer {
	t.Helper()
	c := &models.Customer{Name: "Northwind Apparel", Email: "buyer@northwind.test"}
	require.NoError(t, db.Create(c).Error)
	return c
}

// SeedOrder stores a sales order in status with one item per quantity
func SeedOrder(t *testing.T, db *gorm.DB, status models.SalesOrderStatus, quantities ...int) *models.SalesOrder {
	t.Helper()
	if len(quantities) == 0 {
		quantities = []int{100}
	}
	customer := SeedCustomer(t, db)
	order := &models.SalesOrder{
		CustomerID: customer.ID,
		Status:     status,
		OrderDate:  time.Now().UTC(),
		CreatedBy:  "sales-1",
	}
	for i, q := range quantities {
		order.Items = append(order.Items, models.SalesOrderItem{
			ProductName: "Oxford shirt",
			Style:       "OX-" + string(rune('A'+i)),
			Size:        "M",
			Color:       "white",
			Fabric:      "cotton",
			Quantity:    q,
			UnitPrice:   12.5,
		})
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

// SeedApprovedItem stores an approved order with a single item and returns the item
func SeedApprovedItem(t *testing.T, db *gorm.DB, quantity int) *models.SalesOrderItem {
	t.Helper()
	order := SeedOrder(t, db, models.SalesOrderStatusApproved, quantity)
	return &order.Items[0]
}

// SeedUser stores an active user with a bcrypt hashed password
func SeedUser(t *testing.T, db *gorm.DB, username, role, passwordHash string) *models.UserAuth {
	t.Helper()
	u := &models.UserAuth{
		Username: username,
		Email:    username + "@garmentflow.test",
		Password: passwordHash,
		Name:     username,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// DoRequest serves one request through handler. body is JSON encoded unless nil.
func DoRequest(t *testing.T, handler http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// Envelope is the JSON shape of every API response
type Envelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

// ParseResponse decodes the envelope and, when out is not nil, its data
func ParseResponse(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if out != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}
