package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xelth-com/garmentflow/internal/apperr"
	"github.com/xelth-com/garmentflow/internal/config"
	"github.com/xelth-com/garmentflow/internal/models"
	"github.com/xelth-com/garmentflow/internal/services/quality"
	"github.com/xelth-com/garmentflow/internal/services/sales"
	"github.com/xelth-com/garmentflow/internal/services/samples"
	"github.com/xelth-com/garmentflow/internal/services/workflow"
	"github.com/xelth-com/garmentflow/internal/services/workorder"
	"github.com/xelth-com/garmentflow/internal/testutil"
	"github.com/xelth-com/garmentflow/internal/utils"
)

const testSecret = "handler-test-secret"

type apiFixture struct {
	db     *gorm.DB
	clock  *testutil.Clock
	router *Router
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	db := testutil.OpenTestDB(t)
	clock := testutil.NewClock()
	engine := workflow.NewEngine(db, workflow.WithClock(clock.Now))
	cfg := &config.Config{
		JWTSecret: testSecret,
		Documents: config.DocumentConfig{CompanyName: "Test Garments", TravelerBaseURL: "http://plant.test"},
	}
	router := NewRouter(db, cfg, Services{
		Engine:     engine,
		WorkOrders: workorder.NewService(db, engine, nil),
		Quality:    quality.NewService(db, engine, nil),
		Sales:      sales.NewService(db, nil),
		Samples:    samples.NewService(db, nil),
	}, nil, nil)
	return &apiFixture{db: db, clock: clock, router: router}
}

func (f *apiFixture) token(t *testing.T, role string) string {
	t.Helper()
	user := testutil.SeedUser(t, f.db, role+"-user", role, "unused")
	access, _, err := utils.GenerateTokens(user, testSecret, time.Now())
	require.NoError(t, err)
	return access
}

func TestHealth(t *testing.T) {
	f := newAPI(t)

	rec := testutil.DoRequest(t, f.router, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data map[string]interface{}
	env := testutil.ParseResponse(t, rec, &data)
	assert.True(t, env.Success)
	assert.Equal(t, "ok", data["status"])
}

func TestAPIRequiresToken(t *testing.T) {
	f := newAPI(t)

	rec := testutil.DoRequest(t, f.router, http.MethodGet, "/api/work-orders", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := testutil.ParseResponse(t, rec, nil)
	assert.False(t, env.Success)
	assert.Equal(t, "UNAUTHORIZED", env.Error)

	rec = testutil.DoRequest(t, f.router, http.MethodGet, "/api/work-orders", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAPI(t)

	body := map[string]string{"username": "lead", "email": "lead@plant.test", "password": "s3cret-pass", "name": "Line Lead"}
	rec := testutil.DoRequest(t, f.router, http.MethodPost, "/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg struct {
		User models.UserAuth `json:"user"`
	}
	testutil.ParseResponse(t, rec, &reg)
	assert.Equal(t, models.RoleAdmin, reg.User.Role, "first account is admin")

	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/auth/register", body, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	second := map[string]string{"username": "op", "email": "op@plant.test", "password": "another-pass"}
	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/auth/register", second, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	testutil.ParseResponse(t, rec, &reg)
	assert.Equal(t, models.RoleOperator, reg.User.Role)

	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/auth/login", map[string]string{"login": "lead", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/auth/login", map[string]string{"login": "lead@plant.test", "password": "s3cret-pass"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Tokens map[string]string `json:"tokens"`
	}
	testutil.ParseResponse(t, rec, &login)
	require.NotEmpty(t, login.Tokens["accessToken"])

	rec = testutil.DoRequest(t, f.router, http.MethodGet, "/api/customers", nil, login.Tokens["accessToken"])
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProductionFlowOverHTTP(t *testing.T) {
	f := newAPI(t)
	sup := f.token(t, models.RoleSupervisor)
	op := f.token(t, models.RoleOperator)

	// customer and order
	rec := testutil.DoRequest(t, f.router, http.MethodPost, "/api/customers", map[string]string{"name": "Acme Uniforms"}, op)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var customer models.Customer
	testutil.ParseResponse(t, rec, &customer)

	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/api/sales-orders", map[string]interface{}{
		"customerId": customer.ID,
		"submit":     true,
		"items":      []map[string]interface{}{{"productName": "Work shirt", "quantity": 5}},
	}, op)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order models.SalesOrder
	testutil.ParseResponse(t, rec, &order)
	itemID := order.Items[0].ID

	// not approved yet
	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/api/work-orders", map[string]string{"salesOrderItemId": itemID}, op)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(apperr.CodeNotApproved), testutil.ParseResponse(t, rec, nil).Error)

	// operators may not approve
	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/api/sales-orders/"+order.ID+"/approve", nil, op)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/api/sales-orders/"+order.ID+"/approve", nil, sup)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/api/work-orders", map[string]interface{}{"salesOrderItemId": itemID, "priority": 2}, op)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var wo models.WorkOrder
	testutil.ParseResponse(t, rec, &wo)
	assert.Equal(t, models.StageOrderProcessing, wo.CurrentStage)

	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/api/work-orders", map[string]string{"salesOrderItemId": itemID}, op)
	require.Equal(t, http.StatusConflict, rec.Code)

	// start an already running stage
	base := "/api/work-orders/" + wo.ID
	rec = testutil.DoRequest(t, f.router, http.MethodPost, base+"/stages/order_processing/start", nil, op)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(apperr.CodeStageAlreadyStarted), testutil.ParseResponse(t, rec, nil).Error)

	rec = testutil.DoRequest(t, f.router, http.MethodPost, base+"/stages/ironing/start", nil, op)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// walk to quality control
	for _, stage := range []models.Stage{models.StageOrderProcessing, models.StageMaterialProcurement, models.StageCutting, models.StageSewingAssembly} {
		f.clock.Advance(125 * time.Second)
		rec = testutil.DoRequest(t, f.router, http.MethodPost, base+"/stages/"+string(stage)+"/finish", map[string]string{"notes": "done"}, op)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res workflow.FinishResult
		testutil.ParseResponse(t, rec, &res)
		assert.Equal(t, 2, res.Duration)
		assert.Equal(t, stage.Next(), res.NextStage)
	}

	rec = testutil.DoRequest(t, f.router, http.MethodPost, base+"/stages/cutting/finish", nil, op)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// quality gate
	rec = testutil.DoRequest(t, f.router, http.MethodPost, base+"/inspections", map[string]interface{}{
		"counts": map[string]int{"total": 5, "passed": 3, "repaired": 2, "rejected": 1},
	}, op)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := testutil.ParseResponse(t, rec, nil)
	assert.Equal(t, string(apperr.CodeQuantityMismatch), env.Error)
	assert.EqualValues(t, 6, env.Details["sum"])

	rec = testutil.DoRequest(t, f.router, http.MethodPost, base+"/inspections", map[string]interface{}{
		"counts":      map[string]int{"total": 5, "passed": 3, "repaired": 2},
		"issues":      []map[string]string{{"type": "loose thread", "severity": "minor", "category": "repair", "description": "hem"}},
		"repairNotes": "hem re-stitched",
	}, op)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var insp models.QualityInspection
	testutil.ParseResponse(t, rec, &insp)
	assert.Equal(t, models.DispositionRepair, insp.FinalStatus)

	rec = testutil.DoRequest(t, f.router, http.MethodGet, base, nil, op)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.ParseResponse(t, rec, &wo)
	assert.Equal(t, models.StageFinishing, wo.CurrentStage)

	rec = testutil.DoRequest(t, f.router, http.MethodPatch, "/api/inspections/"+insp.ID+"/notes", map[string]string{"notes": "ok after rework"}, op)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.DoRequest(t, f.router, http.MethodGet, base+"/inspections/summary", nil, op)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum quality.Summary
	testutil.ParseResponse(t, rec, &sum)
	assert.Equal(t, 1, sum.Inspections)

	// history and board
	rec = testutil.DoRequest(t, f.router, http.MethodGet, base+"/history", nil, op)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.StageHistory
	testutil.ParseResponse(t, rec, &history)
	assert.Len(t, history, 6)

	rec = testutil.DoRequest(t, f.router, http.MethodGet, "/api/work-orders/board", nil, op)
	require.Equal(t, http.StatusOK, rec.Code)
	var board []workorder.StageCount
	testutil.ParseResponse(t, rec, &board)
	assert.Equal(t, int64(1), board[models.StageFinishing.Index()].Count)

	// legacy override is supervisor only
	rec = testutil.DoRequest(t, f.router, http.MethodPut, base+"/stage", map[string]string{"stage": "dispatch"}, op)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = testutil.DoRequest(t, f.router, http.MethodPut, base+"/stage", map[string]string{"stage": "dispatch"}, sup)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// documents
	rec = testutil.DoRequest(t, f.router, http.MethodGet, base+"/traveler", nil, op)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "%PDF-")

	rec = testutil.DoRequest(t, f.router, http.MethodGet, "/api/work-orders/export", nil, op)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "work_orders_")
	assert.NotZero(t, rec.Body.Len())
}

func TestBulkWorkOrdersOverHTTP(t *testing.T) {
	f := newAPI(t)
	op := f.token(t, models.RoleOperator)
	order := testutil.SeedOrder(t, f.db, models.SalesOrderStatusApproved, 10, 20, 30)
	ids := []string{order.Items[0].ID, order.Items[1].ID, order.Items[2].ID}

	rec := testutil.DoRequest(t, f.router, http.MethodPost, "/api/work-orders", map[string]string{"salesOrderItemId": ids[1]}, op)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/api/work-orders/bulk", map[string]interface{}{"salesOrderItemIds": ids}, op)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result workorder.BulkResult
	testutil.ParseResponse(t, rec, &result)
	assert.Equal(t, workorder.BulkSummary{Total: 3, Successful: 2, Failed: 1}, result.Summary)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ids[1], result.Errors[0].SalesOrderItemID)

	rec = testutil.DoRequest(t, f.router, http.MethodGet, "/api/work-orders?size=2", nil, op)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []models.WorkOrder `json:"items"`
		Total int64              `json:"total"`
	}
	testutil.ParseResponse(t, rec, &page)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 2)

	rec = testutil.DoRequest(t, f.router, http.MethodGet, "/api/work-orders?stage=ironing", nil, op)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSamplesOverHTTP(t *testing.T) {
	f := newAPI(t)
	op := f.token(t, models.RoleOperator)
	customer := testutil.SeedCustomer(t, f.db)

	rec := testutil.DoRequest(t, f.router, http.MethodPost, "/api/samples", map[string]string{"customerId": customer.ID, "style": "Parka"}, op)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sample models.SampleRequest
	testutil.ParseResponse(t, rec, &sample)

	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/api/samples/"+sample.ID+"/status", map[string]string{"status": "sent"}, op)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = testutil.DoRequest(t, f.router, http.MethodPost, "/api/samples/"+sample.ID+"/status", map[string]string{"status": "in_development"}, op)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.DoRequest(t, f.router, http.MethodGet, "/api/samples/missing", nil, op)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor(apperr.CodeNotFound))
	assert.Equal(t, http.StatusConflict, StatusFor(apperr.CodeAlreadyExists))
	assert.Equal(t, http.StatusConflict, StatusFor(apperr.CodeStageAlreadyStarted))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(apperr.CodeNotApproved))
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperr.CodeQuantityMismatch))
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperr.CodeMissingIssues))
}
