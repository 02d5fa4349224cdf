package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/garmentflow/internal/apperr"
	"github.com/xelth-com/garmentflow/internal/buildinfo"
	"github.com/xelth-com/garmentflow/internal/config"
	"github.com/xelth-com/garmentflow/internal/middleware"
	"github.com/xelth-com/garmentflow/internal/models"
	"github.com/xelth-com/garmentflow/internal/services/printer"
	"github.com/xelth-com/garmentflow/internal/services/quality"
	"github.com/xelth-com/garmentflow/internal/services/sales"
	"github.com/xelth-com/garmentflow/internal/services/samples"
	"github.com/xelth-com/garmentflow/internal/services/workflow"
	"github.com/xelth-com/garmentflow/internal/services/workorder"
	"github.com/xelth-com/garmentflow/internal/websocket"
)

// Services are the domain services served over HTTP
type Services struct {
	Engine     *workflow.Engine
	WorkOrders *workorder.Service
	Quality    *quality.Service
	Sales      *sales.Service
	Samples    *samples.Service
}

// Router wraps the mux router and the services behind it
type Router struct {
	*mux.Router
	db          *gorm.DB
	cfg         *config.Config
	logger      *zap.Logger
	hub         *websocket.Hub
	travelerCfg printer.TravelerConfig

	engine     *workflow.Engine
	workOrders *workorder.Service
	quality    *quality.Service
	sales      *sales.Service
	samples    *samples.Service
}

// NewRouter creates a new HTTP router with all routes. hub may be nil, in
// which case /ws is not served.
func NewRouter(db *gorm.DB, cfg *config.Config, svc Services, hub *websocket.Hub, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		Router: mux.NewRouter(),
		db:     db,
		cfg:    cfg,
		logger: logger,
		hub:    hub,
		travelerCfg: printer.TravelerConfig{
			CompanyName: cfg.Documents.CompanyName,
			BaseURL:     cfg.Documents.TravelerBaseURL,
		},
		engine:     svc.Engine,
		workOrders: svc.WorkOrders,
		quality:    svc.Quality,
		sales:      svc.Sales,
		samples:    svc.Samples,
	}
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")

	if hub != nil {
		r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
			websocket.ServeWs(hub, w, req)
		})
	}

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	api.HandleFunc("/customers", r.listCustomers).Methods("GET")
	api.HandleFunc("/customers", r.createCustomer).Methods("POST")

	api.HandleFunc("/sales-orders", r.listSalesOrders).Methods("GET")
	api.HandleFunc("/sales-orders", r.createSalesOrder).Methods("POST")
	api.HandleFunc("/sales-orders/{id}", r.getSalesOrder).Methods("GET")
	approvals := api.PathPrefix("/sales-orders/{id}").Subrouter()
	approvals.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSupervisor))
	approvals.HandleFunc("/approve", r.approveSalesOrder).Methods("POST")
	approvals.HandleFunc("/reject", r.rejectSalesOrder).Methods("POST")

	api.HandleFunc("/work-orders", r.listWorkOrders).Methods("GET")
	api.HandleFunc("/work-orders", r.createWorkOrder).Methods("POST")
	api.HandleFunc("/work-orders/bulk", r.createBulkWorkOrders).Methods("POST")
	api.HandleFunc("/work-orders/board", r.stageBoard).Methods("GET")
	api.HandleFunc("/work-orders/export", r.exportWorkOrders).Methods("GET")
	api.HandleFunc("/work-orders/{id}", r.getWorkOrder).Methods("GET")
	api.HandleFunc("/work-orders/{id}/history", r.stageHistory).Methods("GET")
	api.HandleFunc("/work-orders/{id}/stages/{stage}/start", r.startStage).Methods("POST")
	api.HandleFunc("/work-orders/{id}/stages/{stage}/finish", r.finishStage).Methods("POST")
	api.HandleFunc("/work-orders/{id}/inspections", r.listInspections).Methods("GET")
	api.HandleFunc("/work-orders/{id}/inspections", r.recordInspection).Methods("POST")
	api.HandleFunc("/work-orders/{id}/inspections/summary", r.inspectionSummary).Methods("GET")
	api.HandleFunc("/work-orders/{id}/traveler", r.traveler).Methods("GET")

	overrides := api.PathPrefix("/work-orders/{id}/stage").Subrouter()
	overrides.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSupervisor))
	overrides.HandleFunc("", r.overrideStage).Methods("PUT")

	api.HandleFunc("/inspections/{id}/notes", r.updateInspectionNotes).Methods("PATCH")

	api.HandleFunc("/samples", r.listSamples).Methods("GET")
	api.HandleFunc("/samples", r.createSample).Methods("POST")
	api.HandleFunc("/samples/{id}", r.getSample).Methods("GET")
	api.HandleFunc("/samples/{id}/status", r.transitionSample).Methods("POST")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	status := map[string]interface{}{
		"status":     "ok",
		"version":    buildinfo.Version(),
		"commit":     buildinfo.CommitHash,
		"startedAt":  buildinfo.StartTime,
		"uptimeSecs": int64(time.Since(buildinfo.Started()).Seconds()),
	}
	if r.hub != nil {
		status["wsClients"] = r.hub.ClientCount()
	}
	if sqlDB, err := r.db.DB(); err != nil || sqlDB.PingContext(req.Context()) != nil {
		status["status"] = "degraded"
		respondJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// respondJSON sends a success envelope
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// respondError sends a failure envelope
func respondError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	body := map[string]interface{}{
		"success": false,
		"error":   code,
		"message": message,
	}
	if len(details) > 0 {
		body["details"] = details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// StatusFor maps a business error code to its HTTP status
func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound, apperr.CodeStageNotFound:
		return http.StatusNotFound
	case apperr.CodeAlreadyExists, apperr.CodeStageAlreadyStarted:
		return http.StatusConflict
	case apperr.CodeNotApproved, apperr.CodeInvalidTransition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// fail writes err as a business failure, or logs it and answers 500
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	if e, ok := apperr.As(err); ok {
		respondError(w, StatusFor(e.Code), string(e.Code), e.Message, e.Details)
		return
	}
	r.logger.Error("Request failed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Error(err),
	)
	respondError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(req *http.Request, v interface{}) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.New(apperr.CodeValidation, "invalid request payload: %v", err)
	}
	return nil
}

// actorID returns the authenticated user id, empty when unauthenticated
func actorID(req *http.Request) string {
	actor, _ := middleware.ActorFrom(req.Context())
	return actor.ID
}

func queryInt(req *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(req.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}
