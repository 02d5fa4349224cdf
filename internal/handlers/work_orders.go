package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/garmentflow/internal/apperr"
	"github.com/xelth-com/garmentflow/internal/models"
	"github.com/xelth-com/garmentflow/internal/services/printer"
	"github.com/xelth-com/garmentflow/internal/services/report"
	"github.com/xelth-com/garmentflow/internal/services/workorder"
)

// CreateWorkOrderRequest is the body of POST /api/work-orders
type CreateWorkOrderRequest struct {
	SalesOrderItemID    string     `json:"salesOrderItemId"`
	Priority            int        `json:"priority"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	Notes               string     `json:"notes"`
}

// BulkWorkOrderRequest is the body of POST /api/work-orders/bulk
type BulkWorkOrderRequest struct {
	SalesOrderItemIDs []string `json:"salesOrderItemIds"`
}

// StageRequest carries optional operator notes for a stage action
type StageRequest struct {
	Notes string `json:"notes"`
}

// OverrideStageRequest is the body of PUT /api/work-orders/{id}/stage
type OverrideStageRequest struct {
	Stage models.Stage `json:"stage"`
	Notes string       `json:"notes"`
}

func listParams(req *http.Request) workorder.ListParams {
	q := req.URL.Query()
	return workorder.ListParams{
		Stage:        models.Stage(q.Get("stage")),
		SalesOrderID: q.Get("salesOrderId"),
		Keyword:      q.Get("keyword"),
		Page:         queryInt(req, "page", 1),
		Size:         queryInt(req, "size", 20),
	}
}

func (r *Router) listWorkOrders(w http.ResponseWriter, req *http.Request) {
	params := listParams(req)
	if params.Stage != "" && !params.Stage.Valid() {
		r.fail(w, req, apperr.New(apperr.CodeInvalidStage, "unknown stage %q", params.Stage))
		return
	}
	items, total, err := r.workOrders.List(req.Context(), params)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  params.Page,
		"size":  params.Size,
	})
}

func (r *Router) createWorkOrder(w http.ResponseWriter, req *http.Request) {
	var body CreateWorkOrderRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	if body.SalesOrderItemID == "" {
		r.fail(w, req, apperr.New(apperr.CodeValidation, "salesOrderItemId is required"))
		return
	}
	wo, err := r.workOrders.CreateWorkOrder(req.Context(), body.SalesOrderItemID, actorID(req), workorder.CreateOptions{
		Priority:            body.Priority,
		EstimatedCompletion: body.EstimatedCompletion,
		Notes:               body.Notes,
	})
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, wo)
}

func (r *Router) createBulkWorkOrders(w http.ResponseWriter, req *http.Request) {
	var body BulkWorkOrderRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	if len(body.SalesOrderItemIDs) == 0 {
		r.fail(w, req, apperr.New(apperr.CodeValidation, "salesOrderItemIds must not be empty"))
		return
	}
	result, err := r.workOrders.CreateBulkWorkOrders(req.Context(), body.SalesOrderItemIDs, actorID(req))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (r *Router) stageBoard(w http.ResponseWriter, req *http.Request) {
	board, err := r.workOrders.StageBoard(req.Context())
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, board)
}

func (r *Router) exportWorkOrders(w http.ResponseWriter, req *http.Request) {
	wos, err := r.workOrders.Export(req.Context(), listParams(req))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	f, filename, err := report.ExportWorkOrders(wos, r.engine.Now())
	if err != nil {
		r.fail(w, req, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := f.Write(w); err != nil {
		r.logger.Warn("Failed to stream export", zap.Error(err))
	}
}

func (r *Router) getWorkOrder(w http.ResponseWriter, req *http.Request) {
	wo, err := r.workOrders.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, wo)
}

func (r *Router) stageHistory(w http.ResponseWriter, req *http.Request) {
	entries, err := r.engine.History(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (r *Router) startStage(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	var body StageRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	result, err := r.engine.StartStage(req.Context(), vars["id"], models.Stage(vars["stage"]), actorID(req), body.Notes)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (r *Router) finishStage(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	var body StageRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	result, err := r.engine.FinishStage(req.Context(), vars["id"], models.Stage(vars["stage"]), actorID(req), body.Notes)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (r *Router) overrideStage(w http.ResponseWriter, req *http.Request) {
	var body OverrideStageRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	result, err := r.engine.UpdateStage(req.Context(), mux.Vars(req)["id"], body.Stage, actorID(req), body.Notes)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// traveler renders the work order traveler PDF
func (r *Router) traveler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	wo, err := r.workOrders.Get(ctx, mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	history, err := r.engine.History(ctx, wo.ID)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	inspections, err := r.quality.ListInspections(ctx, wo.ID)
	if err != nil {
		r.fail(w, req, err)
		return
	}

	pdf, err := printer.GenerateTravelerPDF(r.travelerCfg, printer.TravelerData{
		WorkOrder:   *wo,
		History:     history,
		Inspections: inspections,
		PrintedAt:   r.engine.Now(),
	})
	if err != nil {
		r.fail(w, req, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=traveler_%s.pdf", wo.WorkOrderNumber))
	w.Write(pdf)
}
