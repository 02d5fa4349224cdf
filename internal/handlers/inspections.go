package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xelth-com/garmentflow/internal/models"
	"github.com/xelth-com/garmentflow/internal/services/quality"
)

// RecordInspectionRequest is the body of POST /api/work-orders/{id}/inspections
type RecordInspectionRequest struct {
	Stage        models.Stage            `json:"stage"`
	Counts       models.InspectionCounts `json:"counts"`
	Issues       []models.QualityIssue   `json:"issues"`
	RepairNotes  string                  `json:"repairNotes"`
	Reinspection *quality.Reinspection   `json:"reinspection,omitempty"`
	Notes        string                  `json:"notes"`
}

// InspectionNotesRequest is the body of PATCH /api/inspections/{id}/notes
type InspectionNotesRequest struct {
	Notes string `json:"notes"`
}

func (r *Router) recordInspection(w http.ResponseWriter, req *http.Request) {
	var body RecordInspectionRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	inspection, err := r.quality.RecordInspection(req.Context(), quality.InspectionRequest{
		WorkOrderID:  mux.Vars(req)["id"],
		Stage:        body.Stage,
		Counts:       body.Counts,
		Issues:       body.Issues,
		RepairNotes:  body.RepairNotes,
		Reinspection: body.Reinspection,
		Notes:        body.Notes,
		InspectorID:  actorID(req),
	})
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, inspection)
}

func (r *Router) listInspections(w http.ResponseWriter, req *http.Request) {
	inspections, err := r.quality.ListInspections(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, inspections)
}

func (r *Router) inspectionSummary(w http.ResponseWriter, req *http.Request) {
	summary, err := r.quality.Summarize(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (r *Router) updateInspectionNotes(w http.ResponseWriter, req *http.Request) {
	var body InspectionNotesRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	inspection, err := r.quality.UpdateInspectionNotes(req.Context(), mux.Vars(req)["id"], body.Notes, actorID(req))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, inspection)
}
