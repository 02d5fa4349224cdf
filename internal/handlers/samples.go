package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xelth-com/garmentflow/internal/models"
	"github.com/xelth-com/garmentflow/internal/services/samples"
)

// SampleStatusRequest is the body of POST /api/samples/{id}/status
type SampleStatusRequest struct {
	Status   models.SampleStatus `json:"status"`
	Feedback string              `json:"feedback"`
}

func (r *Router) listSamples(w http.ResponseWriter, req *http.Request) {
	list, err := r.samples.List(req.Context(), models.SampleStatus(req.URL.Query().Get("status")))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) createSample(w http.ResponseWriter, req *http.Request) {
	var body samples.CreateRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	sample, err := r.samples.Create(req.Context(), body, actorID(req))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, sample)
}

func (r *Router) getSample(w http.ResponseWriter, req *http.Request) {
	sample, err := r.samples.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, sample)
}

func (r *Router) transitionSample(w http.ResponseWriter, req *http.Request) {
	var body SampleStatusRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	sample, err := r.samples.Transition(req.Context(), mux.Vars(req)["id"], body.Status, body.Feedback, actorID(req))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, sample)
}
