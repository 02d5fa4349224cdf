package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xelth-com/garmentflow/internal/models"
	"github.com/xelth-com/garmentflow/internal/services/sales"
)

func (r *Router) listCustomers(w http.ResponseWriter, req *http.Request) {
	customers, err := r.sales.ListCustomers(req.Context())
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func (r *Router) createCustomer(w http.ResponseWriter, req *http.Request) {
	var body sales.CreateCustomerRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	customer, err := r.sales.CreateCustomer(req.Context(), body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, customer)
}

func (r *Router) listSalesOrders(w http.ResponseWriter, req *http.Request) {
	orders, err := r.sales.ListOrders(req.Context(), models.SalesOrderStatus(req.URL.Query().Get("status")))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (r *Router) createSalesOrder(w http.ResponseWriter, req *http.Request) {
	var body sales.CreateOrderRequest
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	order, err := r.sales.CreateOrder(req.Context(), body, actorID(req))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (r *Router) getSalesOrder(w http.ResponseWriter, req *http.Request) {
	order, err := r.sales.GetOrder(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (r *Router) approveSalesOrder(w http.ResponseWriter, req *http.Request) {
	order, err := r.sales.Approve(req.Context(), mux.Vars(req)["id"], actorID(req))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (r *Router) rejectSalesOrder(w http.ResponseWriter, req *http.Request) {
	order, err := r.sales.Reject(req.Context(), mux.Vars(req)["id"], actorID(req))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
