package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		RequestID(h.logger),
		Recovery(),
		Logging(),
	)

	mux.Handle("GET /api/v1/status", chain(http.HandlerFunc(h.GetStatus)))

	// Tenders
	mux.Handle("GET /api/v1/tenders/{id}", chain(http.HandlerFunc(h.GetTender)))
	mux.Handle("POST /api/v1/tenders/{id}", chain(http.HandlerFunc(h.EnqueueTender)))
	mux.Handle("GET /api/v1/tenders/{id}/items/{item}", chain(http.HandlerFunc(h.GetItem)))

	// Requests
	mux.Handle("GET /api/v1/requests", chain(http.HandlerFunc(h.ListRequests)))

	// Workers
	mux.Handle("GET /api/v1/workers", chain(http.HandlerFunc(h.ListWorkers)))
	mux.Handle("POST /api/v1/workers/{name}/jobs/{job}/restart", chain(http.HandlerFunc(h.RestartJob)))
}
