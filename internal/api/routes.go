package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Служебные
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Partitions
	mux.Handle("GET /api/v1/partitions/{id}", chain(http.HandlerFunc(h.GetPartition)))
	mux.Handle("GET /api/v1/dispatches/{id}/partitions", chain(http.HandlerFunc(h.ListDispatch)))

	// Cycle runs
	mux.Handle("GET /api/v1/jobs/{job}/runs", chain(http.HandlerFunc(h.ListRuns)))
}

// Health отвечает 200, пока процесс жив.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	if !h.healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
