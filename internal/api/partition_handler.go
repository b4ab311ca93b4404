package api

import (
	"net/http"

	"github.com/google/uuid"
)

// GetPartition возвращает партицию. ?log=1 добавляет лог воркера.
// GET /api/v1/partitions/{id}
func (h *Handler) GetPartition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid partition id")
		return
	}

	p, err := h.partitions.GetByID(r.Context(), id)
	if HandleStoreError(w, h.logger, err, "partition not found") {
		return
	}

	Success(w, PartitionFromDomain(p, r.URL.Query().Get("log") != ""))
}

// ListDispatch возвращает партиции одной раздачи в порядке воркеров.
// GET /api/v1/dispatches/{id}/partitions
func (h *Handler) ListDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid dispatch id")
		return
	}

	parts, err := h.partitions.ListByDispatch(r.Context(), id)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	result := make([]PartitionResponse, len(parts))
	for i, p := range parts {
		result[i] = PartitionFromDomain(p, false)
	}
	List(w, result, len(result))
}
