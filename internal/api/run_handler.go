package api

import (
	"net/http"
	"strconv"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// ListRuns возвращает последние запуски циклов задания.
// GET /api/v1/jobs/{job}/runs?limit=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	job := r.PathValue("job")

	limit := defaultRunLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.runs.ListRecent(r.Context(), job, limit)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	result := make([]CycleRunResponse, len(runs))
	for i, run := range runs {
		result[i] = CycleRunFromDomain(run)
	}
	List(w, result, len(result))
}
