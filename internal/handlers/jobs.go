package handlers

import (
	"net/http"

	"github.com/haptickrill/krill/internal/services"
)

type JobsHandler struct {
	refresh services.RefreshService
}

func NewJobsHandler(refresh services.RefreshService) *JobsHandler {
	return &JobsHandler{refresh: refresh}
}

// POST /api/jobs/refresh-prices — external trigger for the tracked-ticker
// refresh; the same job runs on the cron schedule.
func (h *JobsHandler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	summary, err := h.refresh.RefreshTracked(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
