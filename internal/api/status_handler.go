package api

import (
	"net/http"
	"sort"
)

// GetStatus возвращает общее состояние бриджа.
// GET /api/v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.tracker.Snapshot()

	queues := make(map[string]int, len(h.queues))
	for name, q := range h.queues {
		queues[name] = q.Len()
	}

	Success(w, StatusResponse{
		ServicesAvailable: h.gate.Available(),
		GovernorDelay:     h.governor.Delay().String(),
		ProcessingItems:   len(snap.ProcessingItems),
		ProcessedItems:    len(snap.ProcessedItems),
		AbandonedItems:    len(snap.AbandonedItems),
		PendingTenders:    len(snap.TenderDocumentsToProcess),
		Queues:            queues,
	})
}

// ListWorkers возвращает состояние супервизоров.
// GET /api/v1/workers
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.workers))
	for name := range h.workers {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]WorkerResponse, len(names))
	for i, name := range names {
		wk := h.workers[name]
		alive := wk.AliveJobs()
		if alive == nil {
			alive = []string{}
		}
		result[i] = WorkerResponse{Name: name, State: wk.State().String(), AliveJobs: alive}
	}

	List(w, result, len(result))
}

// RestartJob перезапускает умершую job супервизора.
// POST /api/v1/workers/{name}/jobs/{job}/restart
func (h *Handler) RestartJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	wk, ok := h.workers[name]
	if !ok {
		NotFound(w, "worker not found")
		return
	}

	restarted, err := wk.RestartJob(r.PathValue("job"))
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, map[string]bool{"restarted": restarted})
}
