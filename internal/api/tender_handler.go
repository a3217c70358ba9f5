package api

import (
	"net/http"
)

// GetTender возвращает отметку processed_tender и счётчик документов.
// GET /api/v1/tenders/{id}
func (h *Handler) GetTender(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	processed, err := h.tracker.CheckProcessedTenders(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, TenderResponse{
		ID:               id,
		Processed:        processed,
		PendingDocuments: h.tracker.PendingDocuments(id),
	})
}

// GetItem возвращает состояние award в трекере.
// GET /api/v1/tenders/{id}/items/{item}
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	Success(w, ItemFromSnapshot(h.tracker.Snapshot(), r.PathValue("id"), r.PathValue("item")))
}

// EnqueueTender ставит ID тендера во входную очередь FilterStage.
// POST /api/v1/tenders/{id}
func (h *Handler) EnqueueTender(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.input.Put(r.Context(), id); err != nil {
		h.logger.Warn("enqueue tender failed", "tender_id", id, "error", err)
		Unavailable(w, "input queue unavailable")
		return
	}

	h.logger.Info("tender enqueued", "tender_id", id)
	Accepted(w, map[string]string{"id": id})
}

// ListRequests возвращает запросы, ожидающие ответа реестра.
// GET /api/v1/requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.requests.PendingRequests(r.Context())
	if HandleError(w, h.logger, err) {
		return
	}

	result := RequestsFromPending(pending)
	List(w, result, len(result))
}
