package api

import (
	"sort"

	"github.com/shaiso/dfsbridge/internal/domain"
	"github.com/shaiso/dfsbridge/internal/tracker"
)

// Состояния award в ответе GetItem.
const (
	ItemStateProcessing = "processing"
	ItemStateProcessed  = "processed"
	ItemStateAbandoned  = "abandoned"
	ItemStateUnknown    = "unknown"
)

// StatusResponse — общее состояние бриджа.
type StatusResponse struct {
	ServicesAvailable bool           `json:"services_available"`
	GovernorDelay     string         `json:"governor_delay"`
	ProcessingItems   int            `json:"processing_items"`
	ProcessedItems    int            `json:"processed_items"`
	AbandonedItems    int            `json:"abandoned_items"`
	PendingTenders    int            `json:"pending_tenders"`
	Queues            map[string]int `json:"queues"`
}

// TenderResponse — состояние тендера.
type TenderResponse struct {
	ID               string `json:"id"`
	Processed        bool   `json:"processed"`
	PendingDocuments int    `json:"pending_documents"`
}

// ItemResponse — состояние award.
type ItemResponse struct {
	TenderID   string `json:"tender_id"`
	ItemID     string `json:"item_id"`
	State      string `json:"state"`
	DocumentID string `json:"document_id,omitempty"`
	RetryCount *int   `json:"retry_count,omitempty"`
}

// RequestResponse — запрос, ожидающий ответа реестра.
type RequestResponse struct {
	RequestID string `json:"request_id"`
	EDRID     string `json:"edr_id"`
	TenderID  string `json:"tender_id,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
}

// WorkerResponse — состояние супервизора стадии.
type WorkerResponse struct {
	Name      string   `json:"name"`
	State     string   `json:"state"`
	AliveJobs []string `json:"alive_jobs"`
}

// ItemFromSnapshot определяет состояние award по снимку трекера.
func ItemFromSnapshot(s tracker.Snapshot, tenderID, itemID string) ItemResponse {
	key := domain.ItemKey(tenderID, itemID)
	resp := ItemResponse{TenderID: tenderID, ItemID: itemID, State: ItemStateUnknown}

	if retries, ok := s.ProcessingItems[key]; ok {
		resp.State = ItemStateProcessing
		resp.RetryCount = &retries
		return resp
	}
	if docID, ok := s.ProcessedItems[key]; ok {
		resp.State = ItemStateProcessed
		resp.DocumentID = docID
		return resp
	}
	for _, k := range s.AbandonedItems {
		if k == key {
			resp.State = ItemStateAbandoned
			break
		}
	}
	return resp
}

// RequestsFromPending превращает набор ожидающих запросов в список,
// отсортированный по request_id.
func RequestsFromPending(pending map[string]domain.PendingRequest) []RequestResponse {
	out := make([]RequestResponse, 0, len(pending))
	for id, p := range pending {
		out = append(out, RequestResponse{
			RequestID: id,
			EDRID:     p.EDRID,
			TenderID:  p.TenderID,
			ItemID:    p.ItemID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestID < out[j].RequestID })
	return out
}
