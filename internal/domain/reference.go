package domain

// ReceivedDocument — документ, полученный из канала корреспонденции.
type ReceivedDocument struct {
	// Name — имя файла документа.
	Name string `json:"name"`

	// Content — содержимое (base64, как его отдаёт канал).
	Content string `json:"content"`
}

// Reference — ответ реестра по одному запросу: request_id и документы.
// Полезная нагрузка очереди reference.
type Reference struct {
	RequestID string             `json:"request_id"`
	Documents []ReceivedDocument `json:"documents"`
}

// PendingRequest — отправленный в канал корреспонденции запрос,
// по которому ещё не получен ответ.
type PendingRequest struct {
	// EDRID — код в реестре, по которому опрашивается канал.
	EDRID string `json:"edr_id"`

	TenderID string `json:"tender_id,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
}
