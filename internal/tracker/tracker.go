package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/dfsbridge/internal/domain"
	"github.com/shaiso/dfsbridge/internal/storage"
)

// Префиксы ключей в Store.
const (
	processedTenderPrefix = "processed_tender:"
	abandonedItemPrefix   = "abandoned_item:"
)

// Tracker — идемпотентный учёт обработки award'ов.
//
// Рабочее множество (processing / processed / abandoned / счётчики
// документов) живёт в памяти под мьютексом. Долговременный признак
// "тендер полностью обработан" хранится в Store и переживает рестарт.
//
// Инварианты:
//   - ключ находится не более чем в одном из processing / processed;
//   - счётчик документов тендера не бывает отрицательным;
//   - отметку processed_tender ставит только RemoveDocsAmountFromTender,
//     когда счётчик переходит ровно в ноль.
type Tracker struct {
	store  storage.Store
	ttl    time.Duration
	logger *slog.Logger

	mu                       sync.Mutex
	processingItems          map[string]int
	processedItems           map[string]string
	abandonedItems           map[string]time.Time
	tenderDocumentsToProcess map[string]int
}

// Config — конфигурация Tracker.
type Config struct {
	Store storage.Store

	// TTL — срок жизни отметки обработанного тендера (0 — бессрочно).
	TTL time.Duration

	Logger *slog.Logger
}

// New создаёт Tracker.
func New(cfg Config) *Tracker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		store:                    cfg.Store,
		ttl:                      cfg.TTL,
		logger:                   logger,
		processingItems:          make(map[string]int),
		processedItems:           make(map[string]string),
		abandonedItems:           make(map[string]time.Time),
		tenderDocumentsToProcess: make(map[string]int),
	}
}

// SetItem помечает award как обрабатываемый.
//
// При первой постановке увеличивает счётчик документов тендера на 1.
// Повторный вызов для ключа в обработке только перезаписывает retryCount.
// Уже обработанный award в обработку не возвращается — тогда false.
func (t *Tracker) SetItem(tenderID, itemID string, retryCount int) bool {
	key := domain.ItemKey(tenderID, itemID)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, done := t.processedItems[key]; done {
		return false
	}
	if _, inFlight := t.processingItems[key]; inFlight {
		t.processingItems[key] = retryCount
		return true
	}

	t.processingItems[key] = retryCount
	delete(t.abandonedItems, key)
	t.tenderDocumentsToProcess[tenderID]++
	return true
}

// CheckProcessingItem — award сейчас в обработке.
func (t *Tracker) CheckProcessingItem(tenderID, itemID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.processingItems[domain.ItemKey(tenderID, itemID)]
	return ok
}

// CheckProcessedItem — award успешно обработан.
func (t *Tracker) CheckProcessedItem(tenderID, itemID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.processedItems[domain.ItemKey(tenderID, itemID)]
	return ok
}

// CheckAbandonedItem — award исчерпал бюджет повторов.
func (t *Tracker) CheckAbandonedItem(tenderID, itemID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.abandonedItems[domain.ItemKey(tenderID, itemID)]
	return ok
}

// CheckProcessedTenders спрашивает Store напрямую. Ошибка хранилища
// возвращается вызывающему: "не знаю" нельзя превращать в "не обработан".
func (t *Tracker) CheckProcessedTenders(ctx context.Context, tenderID string) (bool, error) {
	ok, err := t.store.Has(ctx, processedTenderPrefix+tenderID)
	if err != nil {
		return false, fmt.Errorf("check processed tender %s: %w", tenderID, err)
	}
	return ok, nil
}

// UpdateItemsAndTender — терминальный переход award: processing → processed
// с documentID результата и уменьшение счётчика документов тендера.
//
// Повторный вызов для уже обработанного award ничего не делает.
func (t *Tracker) UpdateItemsAndTender(ctx context.Context, tenderID, itemID, documentID string) error {
	key := domain.ItemKey(tenderID, itemID)

	t.mu.Lock()
	if _, done := t.processedItems[key]; done {
		t.mu.Unlock()
		return nil
	}
	if _, inFlight := t.processingItems[key]; !inFlight {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrItemNotTracked, key)
	}
	delete(t.processingItems, key)
	t.processedItems[key] = documentID
	t.mu.Unlock()

	return t.RemoveDocsAmountFromTender(ctx, tenderID)
}

// UpdateProcessingItems уменьшает оставшийся бюджет повторов award.
// Когда бюджет исчерпан, award снимается с обработки и помечается
// abandoned (не processed). Возвращает true, если award брошен.
func (t *Tracker) UpdateProcessingItems(ctx context.Context, tenderID, itemID string) (bool, error) {
	key := domain.ItemKey(tenderID, itemID)

	t.mu.Lock()
	count, inFlight := t.processingItems[key]
	if !inFlight {
		t.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrItemNotTracked, key)
	}
	if count > 1 {
		t.processingItems[key] = count - 1
		t.mu.Unlock()
		return false, nil
	}

	now := time.Now()
	delete(t.processingItems, key)
	t.abandonedItems[key] = now
	// Брошенный award больше не ждёт документа, но тендер
	// обработанным не становится.
	t.adjustPendingLocked(tenderID, -1)
	t.mu.Unlock()

	t.logger.Warn("item retry budget exhausted, abandoning",
		"tender_id", tenderID,
		"item_id", itemID,
	)

	if err := t.store.Put(ctx, abandonedItemPrefix+key, now.Format(time.RFC3339), t.ttl); err != nil {
		return true, fmt.Errorf("record abandoned item %s: %w", key, err)
	}
	return true, nil
}

// Forget откатывает SetItem: award снимается с обработки без отметок
// processed или abandoned. Нужен, когда запись не удалось передать
// дальше и тендер будет разобран заново.
func (t *Tracker) Forget(tenderID, itemID string) {
	key := domain.ItemKey(tenderID, itemID)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, inFlight := t.processingItems[key]; !inFlight {
		return
	}
	delete(t.processingItems, key)
	t.adjustPendingLocked(tenderID, -1)
}

// AddDocsAmountToTender увеличивает счётчик ожидаемых документов тендера.
func (t *Tracker) AddDocsAmountToTender(tenderID string, amount int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.adjustPendingLocked(tenderID, amount)
}

// RemoveDocsAmountFromTender уменьшает счётчик на один документ.
//
// Единственный путь, который ставит отметку processed_tender: когда
// счётчик переходит из 1 в 0. Переход резервируется под мьютексом,
// запись в Store идёт без него. Если запись не удалась, документ
// возвращается в счётчик, и повторный вызов повторит отметку.
func (t *Tracker) RemoveDocsAmountFromTender(ctx context.Context, tenderID string) error {
	t.mu.Lock()
	pending := t.tenderDocumentsToProcess[tenderID]
	switch {
	case pending <= 0:
		t.mu.Unlock()
		t.logger.Warn("no pending documents for tender", "tender_id", tenderID)
		return nil
	case pending > 1:
		t.tenderDocumentsToProcess[tenderID] = pending - 1
		t.mu.Unlock()
		return nil
	}
	delete(t.tenderDocumentsToProcess, tenderID)
	t.mu.Unlock()

	value := time.Now().Format(time.RFC3339)
	if err := t.store.Put(ctx, processedTenderPrefix+tenderID, value, t.ttl); err != nil {
		t.mu.Lock()
		t.adjustPendingLocked(tenderID, 1)
		t.mu.Unlock()
		return fmt.Errorf("mark tender %s processed: %w", tenderID, err)
	}

	t.logger.Info("tender processed", "tender_id", tenderID)
	return nil
}

// PendingDocuments возвращает счётчик документов тендера.
func (t *Tracker) PendingDocuments(tenderID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tenderDocumentsToProcess[tenderID]
}

// Snapshot — копия рабочего состояния (для метрик и тестов).
type Snapshot struct {
	ProcessingItems          map[string]int
	ProcessedItems           map[string]string
	AbandonedItems           []string
	TenderDocumentsToProcess map[string]int
}

// Snapshot возвращает копию рабочего состояния.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		ProcessingItems:          make(map[string]int, len(t.processingItems)),
		ProcessedItems:           make(map[string]string, len(t.processedItems)),
		AbandonedItems:           make([]string, 0, len(t.abandonedItems)),
		TenderDocumentsToProcess: make(map[string]int, len(t.tenderDocumentsToProcess)),
	}
	for k, v := range t.processingItems {
		s.ProcessingItems[k] = v
	}
	for k, v := range t.processedItems {
		s.ProcessedItems[k] = v
	}
	for k := range t.abandonedItems {
		s.AbandonedItems = append(s.AbandonedItems, k)
	}
	for k, v := range t.tenderDocumentsToProcess {
		s.TenderDocumentsToProcess[k] = v
	}
	return s
}

// adjustPendingLocked меняет счётчик на delta без побочных эффектов.
// Ноль удаляет запись, отметку тендера не ставит.
func (t *Tracker) adjustPendingLocked(tenderID string, delta int) {
	next := t.tenderDocumentsToProcess[tenderID] + delta
	if next <= 0 {
		delete(t.tenderDocumentsToProcess, tenderID)
		return
	}
	t.tenderDocumentsToProcess[tenderID] = next
}
