package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shaiso/dfsbridge/internal/domain"
)

const pendingRequestsKey = "pending_requests"

// RequestDB хранит запросы, отправленные в канал корреспонденции
// и ещё не получившие ответа (request_id → PendingRequest).
//
// Весь набор лежит одним JSON-значением в Store; read-modify-write
// сериализуется мьютексом внутри процесса.
type RequestDB struct {
	store Store
	mu    sync.Mutex
}

// NewRequestDB создаёт RequestDB поверх store.
func NewRequestDB(store Store) *RequestDB {
	return &RequestDB{store: store}
}

// PendingRequests возвращает все ожидающие ответа запросы.
func (r *RequestDB) PendingRequests(ctx context.Context) (map[string]domain.PendingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// AddPending регистрирует отправленный запрос.
func (r *RequestDB) AddPending(ctx context.Context, requestID string, req domain.PendingRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, err := r.load(ctx)
	if err != nil {
		return err
	}
	pending[requestID] = req
	return r.save(ctx, pending)
}

// RemovePending удаляет запрос, по которому документы загружены.
func (r *RequestDB) RemovePending(ctx context.Context, requestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, err := r.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := pending[requestID]; !ok {
		return nil
	}
	delete(pending, requestID)
	return r.save(ctx, pending)
}

func (r *RequestDB) load(ctx context.Context) (map[string]domain.PendingRequest, error) {
	pending := make(map[string]domain.PendingRequest)

	raw, err := r.store.Get(ctx, pendingRequestsKey)
	if errors.Is(err, ErrNotFound) {
		return pending, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, fmt.Errorf("unmarshal pending requests: %w", err)
	}
	return pending, nil
}

func (r *RequestDB) save(ctx context.Context, pending map[string]domain.PendingRequest) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending requests: %w", err)
	}
	return r.store.Put(ctx, pendingRequestsKey, string(raw), 0)
}
