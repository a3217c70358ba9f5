package tracker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shaiso/dfsbridge/internal/storage"
)

// brokenStore — хранилище, которое всегда недоступно.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (brokenStore) Put(context.Context, string, string, time.Duration) error {
	return fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (brokenStore) Has(context.Context, string) (bool, error) {
	return false, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (brokenStore) Ping(context.Context) error { return storage.ErrUnavailable }
func (brokenStore) Close() error               { return nil }

func newTracker() (*Tracker, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return New(Config{Store: store}), store
}

// --- SetItem Tests ---

func TestSetItem_ProcessingUntilTerminal(t *testing.T) {
	tr, _ := newTracker()

	if !tr.SetItem("t1", "a1", 3) {
		t.Fatal("expected SetItem to accept new item")
	}
	if !tr.CheckProcessingItem("t1", "a1") {
		t.Error("expected item in processing")
	}
	if tr.CheckProcessedItem("t1", "a1") {
		t.Error("item must not be processed yet")
	}
}

func TestSetItem_Idempotent(t *testing.T) {
	tr, _ := newTracker()

	tr.SetItem("t1", "a1", 3)
	tr.SetItem("t1", "a1", 5)

	snap := tr.Snapshot()
	if len(snap.ProcessingItems) != 1 {
		t.Errorf("expected one processing entry, got %d", len(snap.ProcessingItems))
	}
	if snap.ProcessingItems["t1_a1"] != 5 {
		t.Errorf("expected retry count overwritten to 5, got %d", snap.ProcessingItems["t1_a1"])
	}
	if tr.PendingDocuments("t1") != 1 {
		t.Errorf("expected pending counter 1, got %d", tr.PendingDocuments("t1"))
	}
}

func TestSetItem_ProcessedNotReentered(t *testing.T) {
	tr, _ := newTracker()
	ctx := context.Background()

	tr.SetItem("t1", "a1", 3)
	if err := tr.UpdateItemsAndTender(ctx, "t1", "a1", "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr.SetItem("t1", "a1", 3) {
		t.Error("processed item must not re-enter processing")
	}
	if tr.CheckProcessingItem("t1", "a1") {
		t.Error("processed item must not be processing")
	}
}

// --- Terminal Transition Tests ---

func TestUpdateItemsAndTender(t *testing.T) {
	tr, store := newTracker()
	ctx := context.Background()

	tr.SetItem("t1", "a1", 3)
	tr.SetItem("t1", "a2", 3)

	if err := tr.UpdateItemsAndTender(ctx, "t1", "a1", "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.CheckProcessingItem("t1", "a1") || !tr.CheckProcessedItem("t1", "a1") {
		t.Error("a1 should be processed")
	}
	if done, _ := tr.CheckProcessedTenders(ctx, "t1"); done {
		t.Error("tender must not be processed while a2 is pending")
	}

	if err := tr.UpdateItemsAndTender(ctx, "t1", "a2", "doc-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	done, err := tr.CheckProcessedTenders(ctx, "t1")
	if err != nil || !done {
		t.Errorf("tender should be processed, got %v, %v", done, err)
	}
	if ok, _ := store.Has(ctx, "processed_tender:t1"); !ok {
		t.Error("expected processed mark in store")
	}

	// Повтор ничего не меняет.
	if err := tr.UpdateItemsAndTender(ctx, "t1", "a2", "doc-2"); err != nil {
		t.Errorf("repeat should be no-op, got %v", err)
	}
	if tr.Snapshot().ProcessedItems["t1_a2"] != "doc-2" {
		t.Error("expected document id recorded")
	}
}

func TestUpdateItemsAndTender_NotTracked(t *testing.T) {
	tr, _ := newTracker()

	err := tr.UpdateItemsAndTender(context.Background(), "t1", "a1", "doc-1")
	if !errors.Is(err, ErrItemNotTracked) {
		t.Errorf("expected ErrItemNotTracked, got %v", err)
	}
}

// --- Pending Counter Tests ---

func TestDocsAmount_DrivesToZeroExactly(t *testing.T) {
	tr, store := newTracker()
	ctx := context.Background()
	const n = 3

	tr.AddDocsAmountToTender("t1", n)
	for i := 0; i < n; i++ {
		if ok, _ := store.Has(ctx, "processed_tender:t1"); ok {
			t.Fatalf("tender marked before counter reached zero (step %d)", i)
		}
		if err := tr.RemoveDocsAmountFromTender(ctx, "t1"); err != nil {
			t.Fatalf("remove %d: %v", i, err)
		}
	}

	if tr.PendingDocuments("t1") != 0 {
		t.Errorf("expected counter 0, got %d", tr.PendingDocuments("t1"))
	}
	if ok, _ := store.Has(ctx, "processed_tender:t1"); !ok {
		t.Error("expected processed mark at zero")
	}

	// Дальше нуля не уходит.
	tr.RemoveDocsAmountFromTender(ctx, "t1")
	if tr.PendingDocuments("t1") != 0 {
		t.Errorf("counter must not go negative, got %d", tr.PendingDocuments("t1"))
	}
}

func TestRemoveDocsAmount_StoreFailureKeepsCounter(t *testing.T) {
	tr := New(Config{Store: brokenStore{}})

	tr.AddDocsAmountToTender("t1", 1)
	err := tr.RemoveDocsAmountFromTender(context.Background(), "t1")
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if tr.PendingDocuments("t1") != 1 {
		t.Errorf("counter should stay 1 for retry, got %d", tr.PendingDocuments("t1"))
	}
}

// slowStore блокирует Put, пока не закрыт release.
type slowStore struct {
	*storage.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	close(s.entered)
	<-s.release
	return s.MemoryStore.Put(ctx, key, value, ttl)
}

func TestRemoveDocsAmount_StoreWriteDoesNotBlockReads(t *testing.T) {
	store := &slowStore{
		MemoryStore: storage.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	tr := New(Config{Store: store})
	tr.SetItem("t1", "a1", 3)
	tr.SetItem("t2", "a1", 3)

	done := make(chan error, 1)
	go func() { done <- tr.UpdateItemsAndTender(context.Background(), "t1", "a1", "doc-1") }()
	<-store.entered

	reads := make(chan struct{})
	go func() {
		tr.CheckProcessingItem("t2", "a1")
		tr.Snapshot()
		close(reads)
	}()
	select {
	case <-reads:
	case <-time.After(time.Second):
		t.Fatal("reads blocked behind store write")
	}

	close(store.release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := tr.CheckProcessedTenders(context.Background(), "t1"); !ok {
		t.Error("tender should be marked processed")
	}
}

func TestCheckProcessedTenders_StoreUnavailable(t *testing.T) {
	tr := New(Config{Store: brokenStore{}})

	done, err := tr.CheckProcessedTenders(context.Background(), "t1")
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Errorf("store failure must be surfaced, got %v", err)
	}
	if done {
		t.Error("unknown must not read as processed")
	}
}

// --- Retry Budget Tests ---

func TestUpdateProcessingItems_AbandonsAfterBudget(t *testing.T) {
	tr, store := newTracker()
	ctx := context.Background()

	tr.SetItem("t1", "a1", 2)

	abandoned, err := tr.UpdateProcessingItems(ctx, "t1", "a1")
	if err != nil || abandoned {
		t.Fatalf("first retry: abandoned=%v err=%v", abandoned, err)
	}
	if !tr.CheckProcessingItem("t1", "a1") {
		t.Error("item should still be processing")
	}

	abandoned, err = tr.UpdateProcessingItems(ctx, "t1", "a1")
	if err != nil || !abandoned {
		t.Fatalf("second retry: abandoned=%v err=%v", abandoned, err)
	}
	if tr.CheckProcessingItem("t1", "a1") || tr.CheckProcessedItem("t1", "a1") {
		t.Error("abandoned item must be neither processing nor processed")
	}
	if !tr.CheckAbandonedItem("t1", "a1") {
		t.Error("expected abandoned state")
	}
	if ok, _ := store.Has(ctx, "abandoned_item:t1_a1"); !ok {
		t.Error("expected durable abandoned record")
	}
	if done, _ := tr.CheckProcessedTenders(ctx, "t1"); done {
		t.Error("abandoning must not mark tender processed")
	}
	if tr.PendingDocuments("t1") != 0 {
		t.Errorf("abandoned item should release pending counter, got %d", tr.PendingDocuments("t1"))
	}

	// Новая постановка снимает abandoned.
	tr.SetItem("t1", "a1", 2)
	if tr.CheckAbandonedItem("t1", "a1") {
		t.Error("SetItem should clear abandoned state")
	}
}

func TestUpdateProcessingItems_NotTracked(t *testing.T) {
	tr, _ := newTracker()
	if _, err := tr.UpdateProcessingItems(context.Background(), "t1", "a1"); !errors.Is(err, ErrItemNotTracked) {
		t.Errorf("expected ErrItemNotTracked, got %v", err)
	}
}

func TestForget(t *testing.T) {
	tr, _ := newTracker()

	tr.SetItem("t1", "a1", 3)
	tr.Forget("t1", "a1")

	if tr.CheckProcessingItem("t1", "a1") || tr.CheckAbandonedItem("t1", "a1") {
		t.Error("forgotten item must leave no state")
	}
	if tr.PendingDocuments("t1") != 0 {
		t.Errorf("expected counter 0, got %d", tr.PendingDocuments("t1"))
	}

	tr.Forget("t1", "missing")
}

func TestTTL_ProcessedMarkExpires(t *testing.T) {
	store := storage.NewMemoryStore()
	tr := New(Config{Store: store, TTL: 20 * time.Millisecond})
	ctx := context.Background()

	tr.AddDocsAmountToTender("t1", 1)
	tr.RemoveDocsAmountFromTender(ctx, "t1")
	if done, _ := tr.CheckProcessedTenders(ctx, "t1"); !done {
		t.Fatal("expected processed mark")
	}

	time.Sleep(30 * time.Millisecond)
	if done, _ := tr.CheckProcessedTenders(ctx, "t1"); done {
		t.Error("expected processed mark to expire")
	}
}
