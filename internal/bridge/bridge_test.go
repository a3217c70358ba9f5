package bridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/dfsbridge/internal/config"
	"github.com/shaiso/dfsbridge/internal/storage"
	"github.com/shaiso/dfsbridge/internal/worker"
)

const pendingTenderJSON = `{"data": {
  "id": "tender-1",
  "awards": [{
    "id": "award-1",
    "status": "pending",
    "suppliers": [{"name": "X", "identifier": {"id": "14360570", "scheme": "UA-EDR"}}]
  }]
}}`

func newTenderAPI(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("X-Request-ID", "req-api-1")
		w.Write([]byte(pendingTenderJSON))
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(apiHost string) *config.Config {
	cfg := config.Default()
	cfg.Tenders.APIHost = apiHost
	cfg.Storage.Backend = "memory"
	cfg.Queues.Backend = "memory"
	cfg.Bridge.Delay = config.Duration(20 * time.Millisecond)
	cfg.Bridge.HealthInterval = config.Duration(20 * time.Millisecond)
	cfg.Bridge.StopTimeout = config.Duration(time.Second)
	cfg.Bridge.MetricsAddr = ""
	return cfg
}

func newTestBridge(t *testing.T, cfg *config.Config) *Bridge {
	t.Helper()
	b, err := New(context.Background(), cfg, Deps{
		Registry: prometheus.NewRegistry(),
		Store:    storage.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("new bridge: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// --- Bridge Tests ---

func TestBridge_RunEmitsData(t *testing.T) {
	tenderAPI := newTenderAPI(t)
	b := newTestBridge(t, testConfig(tenderAPI.URL))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	if err := b.FilteredTenderIDs().Put(ctx, "tender-1"); err != nil {
		t.Fatalf("put: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for b.EDRPOUCodes().Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run should stop cleanly, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop")
	}

	if b.EDRPOUCodes().Len() != 1 {
		t.Fatalf("expected one Data, got %d", b.EDRPOUCodes().Len())
	}
	data, _ := b.EDRPOUCodes().Get(context.Background())
	if data.TenderID != "tender-1" || data.Code != "14360570" {
		t.Errorf("unexpected data: %+v", data)
	}
	if !b.Tracker().CheckProcessingItem("tender-1", "award-1") {
		t.Error("award should be tracked as processing")
	}
	if b.FilteredTenderIDs().Len() != 0 {
		t.Errorf("tender id should be consumed, len %d", b.FilteredTenderIDs().Len())
	}
}

func TestNew_InvalidBusinessHours(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.BusinessHours.Window = "every day"

	_, err := New(context.Background(), cfg, Deps{
		Registry: prometheus.NewRegistry(),
		Store:    storage.NewMemoryStore(),
	})
	if err == nil {
		t.Error("expected error for invalid window")
	}
}

func TestBridge_Handler(t *testing.T) {
	tenderAPI := newTenderAPI(t)
	b := newTestBridge(t, testConfig(tenderAPI.URL))

	server := httptest.NewServer(b.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before first health check, got %d", resp.StatusCode)
	}

	b.monitor.CheckOnce(context.Background())

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after health check, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "dfs_services_available 1") {
		t.Errorf("expected services gauge in metrics:\n%s", body)
	}
}

func TestBridge_RunStartFailureStopsStarted(t *testing.T) {
	tenderAPI := newTenderAPI(t)
	b := newTestBridge(t, testConfig(tenderAPI.URL))

	// Второй супервизор уже запущен: Start внутри Run вернёт ошибку.
	second := b.workers[1]
	if err := second.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer second.Stop()

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, worker.ErrAlreadyStarted) {
			t.Errorf("expected ErrAlreadyStarted, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after start failure")
	}
	if state := b.workers[0].State(); state != worker.StateStopped {
		t.Errorf("first worker should be stopped, got %s", state)
	}
}

// --- Monitor Tests ---

func TestMonitor_TogglesGate(t *testing.T) {
	gate := worker.NewGate(false)
	var storeErr error
	m := NewMonitor(MonitorConfig{
		Gate: gate,
		Checks: map[string]Pinger{
			"storage": PingFunc(func(context.Context) error { return storeErr }),
			"tenders": PingFunc(func(context.Context) error { return nil }),
		},
	})

	if !m.CheckOnce(context.Background()) || !gate.Available() {
		t.Fatal("expected gate open when all services healthy")
	}

	storeErr = errors.New("connection refused")
	if m.CheckOnce(context.Background()) || gate.Available() {
		t.Error("expected gate closed on failure")
	}

	storeErr = nil
	if !m.CheckOnce(context.Background()) || !gate.Available() {
		t.Error("expected gate reopened after recovery")
	}
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	gate := worker.NewGate(false)
	m := NewMonitor(MonitorConfig{Gate: gate, Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	if !gate.Available() {
		t.Error("monitor without checks should open gate")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
