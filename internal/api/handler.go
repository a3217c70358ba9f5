package api

import (
	"log/slog"

	"github.com/shaiso/dfsbridge/internal/governor"
	"github.com/shaiso/dfsbridge/internal/queue"
	"github.com/shaiso/dfsbridge/internal/storage"
	"github.com/shaiso/dfsbridge/internal/tracker"
	"github.com/shaiso/dfsbridge/internal/worker"
)

// Lener — очередь, у которой можно узнать длину.
type Lener interface {
	Len() int
}

// Handler — служебный API бриджа.
type Handler struct {
	tracker  *tracker.Tracker
	requests *storage.RequestDB
	gate     *worker.Gate
	governor *governor.Governor
	input    queue.Queue[string]
	queues   map[string]Lener
	workers  map[string]*worker.Worker
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Tracker  *tracker.Tracker
	Requests *storage.RequestDB
	Gate     *worker.Gate
	Governor *governor.Governor

	// Input — входная очередь FilterStage (POST /tenders/{id}).
	Input queue.Queue[string]

	// Queues — очереди, длина которых отдаётся в /status.
	Queues map[string]Lener

	Workers []*worker.Worker
	Logger  *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workers := make(map[string]*worker.Worker, len(cfg.Workers))
	for _, w := range cfg.Workers {
		workers[w.Name()] = w
	}

	return &Handler{
		tracker:  cfg.Tracker,
		requests: cfg.Requests,
		gate:     cfg.Gate,
		governor: cfg.Governor,
		input:    cfg.Input,
		queues:   cfg.Queues,
		workers:  workers,
		logger:   logger.With("component", "api"),
	}
}
