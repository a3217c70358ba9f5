package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/dfsbridge/internal/api"
	"github.com/shaiso/dfsbridge/internal/config"
	"github.com/shaiso/dfsbridge/internal/domain"
	"github.com/shaiso/dfsbridge/internal/filter"
	"github.com/shaiso/dfsbridge/internal/governor"
	"github.com/shaiso/dfsbridge/internal/mq"
	"github.com/shaiso/dfsbridge/internal/queue"
	"github.com/shaiso/dfsbridge/internal/reference"
	"github.com/shaiso/dfsbridge/internal/sfs"
	"github.com/shaiso/dfsbridge/internal/storage"
	"github.com/shaiso/dfsbridge/internal/telemetry"
	"github.com/shaiso/dfsbridge/internal/tenders"
	"github.com/shaiso/dfsbridge/internal/tracker"
	"github.com/shaiso/dfsbridge/internal/worker"
)

// Имена супервизоров стадий.
const (
	WorkerFilterTenders       = "filter_tenders"
	WorkerRequestForReference = "request_for_reference"
)

// Deps — внешние зависимости, которые можно подменить.
type Deps struct {
	Logger *slog.Logger

	// Registry — реестр метрик; nil — prometheus.DefaultRegisterer.
	Registry *prometheus.Registry

	// Store — готовое хранилище; nil — открыть по cfg.Storage.
	Store storage.Store
}

// Bridge связывает стадии, очереди, хранилище и служебный HTTP.
type Bridge struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *telemetry.Metrics
	handler http.Handler

	store    storage.Store
	tracker  *tracker.Tracker
	requests *storage.RequestDB
	governor *governor.Governor
	gate     *worker.Gate
	monitor  *Monitor
	mqConn   *mq.Connection

	filteredTenderIDs queue.Queue[string]
	edrpouCodes       queue.Queue[*domain.Data]
	references        queue.Queue[*domain.Reference]

	workers []*worker.Worker
}

// New собирает бридж по конфигурации. Ошибка здесь — фатальная
// ошибка старта.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Bridge, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	b := &Bridge{
		cfg:     cfg,
		logger:  logger,
		metrics: telemetry.NewMetrics(registerer),
		gate:    worker.NewGate(false),
	}

	b.store = deps.Store
	if b.store == nil {
		store, err := OpenStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.store = store
	}
	logger.Info("storage connected", "backend", cfg.Storage.Backend)

	b.tracker = tracker.New(tracker.Config{
		Store:  b.store,
		TTL:    cfg.Storage.TTL.Duration(),
		Logger: logger,
	})
	b.requests = storage.NewRequestDB(b.store)

	b.governor = governor.New(governor.Config{
		Floor:         cfg.Governor.Floor.Duration(),
		Ceiling:       cfg.Governor.Ceiling.Duration(),
		IncrementStep: cfg.Governor.IncrementStep.Duration(),
		DecrementStep: cfg.Governor.DecrementStep.Duration(),
		OnChange: func(d time.Duration) {
			b.metrics.GovernorDelay.Set(d.Seconds())
		},
	})

	if err := b.setupQueues(ctx); err != nil {
		b.Close()
		return nil, err
	}

	hours, err := reference.NewBusinessHours(cfg.BusinessHours.Window, cfg.BusinessHours.Timezone, cfg.BusinessHours.Holidays)
	if err != nil {
		b.Close()
		return nil, err
	}

	tenderClient := tenders.NewClient(tenders.Config{
		Host:       cfg.Tenders.APIHost,
		Version:    cfg.Tenders.APIVersion,
		PrefixPath: cfg.Tenders.PrefixPath,
		Token:      cfg.Tenders.Token,
		Timeout:    cfg.Tenders.Timeout.Duration(),
	})
	sfsClient := sfs.NewClient(sfs.Config{
		Host:     cfg.SFS.BaseURL,
		User:     cfg.SFS.User,
		Password: cfg.SFS.Password,
		Timeout:  cfg.SFS.Timeout.Duration(),
	})

	filterStage := filter.New(filter.Config{
		Source:      b.filteredTenderIDs,
		Tenders:     tenderClient,
		Out:         b.edrpouCodes,
		Tracker:     b.tracker,
		Gate:        b.gate,
		Governor:    b.governor,
		RetryBudget: cfg.Bridge.RetryBudget,
		Metrics:     b.metrics,
		Logger:      logger,
	})
	referenceStage := reference.New(reference.Config{
		Requests:       b.requests,
		Correspondence: sfsClient,
		Out:            b.references,
		Gate:           b.gate,
		Governor:       b.governor,
		Hours:          hours,
		Interval:       cfg.Bridge.Delay.Duration(),
		DeptID:         cfg.SFS.DeptID,
		DeptsProc:      cfg.SFS.DeptsProc,
		CAName:         cfg.SFS.CAName,
		Cert:           cfg.SFS.Cert,
		Metrics:        b.metrics,
		Logger:         logger,
	})

	onRestart := func(workerName, job string) {
		b.metrics.JobRestarts.WithLabelValues(workerName, job).Inc()
	}
	b.workers = []*worker.Worker{
		worker.New(worker.Config{
			Name:          WorkerFilterTenders,
			Jobs:          filterStage.Jobs(),
			Gate:          b.gate,
			CheckInterval: cfg.Bridge.Delay.Duration(),
			StopTimeout:   cfg.Bridge.StopTimeout.Duration(),
			OnRestart:     onRestart,
			Logger:        logger,
		}),
		worker.New(worker.Config{
			Name:          WorkerRequestForReference,
			Jobs:          referenceStage.Jobs(),
			Gate:          b.gate,
			CheckInterval: cfg.Bridge.Delay.Duration(),
			StopTimeout:   cfg.Bridge.StopTimeout.Duration(),
			OnRestart:     onRestart,
			Logger:        logger,
		}),
	}

	checks := map[string]Pinger{
		"storage": b.store,
		"tenders": tenderClient,
	}
	if cfg.SFS.BaseURL != "" {
		checks["sfs"] = sfsClient
	}
	if b.mqConn != nil {
		checks["amqp"] = b.mqConn
	}
	b.monitor = NewMonitor(MonitorConfig{
		Gate:     b.gate,
		Checks:   checks,
		Interval: cfg.Bridge.HealthInterval.Duration(),
		Metrics:  b.metrics,
		Logger:   logger,
	})

	b.handler = b.newHandler(gatherer)
	return b, nil
}

// OpenStore открывает хранилище по cfg.Storage.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	store, err := storage.Open(ctx, storage.Config{
		Backend:  cfg.Storage.Backend,
		Host:     cfg.Storage.Host,
		Port:     cfg.Storage.Port,
		DB:       cfg.Storage.DB,
		Password: cfg.Storage.Password,
		URL:      cfg.Storage.URL,
		Database: cfg.Storage.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return store, nil
}

func (b *Bridge) setupQueues(ctx context.Context) error {
	switch b.cfg.Queues.Backend {
	case "amqp":
		conn, err := mq.NewConnection(b.cfg.Queues.AMQPURL, b.logger)
		if err != nil {
			return fmt.Errorf("connect amqp: %w", err)
		}
		b.mqConn = conn
		if err := mq.SetupTopology(ctx, conn); err != nil {
			return fmt.Errorf("setup topology: %w", err)
		}
		b.logger.Debug("amqp topology" + mq.TopologyInfo())

		publisher := mq.NewPublisher(conn, b.logger)
		poll := b.cfg.Queues.PollInterval.Duration()
		b.filteredTenderIDs = mq.NewLeaseQueue[string](mq.LeaseQueueConfig{
			Queue: mq.QueueFilteredTenderIDs, Type: mq.MessageTypeTenderID,
			Conn: conn, Publisher: publisher, PollInterval: poll, Logger: b.logger,
		})
		b.edrpouCodes = mq.NewLeaseQueue[*domain.Data](mq.LeaseQueueConfig{
			Queue: mq.QueueEDRPOUCodes, Type: mq.MessageTypeData,
			Conn: conn, Publisher: publisher, PollInterval: poll, Logger: b.logger,
		})
		b.references = mq.NewLeaseQueue[*domain.Reference](mq.LeaseQueueConfig{
			Queue: mq.QueueReference, Type: mq.MessageTypeReference,
			Conn: conn, Publisher: publisher, PollInterval: poll, Logger: b.logger,
		})
	default:
		capacity := b.cfg.Queues.Capacity
		b.filteredTenderIDs = queue.NewMemory[string](capacity)
		b.edrpouCodes = queue.NewMemory[*domain.Data](capacity)
		b.references = queue.NewMemory[*domain.Reference](capacity)
	}
	return nil
}

// Run запускает монитор здоровья, супервизоры стадий и служебный HTTP.
// Блокируется до отмены ctx, затем останавливает воркеры.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.monitor.Run(ctx)
	})

	for i, w := range b.workers {
		if err := w.Start(ctx); err != nil {
			cancel()
			for _, started := range b.workers[:i] {
				started.Stop()
			}
			g.Wait()
			return fmt.Errorf("start %s: %w", w.Name(), err)
		}
	}

	if addr := b.cfg.Bridge.MetricsAddr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: b.handler, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			b.logger.Info("listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		var errs []error
		for _, w := range b.workers {
			errs = append(errs, w.Stop())
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// Close освобождает соединения.
func (b *Bridge) Close() error {
	var errs []error
	if b.mqConn != nil {
		errs = append(errs, b.mqConn.Close())
	}
	if b.store != nil {
		errs = append(errs, b.store.Close())
	}
	return errors.Join(errs...)
}

// Handler возвращает служебный HTTP: /healthz, /metrics и /api/v1.
func (b *Bridge) Handler() http.Handler { return b.handler }

// Tracker возвращает ProcessTracker.
func (b *Bridge) Tracker() *tracker.Tracker { return b.tracker }

// Requests возвращает учёт ожидающих запросов.
func (b *Bridge) Requests() *storage.RequestDB { return b.requests }

// Gate возвращает признак доступности сервисов.
func (b *Bridge) Gate() *worker.Gate { return b.gate }

// FilteredTenderIDs — входная очередь FilterStage.
func (b *Bridge) FilteredTenderIDs() queue.Queue[string] { return b.filteredTenderIDs }

// EDRPOUCodes — выходная очередь FilterStage.
func (b *Bridge) EDRPOUCodes() queue.Queue[*domain.Data] { return b.edrpouCodes }

// References — выходная очередь ReferenceStage.
func (b *Bridge) References() queue.Queue[*domain.Reference] { return b.references }

func (b *Bridge) newHandler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !b.gate.Available() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("services not available"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	api.NewHandler(api.Config{
		Tracker:  b.tracker,
		Requests: b.requests,
		Gate:     b.gate,
		Governor: b.governor,
		Input:    b.filteredTenderIDs,
		Queues: map[string]api.Lener{
			string(mq.QueueFilteredTenderIDs): b.filteredTenderIDs,
			string(mq.QueueEDRPOUCodes):       b.edrpouCodes,
			string(mq.QueueReference):         b.references,
		},
		Workers: b.workers,
		Logger:  b.logger,
	}).RegisterRoutes(mux)
	return mux
}
