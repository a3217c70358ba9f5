package reference

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/shaiso/dfsbridge/internal/domain"
	"github.com/shaiso/dfsbridge/internal/governor"
	"github.com/shaiso/dfsbridge/internal/queue"
	"github.com/shaiso/dfsbridge/internal/sfs"
	"github.com/shaiso/dfsbridge/internal/telemetry"
	"github.com/shaiso/dfsbridge/internal/worker"
)

const (
	// JobSFSChecker — имя единственного job стадии.
	JobSFSChecker = "sfs_checker"

	defaultInterval     = 15 * time.Second
	defaultErrorBackoff = time.Second
)

// PendingSource — список запросов, ожидающих ответа (storage.RequestDB).
type PendingSource interface {
	PendingRequests(ctx context.Context) (map[string]domain.PendingRequest, error)
}

// Config — конфигурация Stage.
type Config struct {
	Requests       PendingSource
	Correspondence sfs.Correspondence

	// Out — очередь полученных справок (reference).
	Out queue.Queue[*domain.Reference]

	Gate     *worker.Gate
	Governor *governor.Governor

	// Hours — рабочее окно; nil — опрос в любое время.
	Hours *BusinessHours

	// Interval — минимальная пауза между циклами (default: 15s).
	Interval time.Duration

	// ErrorBackoff — пауза после ошибки канала, кроме 429 (default: 1s).
	ErrorBackoff time.Duration

	// Параметры запросов в канал корреспонденции.
	DeptID    int
	DeptsProc int
	CAName    string
	Cert      string

	Metrics *telemetry.Metrics
	Logger  *slog.Logger

	// Now — источник времени (для тестов).
	Now func() time.Time
}

// Stage — ReferenceStage: опрашивает канал корреспонденции по
// ожидающим запросам и передаёт полученные документы дальше.
//
// Стадия не меняет состояние запросов: запрос остаётся ожидающим,
// пока его не закроет стадия загрузки справок.
type Stage struct {
	requests       PendingSource
	correspondence sfs.Correspondence
	out            queue.Queue[*domain.Reference]
	gate           *worker.Gate
	governor       *governor.Governor
	hours          *BusinessHours
	interval       time.Duration
	errorBackoff   time.Duration
	deptID         int
	deptsProc      int
	caName         string
	cert           string
	metrics        *telemetry.Metrics
	logger         *slog.Logger
	now            func() time.Time
}

// New создаёт Stage.
func New(cfg Config) *Stage {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	backoff := cfg.ErrorBackoff
	if backoff <= 0 {
		backoff = defaultErrorBackoff
	}
	deptID := cfg.DeptID
	if deptID <= 0 {
		deptID = sfs.DefaultDeptID
	}
	deptsProc := cfg.DeptsProc
	if deptsProc <= 0 {
		deptsProc = sfs.DefaultDeptsProc
	}
	gov := cfg.Governor
	if gov == nil {
		gov = governor.New(governor.Config{})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Stage{
		requests:       cfg.Requests,
		correspondence: cfg.Correspondence,
		out:            cfg.Out,
		gate:           cfg.Gate,
		governor:       gov,
		hours:          cfg.Hours,
		interval:       interval,
		errorBackoff:   backoff,
		deptID:         deptID,
		deptsProc:      deptsProc,
		caName:         cfg.CAName,
		cert:           cfg.Cert,
		metrics:        cfg.Metrics,
		logger:         logger.With("stage", "reference"),
		now:            now,
	}
}

// Jobs возвращает jobs стадии для worker.Worker.
func (s *Stage) Jobs() map[string]worker.JobFunc {
	return map[string]worker.JobFunc{
		JobSFSChecker: s.sfsChecker,
	}
}

func (s *Stage) sfsChecker(ctx context.Context) error {
	return worker.Loop(ctx, s.gate, s, s.CheckOnce)
}

// Sleep реализует worker.Pacer: пауза не меньше Interval, при
// throttling — сколько требует Governor.
func (s *Stage) Sleep(ctx context.Context) error {
	t := time.NewTimer(max(s.interval, s.governor.Delay()))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CheckOnce — один цикл опроса всех ожидающих запросов.
//
// Вне рабочего окна ничего не делает. Ошибки канала логируются, запрос
// остаётся ожидающим и будет опрошен в следующем цикле.
func (s *Stage) CheckOnce(ctx context.Context) error {
	if s.hours != nil {
		if now := s.now(); !s.hours.Contains(now) {
			s.logger.Debug("outside business hours", "next", s.hours.Next(now))
			return nil
		}
	}

	pending, err := s.requests.PendingRequests(ctx)
	if err != nil {
		s.logger.Warn("list pending requests failed", "error", err)
		return nil
	}

	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, requestID := range ids {
		if ctx.Err() != nil {
			return nil
		}
		s.checkRequest(ctx, requestID, pending[requestID])
	}
	return nil
}

func (s *Stage) checkRequest(ctx context.Context, requestID string, req domain.PendingRequest) {
	logger := telemetry.WithRequestID(s.logger, requestID).With("edr_id", req.EDRID)
	if req.TenderID != "" {
		logger = telemetry.WithItemID(telemetry.WithTenderID(logger, req.TenderID), req.ItemID)
	}

	check, err := s.correspondence.CheckRequest(ctx, req.EDRID, s.deptID, s.deptsProc)
	if err != nil {
		s.upstreamFailed(ctx, logger, "fail to check for incoming correspondence", err)
		return
	}
	s.governor.Decrement()
	if check.QtDocs == 0 {
		logger.Debug("no documents yet")
		return
	}

	received, err := s.correspondence.ReceiveRequest(ctx, req.EDRID, s.deptID, s.deptsProc, s.caName, s.cert)
	if err != nil {
		s.upstreamFailed(ctx, logger, "fail to receive correspondence", err)
		return
	}

	ref := &domain.Reference{RequestID: requestID, Documents: received.Docs}
	if err := s.out.Put(ctx, ref); err != nil {
		logger.Error("put reference failed", "error", err)
		return
	}

	logger.Info("received documents sent to reference queue",
		"documents", len(received.Docs),
		telemetry.MessageID(telemetry.MsgReferenceReceived))
	if s.metrics != nil {
		s.metrics.ReferencesReceived.Inc()
	}
}

// upstreamFailed учитывает 429 в governor; прочие ошибки выдерживают
// паузу ErrorBackoff перед следующим запросом.
func (s *Stage) upstreamFailed(ctx context.Context, logger *slog.Logger, msg string, err error) {
	var statusErr *sfs.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests {
		delay := s.governor.Increment()
		if s.metrics != nil {
			s.metrics.UpstreamThrottled.WithLabelValues("sfs").Inc()
		}
		logger.Info("correspondence channel throttled", "delay", delay)
		return
	}
	logger.Warn(msg, "error", err)
	s.backoff(ctx)
}

func (s *Stage) backoff(ctx context.Context) {
	t := time.NewTimer(s.errorBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
