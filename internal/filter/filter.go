package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/dfsbridge/internal/domain"
	"github.com/shaiso/dfsbridge/internal/governor"
	"github.com/shaiso/dfsbridge/internal/queue"
	"github.com/shaiso/dfsbridge/internal/telemetry"
	"github.com/shaiso/dfsbridge/internal/tenders"
	"github.com/shaiso/dfsbridge/internal/tracker"
	"github.com/shaiso/dfsbridge/internal/worker"
)

const (
	// JobPrepareData — имя единственного job стадии.
	JobPrepareData = "prepare_data"

	defaultRetryBudget  = 10
	defaultErrorBackoff = time.Second
	releaseTimeout      = 5 * time.Second
)

// TenderSource — источник документов тендеров (tenders.Client).
type TenderSource interface {
	GetTender(ctx context.Context, tenderID string) (*tenders.Response, error)
}

// Config — конфигурация Stage.
type Config struct {
	// Source — входная очередь ID тендеров (filtered_tender_ids).
	Source queue.Queue[string]

	// Tenders — API площадки.
	Tenders TenderSource

	// Out — выходная очередь записей Data (edrpou_codes).
	Out queue.Queue[*domain.Data]

	Tracker  *tracker.Tracker
	Gate     *worker.Gate
	Governor *governor.Governor

	// RetryBudget — бюджет повторов award в обработке (default: 10).
	RetryBudget int

	// ErrorBackoff — пауза после ошибки очереди или API (default: 1s).
	ErrorBackoff time.Duration

	// Metrics (опционально).
	Metrics *telemetry.Metrics

	Logger *slog.Logger
}

// Stage — FilterStage: превращает ID тендеров в записи Data.
type Stage struct {
	source       queue.Queue[string]
	tenders      TenderSource
	out          queue.Queue[*domain.Data]
	tracker      *tracker.Tracker
	gate         *worker.Gate
	governor     *governor.Governor
	retryBudget  int
	errorBackoff time.Duration
	metrics      *telemetry.Metrics
	logger       *slog.Logger
}

// New создаёт Stage.
func New(cfg Config) *Stage {
	retryBudget := cfg.RetryBudget
	if retryBudget <= 0 {
		retryBudget = defaultRetryBudget
	}
	backoff := cfg.ErrorBackoff
	if backoff <= 0 {
		backoff = defaultErrorBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gov := cfg.Governor
	if gov == nil {
		gov = governor.New(governor.Config{})
	}

	return &Stage{
		source:       cfg.Source,
		tenders:      cfg.Tenders,
		out:          cfg.Out,
		tracker:      cfg.Tracker,
		gate:         cfg.Gate,
		governor:     gov,
		retryBudget:  retryBudget,
		errorBackoff: backoff,
		metrics:      cfg.Metrics,
		logger:       logger.With("stage", "filter"),
	}
}

// Jobs возвращает jobs стадии для worker.Worker.
func (s *Stage) Jobs() map[string]worker.JobFunc {
	return map[string]worker.JobFunc{
		JobPrepareData: s.prepareData,
	}
}

func (s *Stage) prepareData(ctx context.Context) error {
	err := worker.Loop(ctx, s.gate, s.governor, s.ProcessOnce)
	s.releaseLease()
	return err
}

// releaseLease возвращает арендованную голову входной очереди, чтобы
// брокер сразу отдал её другому потребителю.
func (s *Stage) releaseLease() {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.source.Release(ctx); err != nil {
		s.logger.Warn("release tender id lease failed", "error", err)
	}
}

// ProcessOnce — одна итерация: peek ID тендера, загрузка, разбор
// award'ов и get из очереди.
//
// Временные ошибки (API, очередь, хранилище) логируются, и ID остаётся
// в очереди до следующей итерации. Ошибка возвращается только когда
// очередь закрыта.
func (s *Stage) ProcessOnce(ctx context.Context) error {
	tenderID, err := s.source.Peek(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, queue.ErrClosed) {
			return err
		}
		s.logger.Warn("peek tender id failed", "error", err)
		s.backoff(ctx)
		return nil
	}

	logger := telemetry.WithTenderID(s.logger, tenderID)

	resp, err := s.tenders.GetTender(ctx, tenderID)
	switch {
	case err == nil:
		s.governor.Decrement()
	case tenders.IsTooManyRequests(err):
		delay := s.governor.Increment()
		s.throttled()
		logger.Info("tender api throttled, waiting", "delay", delay)
		return nil
	case errors.Is(err, domain.ErrMalformedTender):
		logger.Error("malformed tender dropped", "error", err,
			telemetry.MessageID(telemetry.MsgTenderException))
		s.consume(ctx, logger)
		return nil
	default:
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("fail to get tender info", "error", err)
		s.backoff(ctx)
		return nil
	}

	logger.Info("got tender from filtered_tender_ids",
		telemetry.MessageID(telemetry.MsgGetTenderFromQueue))

	done, err := s.tracker.CheckProcessedTenders(ctx, tenderID)
	if err != nil {
		logger.Error("processed tenders lookup failed", "error", err)
		s.backoff(ctx)
		return nil
	}
	if done {
		logger.Info("tender already processed")
		s.skipped(telemetry.SkipTenderMarked)
		s.consume(ctx, logger)
		return nil
	}

	if err := s.processAwards(ctx, resp); err != nil {
		logger.Error("emit data failed, tender will be retried", "error", err)
		s.backoff(ctx)
		return nil
	}

	s.consume(ctx, logger)
	return nil
}

// processAwards обходит award'ы и поставщиков в исходном порядке.
func (s *Stage) processAwards(ctx context.Context, resp *tenders.Response) error {
	tender := resp.Tender
	for i := range tender.Awards {
		award := &tender.Awards[i]
		logger := s.logger.With("tender_id", tender.ID, "bid_id", award.BidID, "award_id", award.ID)

		logger.Info("processing award", telemetry.MessageID(telemetry.MsgTenderProcess))

		if !domain.ShouldProcessItem(award) {
			logger.Info("award is not pending or already has registerExtract document",
				"status", award.Status)
			s.skipped(telemetry.SkipIneligible)
			continue
		}

		for _, supplier := range award.Suppliers {
			if err := s.processSupplier(ctx, resp, award, supplier, logger); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Stage) processSupplier(ctx context.Context, resp *tenders.Response, award *domain.Award, supplier domain.Supplier, logger *slog.Logger) error {
	tender := resp.Tender
	code := strings.TrimSpace(supplier.Identifier.ID)

	if domain.IsCodeInvalid(code) {
		logger.Info("identifier id is not valid", "code", code,
			telemetry.MessageID(telemetry.MsgInvalidCode))
		s.skipped(telemetry.SkipInvalidCode)
		return nil
	}

	if reason, ok := s.shouldProcessAward(tender, award, supplier); !ok {
		logger.Info("award skipped: scheme is not UA-EDR, lot inactive or already in process",
			"reason", reason, telemetry.MessageID(telemetry.MsgTenderNotProcess))
		s.skipped(reason)
		return nil
	}

	data := domain.NewData(tender.ID, award.ID, code, domain.ItemKindAwards, newDocumentID(), resp.RequestID)
	fillNames(data, supplier)

	s.tracker.SetItem(tender.ID, award.ID, s.retryBudget)
	if err := s.out.Put(ctx, data); err != nil {
		s.tracker.Forget(tender.ID, award.ID)
		return fmt.Errorf("put %s to edrpou_codes: %w", data.Key(), err)
	}

	logger.Info("data sent to edrpou_codes", telemetry.DataAttrs(data)...)
	if s.metrics != nil {
		s.metrics.ItemsEmitted.Inc()
	}
	return nil
}

// shouldProcessAward возвращает причину пропуска, если award не нужно
// отправлять на проверку.
func (s *Stage) shouldProcessAward(tender *domain.Tender, award *domain.Award, supplier domain.Supplier) (string, bool) {
	switch {
	case supplier.Identifier.Scheme != domain.IdentificationScheme:
		return telemetry.SkipWrongScheme, false
	case !domain.RelatedLotActive(tender, award):
		return telemetry.SkipInactiveLot, false
	case s.tracker.CheckProcessingItem(tender.ID, award.ID),
		s.tracker.CheckProcessedItem(tender.ID, award.ID):
		return telemetry.SkipDuplicate, false
	}
	return "", true
}

// consume забирает голову входной очереди.
func (s *Stage) consume(ctx context.Context, logger *slog.Logger) {
	if _, err := s.source.Get(ctx); err != nil {
		logger.Warn("get tender id from queue failed", "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.TendersProcessed.Inc()
	}
}

func (s *Stage) backoff(ctx context.Context) {
	t := time.NewTimer(s.errorBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Stage) skipped(reason string) {
	if s.metrics != nil {
		s.metrics.ItemsSkipped.WithLabelValues(reason).Inc()
	}
}

func (s *Stage) throttled() {
	if s.metrics != nil {
		s.metrics.UpstreamThrottled.WithLabelValues("tenders").Inc()
	}
}

// fillNames заполняет имя поставщика для XML-запроса.
func fillNames(data *domain.Data, supplier domain.Supplier) {
	name := supplier.Identifier.LegalName
	if name == "" {
		name = supplier.Name
	}
	if data.IsPhysical() {
		data.LastName, data.FirstName, data.FamilyName = domain.SplitPersonName(name)
		return
	}
	data.CompanyName = name
}

// newDocumentID — ID документа: uuid4 в hex без дефисов.
func newDocumentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
