package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Причины пропуска award (метка reason).
const (
	SkipIneligible   = "ineligible"
	SkipInvalidCode  = "invalid_code"
	SkipInactiveLot  = "inactive_lot"
	SkipWrongScheme  = "wrong_scheme"
	SkipDuplicate    = "duplicate"
	SkipTenderMarked = "tender_processed"
)

// Metrics — Prometheus-коллекторы бриджа.
type Metrics struct {
	TendersProcessed   prometheus.Counter
	ItemsEmitted       prometheus.Counter
	ItemsSkipped       *prometheus.CounterVec
	UpstreamThrottled  *prometheus.CounterVec
	GovernorDelay      prometheus.Gauge
	ReferencesReceived prometheus.Counter
	JobRestarts        *prometheus.CounterVec
	ServicesAvailable  prometheus.Gauge
}

// NewMetrics регистрирует коллекторы в reg. nil — отдельный реестр
// (для тестов), prometheus.DefaultRegisterer — для /metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		TendersProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "dfs_tenders_processed_total",
			Help: "Tender IDs consumed from the source queue.",
		}),
		ItemsEmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "dfs_items_emitted_total",
			Help: "Data records sent to edrpou_codes.",
		}),
		ItemsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dfs_items_skipped_total",
			Help: "Awards or suppliers skipped by the filter.",
		}, []string{"reason"}),
		UpstreamThrottled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dfs_upstream_throttled_total",
			Help: "HTTP 429 responses from upstream services.",
		}, []string{"service"}),
		GovernorDelay: f.NewGauge(prometheus.GaugeOpts{
			Name: "dfs_governor_delay_seconds",
			Help: "Current pacing delay between stage iterations.",
		}),
		ReferencesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "dfs_references_received_total",
			Help: "Reference documents batches sent to the reference queue.",
		}),
		JobRestarts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dfs_job_restarts_total",
			Help: "Supervisor restarts of dead jobs.",
		}, []string{"worker", "job"}),
		ServicesAvailable: f.NewGauge(prometheus.GaugeOpts{
			Name: "dfs_services_available",
			Help: "1 while all upstream services answer health checks.",
		}),
	}
}
