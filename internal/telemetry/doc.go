// Package telemetry — логирование и метрики бриджа.
//
// Включает:
//   - logging.go — slog (LOG_LEVEL, LOG_FORMAT) и correlation-атрибуты
//     tender_id / item_id / document_id / request_id
//   - metrics.go — Prometheus-коллекторы dfs_*
//
// Метрики экспортируются на /metrics, см. internal/bridge.
package telemetry
