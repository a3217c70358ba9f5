package telemetry

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/shaiso/dfsbridge/internal/domain"
)

// Идентификаторы событий журнала (атрибут message_id).
const (
	MsgGetTenderFromQueue = "get_tender_from_queue"
	MsgTenderProcess      = "tender_process"
	MsgTenderNotProcess   = "tender_not_process"
	MsgTenderException    = "tender_exception"
	MsgInvalidCode        = "invalid_code"
	MsgItemAbandoned      = "item_abandoned"
	MsgReferenceReceived  = "reference_received"
)

// LogLevel определяет уровень логирования из LOG_LEVEL.
// Значения: DEBUG, INFO, WARN, ERROR. По умолчанию INFO.
func LogLevel() slog.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger инициализирует глобальный логгер.
//
// LOG_FORMAT:
//   - "json" (по умолчанию) — для production
//   - "text" — для разработки
func SetupLogger() *slog.Logger {
	level := LogLevel()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", "dfs-bridge")
	slog.SetDefault(logger)
	return logger
}

type ctxKey string

// CtxLogger — ключ логгера в контексте.
const CtxLogger ctxKey = "logger"

// WithLogger кладёт логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext достаёт логгер из контекста, иначе глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithTenderID добавляет tender_id.
func WithTenderID(logger *slog.Logger, tenderID string) *slog.Logger {
	return logger.With("tender_id", tenderID)
}

// WithItemID добавляет item_id.
func WithItemID(logger *slog.Logger, itemID string) *slog.Logger {
	return logger.With("item_id", itemID)
}

// WithDocumentID добавляет document_id.
func WithDocumentID(logger *slog.Logger, documentID string) *slog.Logger {
	return logger.With("document_id", documentID)
}

// WithRequestID добавляет request_id.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// DataAttrs — набор correlation-атрибутов записи Data.
func DataAttrs(d *domain.Data) []any {
	if d == nil {
		return nil
	}
	return []any{
		"tender_id", d.TenderID,
		"item_id", d.ItemID,
		"document_id", d.DocID(),
	}
}

// MessageID — атрибут идентификатора события журнала.
func MessageID(id string) slog.Attr {
	return slog.String("message_id", id)
}
