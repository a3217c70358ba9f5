// Package api содержит служебный HTTP API бриджа.
//
// Структура:
//   - handler.go        — Handler с DI (трекер, очереди, супервизоры, logger)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (logging, recovery)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - dto.go            — ответы API
//   - status_handler.go — /status и /workers
//   - tender_handler.go — /tenders и /requests
//
// API читает состояние ProcessTracker и RequestDB и позволяет вручную
// поставить тендер во входную очередь или перезапустить job.
package api
