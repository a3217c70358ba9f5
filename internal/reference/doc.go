// Package reference реализует ReferenceStage.
//
// # Обзор
//
// В рабочее окно получателя стадия перебирает ожидающие запросы
// (storage.RequestDB), спрашивает канал корреспонденции, сколько
// документов готово, и при ненулевом количестве забирает документы и
// кладёт (request_id, documents) в очередь reference.
//
// ## BusinessHours
//
// Окно задаётся cron-выражением (robfig/cron) в часовом поясе
// получателя; праздничные дни исключаются.
package reference
