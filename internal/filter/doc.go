// Package filter реализует FilterStage.
//
// Стадия читает ID тендеров из filtered_tender_ids (peek, без удаления),
// загружает тендер из API площадки и для каждого award в статусе
// pending без выписки из реестра создаёт запись Data на каждого
// поставщика со схемой UA-EDR. Записи уходят в edrpou_codes,
// ProcessTracker не даёт отправить award повторно.
//
// ID удаляется из очереди ровно один раз, после разбора всех award'ов.
// При 429 и других временных ошибках ID остаётся в очереди, а 429
// дополнительно увеличивает паузу Governor.
package filter
