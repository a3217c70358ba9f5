// Package tracker реализует ProcessTracker — учёт award'ов, по которым
// отправлен запрос на проверку, чтобы один и тот же award не ушёл
// в реестр дважды.
//
// Жизненный цикл ключа tender_id + "_" + item_id:
//
//	SetItem → processing → UpdateItemsAndTender   → processed
//	                     ↘ UpdateProcessingItems → abandoned (бюджет повторов исчерпан)
//
// Тендер считается полностью обработанным, когда счётчик ожидаемых
// документов доходит до нуля через RemoveDocsAmountFromTender; тогда
// в Store пишется отметка processed_tender:<id>.
package tracker
