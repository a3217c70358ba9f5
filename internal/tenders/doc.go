// Package tenders — клиент API площадки закупок.
//
// FilterStage читает через него полные документы тендеров по ID из
// очереди filtered_tender_ids. Клиент различает три исхода:
//   - успех — Response с разобранным Tender и X-Request-ID
//   - throttling — StatusError с кодом 429 (IsTooManyRequests)
//   - прочие ошибки — StatusError, ErrRequest или domain.ErrMalformedTender
package tenders
