package domain

import "errors"

// Ошибки доменного слоя.
var (
	// ErrMalformedTender — в документе тендера отсутствует обязательное поле.
	ErrMalformedTender = errors.New("malformed tender")

	// ErrNoDocumentID — Data создана без payload.meta.id.
	ErrNoDocumentID = errors.New("data has no document id")
)
