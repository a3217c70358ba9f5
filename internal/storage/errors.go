package storage

import "errors"

// Общие ошибки хранилища.
var (
	// ErrNotFound — ключ отсутствует.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable — хранилище недоступно (сеть, таймаут, ошибка драйвера).
	// Вызывающий не должен трактовать её как "ключа нет".
	ErrUnavailable = errors.New("storage unavailable")

	// ErrUnknownBackend — неизвестное имя backend в конфигурации.
	ErrUnknownBackend = errors.New("unknown storage backend")
)
