// Package storage реализует долговременное key/value хранилище бриджа.
//
// Store — тонкий контракт get/put/has, на котором построены
// ProcessTracker (отметки обработанных тендеров) и RequestDB
// (ожидающие ответа запросы в канал корреспонденции).
//
// Backends:
//   - redis.go    — Redis (по умолчанию)
//   - postgres.go — PostgreSQL, таблица bridge_kv
//   - mongo.go    — MongoDB, коллекция bridge_kv с TTL-индексом
//   - memory.go   — память процесса (тесты, разработка)
//
// Любая ошибка ввода-вывода оборачивается в ErrUnavailable, отсутствие
// ключа — ErrNotFound. Вызывающий обязан различать эти случаи:
// недоступное хранилище не означает "тендер не обработан".
package storage
