// Package bridge собирает сервис из стадий.
//
// # Обзор
//
// New по конфигурации открывает хранилище, создаёт ProcessTracker,
// Governor, Gate и очереди (RabbitMQ или в памяти), стадии FilterStage
// и ReferenceStage и по супервизору worker.Worker на каждую.
//
// Run запускает под errgroup:
//   - Monitor — проверку здоровья хранилища и внешних API, которая
//     открывает и закрывает Gate;
//   - супервизоры стадий;
//   - служебный HTTP (/healthz, /metrics).
//
// Отмена ctx останавливает всё; Close закрывает соединения.
package bridge
