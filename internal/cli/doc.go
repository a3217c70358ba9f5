// Package cli реализует командную строку dfs-bridge.
//
// # Обзор
//
// Корневая команда создаётся NewRootCmd; бинарь cmd/dfs-bridge только
// вызывает её. Конфигурация читается из --config (YAML) поверх
// значений по умолчанию и переменных окружения.
//
// # Команды
//
//   - run: запуск бриджа до SIGINT/SIGTERM
//   - check-tender: отметка processed_tender в хранилище
//   - enqueue: публикация ID тендеров в filtered_tender_ids (AMQP)
//   - pending: запросы, ожидающие ответа реестра
//   - send-request: ручная отправка XML-запроса и регистрация ожидания
//   - version
//
// Каждая команда создаётся фабрикой (NewCheckTenderCmd и т.д.),
// принимающей envFn и outputFn — замыкания, которые вызываются после
// разбора PersistentFlags.
//
// ## Output
//
// Таблицы (text/tabwriter) по умолчанию, JSON с флагом --json.
// Данные идут в stdout, сообщения (Success/Error) в stderr:
//
//	dfs-bridge pending --json | jq 'keys'
package cli
