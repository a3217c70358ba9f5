// Package worker реализует супервизор стадий конвейера.
//
// # Обзор
//
// Каждая стадия бриджа (FilterStage, ReferenceStage) — это набор
// именованных долгоживущих jobs. Worker отвечает за их жизненный цикл:
//
//   - Ожидание доступности сервисов (Gate) перед запуском jobs
//   - По одной горутине на job
//   - Периодическую проверку живости и перезапуск умерших jobs
//   - Кооперативную остановку с ограниченным ожиданием
//
// # Ключевые компоненты
//
// ## Worker
//
//	w := worker.New(worker.Config{
//	    Name:   "filter_tender",
//	    Jobs:   stage.Jobs(),
//	    Gate:   gate,
//	    Logger: logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    return err
//	}
//	defer w.Stop()
//
// Состояния: NotStarted → Running → Stopping → Stopped.
//
// ## Gate
//
// Общий для всех стадий признак доступности внешних сервисов.
// Монитор здоровья закрывает его при недоступности хранилища или API
// площадки, и все стадии приостанавливаются перед следующей итерацией.
//
// ## Loop
//
// Типовой цикл job: Gate → единица работы → пауза Governor.
// Отмена кооперативная: context проверяется раз за итерацию, текущая
// итерация не прерывается.
//
// # Ошибки
//
// Ожидаемые ошибки (недоступный upstream, невалидные данные) стадии
// логируют и поглощают. Ошибка, вернувшаяся из job, или паника
// означают смерть job; супервизор перезапустит её на следующей проверке.
package worker
