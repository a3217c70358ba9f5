package worker

import "errors"

// Ошибки воркера.
var (
	// ErrAlreadyStarted — Start вызван повторно.
	ErrAlreadyStarted = errors.New("worker already started")

	// ErrNotRunning — операция требует запущенного воркера.
	ErrNotRunning = errors.New("worker is not running")

	// ErrUnknownJob — нет job с таким именем.
	ErrUnknownJob = errors.New("unknown job")

	// ErrStopTimeout — jobs не завершились за StopTimeout.
	ErrStopTimeout = errors.New("stop timeout exceeded")

	// ErrJobPanic — job завершилась паникой.
	ErrJobPanic = errors.New("job panicked")
)
