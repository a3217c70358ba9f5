package sfs

import (
	"errors"
	"fmt"
)

var (
	// ErrRequest — запрос к каналу корреспонденции не выполнен.
	ErrRequest = errors.New("correspondence request failed")

	// ErrInvalidRequest — XML-запрос не прошёл проверку схемы.
	ErrInvalidRequest = errors.New("invalid correspondence request")

	// ErrBadResponse — ответ канала не удалось разобрать.
	ErrBadResponse = errors.New("malformed correspondence response")
)

// StatusError — канал вернул не-2xx.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("correspondence %s: HTTP %d: %s", e.Op, e.Code, e.Body)
}
