package tenders

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRequest — запрос не выполнен (сеть, DNS, таймаут).
var ErrRequest = errors.New("tender api request failed")

// StatusError — API вернуло не-200.
type StatusError struct {
	Code      int
	Body      string
	RequestID string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tender api: HTTP %d: %s", e.Code, e.Body)
}

// IsTooManyRequests — ошибка означает 429 (throttling).
func IsTooManyRequests(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests
}
