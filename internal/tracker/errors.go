package tracker

import "errors"

// ErrItemNotTracked — award не находится в обработке.
var ErrItemNotTracked = errors.New("item is not tracked")
