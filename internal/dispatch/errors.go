package dispatch

import "errors"

// ErrInvalidPayload — сообщение нельзя превратить в запрос на запуск.
var ErrInvalidPayload = errors.New("invalid dispatch payload")
