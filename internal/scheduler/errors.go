package scheduler

import "errors"

// ErrInvalidSchedule — некорректное cron-выражение или часовой пояс.
var ErrInvalidSchedule = errors.New("invalid schedule")
