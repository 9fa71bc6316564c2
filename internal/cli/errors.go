package cli

import "errors"

// ErrWorkflowFailed — workflow завершился неудачей (детали уже выведены).
// main завершает процесс с кодом 1 без повторного вывода ошибки.
var ErrWorkflowFailed = errors.New("workflow failed")

// ErrDispatchBlocked — guard запретил диспетчеризацию задачи.
var ErrDispatchBlocked = errors.New("dispatch blocked")
