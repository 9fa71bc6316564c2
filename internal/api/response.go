package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shaiso/adws/internal/repo"
	"github.com/shaiso/adws/internal/telemetry"
	"github.com/shaiso/adws/internal/workflows"
)

// ErrorCode — машиночитаемый код ошибки в ответе.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeInvalidState  ErrorCode = "INVALID_STATE"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnavailable   ErrorCode = "UNAVAILABLE"
)

// statusCodes — HTTP статус для каждого кода.
var statusCodes = map[ErrorCode]int{
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,
	ErrCodeInternalError: http.StatusInternalServerError,
	ErrCodeUnavailable:   http.StatusServiceUnavailable,
}

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail описывает ошибку. RequestID совпадает с X-Request-ID ответа.
type ErrorDetail struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// DataResponse — тело успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — тело ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON пишет status и тело v.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success — 200 с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Accepted — 202: работа поставлена в очередь.
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// List — 200 со списком и его размером.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error пишет ошибку с кодом code. Статус берётся из statusCodes.
func Error(w http.ResponseWriter, code ErrorCode, message string) {
	status, ok := statusCodes[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	JSON(w, status, ErrorResponse{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: w.Header().Get(HeaderRequestID),
	}})
}

func BadRequest(w http.ResponseWriter, message string)   { Error(w, ErrCodeBadRequest, message) }
func NotFound(w http.ResponseWriter, message string)     { Error(w, ErrCodeNotFound, message) }
func InvalidState(w http.ResponseWriter, message string) { Error(w, ErrCodeInvalidState, message) }

// Unavailable — нужная зависимость (БД, брокер) не настроена.
func Unavailable(w http.ResponseWriter, message string) { Error(w, ErrCodeUnavailable, message) }

// InternalError логирует err логгером запроса и отвечает 500 без деталей.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	telemetry.FromContext(r.Context()).Error("internal error",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	Error(w, ErrCodeInternalError, "internal server error")
}

// errorCode сопоставляет ошибку репозитория или загрузчика коду ответа.
func errorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, workflows.ErrWorkflowNotFound):
		return ErrCodeNotFound
	case errors.Is(err, repo.ErrInvalidState),
		errors.Is(err, workflows.ErrInvalidDefinition),
		errors.Is(err, workflows.ErrSequenceCycle):
		return ErrCodeInvalidState
	default:
		return ErrCodeInternalError
	}
}

// HandleError пишет ответ для err и возвращает true; для nil — false.
// notFoundMsg заменяет текст ошибки в 404.
func HandleError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}

	switch code := errorCode(err); code {
	case ErrCodeNotFound:
		NotFound(w, notFoundMsg)
	case ErrCodeInvalidState:
		InvalidState(w, err.Error())
	default:
		InternalError(w, r, err)
	}
	return true
}
