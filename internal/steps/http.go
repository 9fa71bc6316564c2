package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/adws/internal/domain"
)

const (
	// FunctionHTTP — HTTP-запрос (webhook, статус CI, уведомление).
	FunctionHTTP = "http"

	defaultHTTPTimeout = 30 * time.Second
	maxHTTPBodyInError = 200
)

// HTTPFunction выполняет HTTP-запрос.
//
// Параметры (уже отрендерены executor'ом):
//
//	params:
//	  method: POST                 # default: GET
//	  url: https://ci.example/hook # обязательно
//	  headers: {X-Token: "..."}
//	  body: {issue: "{{ .Inputs.issue_id }}"}   # сериализуется в JSON
//	  timeout_sec: 10              # default: 30
//
// Output: {status_code, headers, body}. Ответ >= 400 — ошибка шага
// с кодом и началом тела ответа в контексте ошибки.
type HTTPFunction struct {
	client *http.Client
}

// NewHTTPFunction создаёт HTTPFunction. client == nil — http.DefaultClient.
func NewHTTPFunction(client *http.Client) *HTTPFunction {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFunction{client: client}
}

// Name возвращает имя функции.
func (f *HTTPFunction) Name() string {
	return FunctionHTTP
}

// Run выполняет запрос.
func (f *HTTPFunction) Run(ctx context.Context, req *Request) (*Response, error) {
	method := strings.ToUpper(GetParamString(req.Params, "method"))
	if method == "" {
		method = http.MethodGet
	}
	url := GetParamString(req.Params, "url")
	if url == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidParams, FunctionHTTP)
	}

	timeout := defaultHTTPTimeout
	if sec := GetParamInt(req.Params, "timeout_sec"); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if body, ok := req.Params["body"]; ok && body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: marshal body: %v", ErrInvalidParams, FunctionHTTP, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParams, FunctionHTTP, err)
	}
	for key, val := range GetParamMapString(req.Params, "headers") {
		httpReq.Header.Set(key, val)
	}
	if bodyReader != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	output := httpOutput(resp, respBody)

	if resp.StatusCode >= http.StatusBadRequest {
		perr := domain.NewPipelineError(req.StepName(), domain.ErrorTypeStepExecution,
			fmt.Sprintf("HTTP %d", resp.StatusCode))
		perr.Context["tool"] = FunctionHTTP
		perr.Context["url"] = url
		perr.Context["status_code"] = resp.StatusCode
		perr.Context["output"] = truncate(string(respBody), maxHTTPBodyInError)
		return nil, perr
	}

	return NewResponse(output), nil
}

// httpOutput формирует output шага из ответа: тело как JSON, иначе строка.
func httpOutput(resp *http.Response, body []byte) map[string]any {
	headers := make(map[string]any, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		parsed = string(body)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        parsed,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
