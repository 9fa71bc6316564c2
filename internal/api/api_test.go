package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/uuid"

	"github.com/shaiso/adws/internal/domain"
	"github.com/shaiso/adws/internal/mq"
	"github.com/shaiso/adws/internal/repo"
	"github.com/shaiso/adws/internal/telemetry"
	"github.com/shaiso/adws/internal/workflows"
)

// --- Fakes ---

type fakeRuns struct {
	runs       []domain.Run
	lastFilter repo.RunFilter
	err        error
}

func (f *fakeRuns) GetByID(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeRuns) List(_ context.Context, filter repo.RunFilter) ([]domain.Run, error) {
	f.lastFilter = filter
	return f.runs, f.err
}

type fakeSteps struct {
	steps map[uuid.UUID][]domain.StepRun
}

func (f *fakeSteps) ListByRunID(_ context.Context, runID uuid.UUID) ([]domain.StepRun, error) {
	return f.steps[runID], nil
}

type fakeDispatcher struct {
	payloads []mq.DispatchPayload
	err      error
}

func (f *fakeDispatcher) PublishDispatch(_ context.Context, payload mq.DispatchPayload) error {
	f.payloads = append(f.payloads, payload)
	return f.err
}

var catalogFS = fstest.MapFS{
	"hello.yaml": &fstest.MapFile{Data: []byte(`
name: hello
description: say hello
steps:
  - name: greet
    shell: true
    command: echo hello
    output: greeting
  - name: cleanup
    shell: true
    command: "true"
    always_run: true
`)},
	"inner.yaml": &fstest.MapFile{Data: []byte(`
name: inner
dispatchable: false
steps:
  - name: a
    function: delay
`)},
	"broken.yaml": &fstest.MapFile{Data: []byte("name: [")},
}

type fixture struct {
	mux        *http.ServeMux
	runs       *fakeRuns
	steps      *fakeSteps
	dispatcher *fakeDispatcher
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		runs:       &fakeRuns{},
		steps:      &fakeSteps{steps: make(map[uuid.UUID][]domain.StepRun)},
		dispatcher: &fakeDispatcher{},
	}

	h := NewHandler(Config{
		Runs:       f.runs,
		Steps:      f.steps,
		Workflows:  workflows.NewLoader(workflows.Config{Builtin: catalogFS, Logger: logger}),
		Dispatcher: f.dispatcher,
		Logger:     logger,
	})
	f.mux = http.NewServeMux()
	h.RegisterRoutes(f.mux)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// --- Workflows ---

func TestListWorkflows(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/workflows", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	resp := decode[struct {
		Data  []WorkflowSummary `json:"data"`
		Total int               `json:"total"`
	}](t, rec)

	if resp.Total != 3 {
		t.Fatalf("total = %d, want 3", resp.Total)
	}

	byName := make(map[string]WorkflowSummary)
	for _, wf := range resp.Data {
		byName[wf.Name] = wf
	}

	if byName["broken"].Error == "" {
		t.Error("broken workflow should carry an error")
	}
	if hello := byName["hello"]; !hello.Dispatchable || hello.Steps != 2 || hello.Description != "say hello" {
		t.Errorf("hello = %+v", hello)
	}
	if byName["inner"].Dispatchable {
		t.Error("inner should not be dispatchable")
	}
}

func TestGetWorkflow(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"existing", "/api/v1/workflows/hello", http.StatusOK},
		{"missing", "/api/v1/workflows/nope", http.StatusNotFound},
		{"broken definition", "/api/v1/workflows/broken", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(t, http.MethodGet, tt.path, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.status, rec.Body)
			}
		})
	}

	f := newFixture()
	rec := f.do(t, http.MethodGet, "/api/v1/workflows/hello", nil)
	resp := decode[DataResponse](t, rec)
	data, _ := json.Marshal(resp.Data)

	var wf WorkflowResponse
	if err := json.Unmarshal(data, &wf); err != nil {
		t.Fatal(err)
	}
	if len(wf.Steps) != 2 || wf.Steps[0].Output != "greeting" || !wf.Steps[1].AlwaysRun {
		t.Errorf("steps = %+v", wf.Steps)
	}
	if wf.Steps[0].MaxAttempts != 1 {
		t.Errorf("max_attempts = %d, want normalized 1", wf.Steps[0].MaxAttempts)
	}
}

func TestCommandsFor(t *testing.T) {
	if got := commandsFor("build"); len(got) != 1 || got[0] != "/build" {
		t.Errorf("commandsFor(build) = %v", got)
	}
	if got := commandsFor("prime_context"); got != nil {
		t.Errorf("commandsFor(prime_context) = %v, want nil", got)
	}
}

// --- Runs ---

func TestListRuns_Filter(t *testing.T) {
	f := newFixture()
	run := domain.NewRun("build", "adws-1", nil, 1)
	f.runs.runs = []domain.Run{*run}

	rec := f.do(t, http.MethodGet, "/api/v1/runs?workflow=build&issue_id=adws-1&status=FAILED&limit=1000&offset=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	want := repo.RunFilter{
		Workflow: "build",
		IssueID:  "adws-1",
		Status:   domain.RunStatusFailed,
		Limit:    maxListLimit,
		Offset:   5,
	}
	if f.runs.lastFilter != want {
		t.Errorf("filter = %+v, want %+v", f.runs.lastFilter, want)
	}

	resp := decode[ListResponse](t, rec)
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}

func TestListRuns_BadQuery(t *testing.T) {
	tests := []string{
		"/api/v1/runs?status=DONE",
		"/api/v1/runs?limit=abc",
		"/api/v1/runs?limit=0",
		"/api/v1/runs?offset=-1",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			f := newFixture()
			rec := f.do(t, http.MethodGet, path, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestListRuns_RepoError(t *testing.T) {
	f := newFixture()
	f.runs.err = errors.New("connection reset")

	rec := f.do(t, http.MethodGet, "/api/v1/runs", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	// Внутренняя ошибка не утекает в ответ
	if bytes.Contains(rec.Body.Bytes(), []byte("connection reset")) {
		t.Errorf("body leaks error: %s", rec.Body)
	}
}

func TestGetRun(t *testing.T) {
	f := newFixture()
	run := domain.NewRun("test", "adws-2", map[string]any{"issue_id": "adws-2"}, 2)
	run.MarkRunning()
	run.MarkFailed(domain.NewPipelineError("run_tests", domain.ErrorTypeStepExecution, "exit 1"))
	f.runs.runs = []domain.Run{*run}

	rec := f.do(t, http.MethodGet, "/api/v1/runs/"+run.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	resp := decode[struct {
		Data RunResponse `json:"data"`
	}](t, rec)
	if resp.Data.Status != domain.RunStatusFailed || resp.Data.Attempt != 2 {
		t.Errorf("run = %+v", resp.Data)
	}
	if resp.Data.Error == nil || resp.Data.Error.StepName != "run_tests" {
		t.Errorf("error = %+v", resp.Data.Error)
	}

	if rec := f.do(t, http.MethodGet, "/api/v1/runs/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want 400", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/runs/"+uuid.NewString(), nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
}

func TestListRunSteps(t *testing.T) {
	f := newFixture()
	run := domain.NewRun("verify", "", nil, 1)
	f.runs.runs = []domain.Run{*run}

	vet := domain.NewStepRun(&domain.Step{Name: "go_vet", AlwaysRun: true})
	vet.RunID = run.ID
	vet.MarkRunning()
	vet.MarkSucceeded("ok")
	lint := domain.NewStepRun(&domain.Step{Name: "lint", AlwaysRun: true})
	lint.RunID = run.ID
	lint.MarkRunning()
	lint.MarkFailed(domain.NewPipelineError("lint", domain.ErrorTypeStepExecution, "exit 1"))
	f.steps.steps[run.ID] = []domain.StepRun{*vet, *lint}

	rec := f.do(t, http.MethodGet, "/api/v1/runs/"+run.ID.String()+"/steps", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	resp := decode[struct {
		Data  []StepRunResponse `json:"data"`
		Total int               `json:"total"`
	}](t, rec)
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2", resp.Total)
	}
	if resp.Data[0].StepName != "go_vet" || resp.Data[1].Status != domain.StepStatusFailed {
		t.Errorf("steps = %+v", resp.Data)
	}

	if rec := f.do(t, http.MethodGet, "/api/v1/runs/"+uuid.NewString()+"/steps", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
}

func TestRuns_NoHistory(t *testing.T) {
	h := NewHandler(Config{Workflows: workflows.NewLoader(workflows.Config{Builtin: catalogFS})})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	for _, path := range []string{"/api/v1/runs", "/api/v1/runs/" + uuid.NewString(), "/api/v1/runs/" + uuid.NewString() + "/steps"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, rec.Code)
		}
	}
}

// --- Dispatch ---

func TestDispatch(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		status    int
		published bool
	}{
		{"by workflow", DispatchRequest{Workflow: "hello", IssueID: "adws-1"}, http.StatusAccepted, true},
		{"unknown command", DispatchRequest{Command: "/deploy"}, http.StatusBadRequest, false},
		{"empty request", DispatchRequest{}, http.StatusBadRequest, false},
		{"missing workflow", DispatchRequest{Workflow: "nope"}, http.StatusNotFound, false},
		{"not dispatchable", DispatchRequest{Workflow: "inner"}, http.StatusUnprocessableEntity, false},
		{"invalid body", "not an object", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(t, http.MethodPost, "/api/v1/dispatch", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.status, rec.Body)
			}
			if got := len(f.dispatcher.payloads) == 1; got != tt.published {
				t.Errorf("published = %v, want %v", got, tt.published)
			}
		})
	}
}

func TestDispatch_AttemptFloor(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/api/v1/dispatch", DispatchRequest{Workflow: "hello"})

	if len(f.dispatcher.payloads) != 1 {
		t.Fatal("nothing published")
	}
	if got := f.dispatcher.payloads[0].Attempt; got != 1 {
		t.Errorf("attempt = %d, want 1", got)
	}
}

func TestDispatch_PublishError(t *testing.T) {
	f := newFixture()
	f.dispatcher.err = mq.ErrNoChannel

	rec := f.do(t, http.MethodPost, "/api/v1/dispatch", DispatchRequest{Workflow: "hello"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestErrorResponse_RequestID(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows/nope", nil)
	req.Header.Set(HeaderRequestID, "rid-1")
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Error.Code != ErrCodeNotFound || resp.Error.RequestID != "rid-1" {
		t.Errorf("error = %+v", resp.Error)
	}
}

// --- Middleware ---

func TestRequestID(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/workflows", nil)
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Error("response has no request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows", nil)
	req.Header.Set(HeaderRequestID, "abc")
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "abc" {
		t.Errorf("request id = %q, want abc", got)
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(RequestID(logger), Logging(), Recovery())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRequestID_LoggerInContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Chain(RequestID(logger), Logging())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	// Обе записи (обработчик и access-лог) несут request_id
	if got := strings.Count(buf.String(), "request_id=req-42"); got != 2 {
		t.Errorf("request_id in %d records, want 2:\n%s", got, buf.String())
	}
	if !strings.Contains(buf.String(), "status=204") {
		t.Errorf("access log missing status: %s", buf.String())
	}
}
