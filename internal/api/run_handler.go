package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/adws/internal/domain"
	"github.com/shaiso/adws/internal/repo"
)

// maxListLimit — верхняя граница limit для списков.
const maxListLimit = 500

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?workflow=...&issue_id=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		Unavailable(w, "run history is not configured")
		return
	}

	q := r.URL.Query()
	filter := repo.RunFilter{
		Workflow: q.Get("workflow"),
		IssueID:  q.Get("issue_id"),
		Limit:    repo.DefaultListLimit,
	}

	if status := q.Get("status"); status != "" {
		filter.Status = domain.RunStatus(status)
		if domain.ParseRunStatus(status) != filter.Status {
			BadRequest(w, "invalid status")
			return
		}
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}

	if s := q.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	runs, err := h.runs.List(r.Context(), filter)
	if HandleError(w, r, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		Unavailable(w, "run history is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if HandleError(w, r, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// ListRunSteps возвращает шаги run в порядке выполнения.
// GET /api/v1/runs/{id}/steps
func (h *Handler) ListRunSteps(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil || h.steps == nil {
		Unavailable(w, "run history is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	// Проверяем, что run существует
	_, err = h.runs.GetByID(r.Context(), id)
	if HandleError(w, r, err, "run not found") {
		return
	}

	steps, err := h.steps.ListByRunID(r.Context(), id)
	if HandleError(w, r, err, "") {
		return
	}

	result := make([]StepRunResponse, len(steps))
	for i, s := range steps {
		result[i] = StepRunFromDomain(s)
	}

	List(w, result, len(result))
}
