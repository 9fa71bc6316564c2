package api

import (
	"net/http"

	"github.com/shaiso/adws/internal/workflows"
)

// ListWorkflows возвращает доступные workflow.
// Битое определение не ломает список: ошибка попадает в поле error.
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	names, err := h.workflows.List()
	if HandleError(w, r, err, "") {
		return
	}

	result := make([]WorkflowSummary, len(names))
	for i, name := range names {
		result[i] = WorkflowSummary{Name: name}

		wf, err := h.workflows.Load(name)
		if err != nil {
			result[i].Error = err.Error()
			continue
		}
		result[i].Description = wf.Description
		result[i].Dispatchable = wf.Dispatchable
		result[i].Steps = len(wf.Steps)
	}

	List(w, result, len(result))
}

// GetWorkflow возвращает workflow по имени.
// GET /api/v1/workflows/{name}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	wf, err := h.workflows.Load(name)
	if HandleError(w, r, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(wf, commandsFor(name)))
}

// commandsFor возвращает команды, которые запускают workflow.
func commandsFor(name string) []string {
	var result []string
	for _, cmd := range workflows.Commands() {
		if workflows.CommandWorkflows[cmd] == name {
			result = append(result, cmd)
		}
	}
	return result
}
