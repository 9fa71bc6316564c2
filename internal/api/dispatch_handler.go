package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shaiso/adws/internal/mq"
	"github.com/shaiso/adws/internal/workflows"
)

// Dispatch ставит команду в очередь workflow.dispatch.
// Workflow проверяется до публикации: несуществующий или
// не-dispatchable workflow в очередь не попадает.
// POST /api/v1/dispatch
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		Unavailable(w, "dispatch queue is not configured")
		return
	}

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	name := req.Workflow
	if name == "" {
		if req.Command == "" {
			BadRequest(w, "command or workflow is required")
			return
		}
		var err error
		name, err = workflows.WorkflowForCommand(req.Command)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
	}

	wf, err := h.workflows.Load(name)
	if HandleError(w, r, err, "workflow not found") {
		return
	}
	if !wf.Dispatchable {
		InvalidState(w, fmt.Sprintf("%v: %s", workflows.ErrNotDispatchable, name))
		return
	}

	payload := mq.DispatchPayload{
		Command:  req.Command,
		Workflow: req.Workflow,
		IssueID:  req.IssueID,
		Inputs:   req.Inputs,
		Attempt:  max(req.Attempt, 1),
	}
	if err := h.dispatcher.PublishDispatch(r.Context(), payload); err != nil {
		InternalError(w, r, err)
		return
	}

	h.logger.Info("workflow dispatched", "workflow", name, "issue_id", req.IssueID)
	Accepted(w, DispatchResponse{Workflow: name, IssueID: req.IssueID, Queued: true})
}
