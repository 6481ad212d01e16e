package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/todos-api/internal/api/middleware"
	"github.com/phrazzld/todos-api/internal/api/shared"
	"github.com/phrazzld/todos-api/internal/domain"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/phrazzld/todos-api/internal/task"
)

// maxTaskArgsBytes bounds the JSON args accepted by POST /tasks/{name}.
const maxTaskArgsBytes = 64 << 10

// TaskSender publishes on-demand task invocations. *task.Client satisfies it.
type TaskSender interface {
	Send(ctx context.Context, name string, args json.RawMessage) (task.Message, error)
}

// TaskHandler submits tasks and reports their stored results.
type TaskHandler struct {
	sender  TaskSender
	results task.ResultStore
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(sender TaskSender, results task.ResultStore) *TaskHandler {
	return &TaskHandler{sender: sender, results: results}
}

// Submit handles POST /tasks/{name}. The optional JSON body becomes the task
// args.
func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	if !requireUser(w, r, rc) {
		return nil
	}

	name := chi.URLParam(r, "name")
	args, err := io.ReadAll(io.LimitReader(r.Body, maxTaskArgsBytes+1))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return nil
	}
	if len(args) > maxTaskArgsBytes {
		shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "Task arguments too large")
		return nil
	}

	msg, err := h.sender.Send(r.Context(), name, args)
	if err != nil {
		if errors.Is(err, task.ErrUnknownTask) ||
			errors.Is(err, task.ErrMalformedMessage) ||
			errors.Is(err, task.ErrQueueFull) {
			HandleAPIError(w, r, err, "")
			return nil
		}
		return err
	}

	logger.FromContext(r.Context()).Info("task submitted",
		"task", msg.Task,
		"task_id", msg.ID.String(),
		"user_id", rc.User.ID)
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitTaskResponse{
		ID:     msg.ID,
		Task:   msg.Task,
		Status: string(task.StatusPending),
	})
	return nil
}

// Result handles GET /tasks/results/{id}. A task with no stored result is
// reported as PENDING, since the id may belong to a queued message.
func (h *TaskHandler) Result(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: id has invalid format", domain.ErrInvalidID), "")
		return nil
	}

	result, err := h.results.Get(r.Context(), id)
	if errors.Is(err, task.ErrResultNotFound) {
		shared.RespondWithJSON(w, r, http.StatusOK, TaskResultResponse{
			ID:     id,
			Status: string(task.StatusPending),
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read task result %s: %w", id, err)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskResultResponse{
		ID:       result.ID,
		Task:     result.Task,
		Status:   string(result.Status),
		Result:   result.Result,
		Error:    result.Error,
		DateDone: result.DateDone,
	})
	return nil
}
