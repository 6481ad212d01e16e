package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/todos-api/internal/api/middleware"
	"github.com/phrazzld/todos-api/internal/api/shared"
	"github.com/phrazzld/todos-api/internal/config"
	"github.com/phrazzld/todos-api/internal/domain"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/phrazzld/todos-api/internal/store"
)

// PicFormField is the multipart field carrying an uploaded todo picture.
const PicFormField = "pic"

// TodoHandler serves the todo endpoints.
type TodoHandler struct {
	stores StoreProvider
	upload config.UploadConfig
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(stores StoreProvider, upload config.UploadConfig) *TodoHandler {
	return &TodoHandler{stores: stores, upload: upload}
}

// List handles GET /todos. The optional complete query parameter filters by
// completion state.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	complete, err := parseBoolParam(r, "complete")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil
	}

	todos, err := h.stores.Todos(r.Context(), rc)
	if err != nil {
		return err
	}
	list, err := todos.List(r.Context(), store.TodoFilter{Complete: complete})
	if err != nil {
		return fmt.Errorf("failed to list todos: %w", err)
	}

	resp := TodoListResponse{Todos: make([]TodoResponse, 0, len(list))}
	for _, t := range list {
		resp.Todos = append(resp.Todos, todoToResponse(t))
	}
	resp.Count = len(resp.Todos)
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
	return nil
}

// Create handles POST /todos.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	if !requireUser(w, r, rc) {
		return nil
	}

	var req CreateTodoRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return nil
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return nil
	}

	todo, err := domain.NewTodo(req.Title)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil
	}

	todos, err := h.stores.Todos(r.Context(), rc)
	if err != nil {
		return err
	}
	if err := todos.Create(r.Context(), todo); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			HandleAPIError(w, r, err, "")
			return nil
		}
		return fmt.Errorf("failed to create todo: %w", err)
	}

	logger.FromContext(r.Context()).Info("todo created",
		"todo_id", todo.ID.String(),
		"user_id", rc.User.ID)
	shared.RespondWithJSON(w, r, http.StatusCreated, todoToResponse(todo))
	return nil
}

// Get handles GET /todos/{id}.
func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil
	}

	todos, err := h.stores.Todos(r.Context(), rc)
	if err != nil {
		return err
	}
	todo, err := todos.GetByID(r.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get todo %s: %w", id, err)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, todoToResponse(todo))
	return nil
}

// Update handles PUT /todos/{id}. Omitted fields keep their value.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	if !requireUser(w, r, rc) {
		return nil
	}

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil
	}

	var req UpdateTodoRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return nil
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return nil
	}

	todos, err := h.stores.Todos(r.Context(), rc)
	if err != nil {
		return err
	}
	todo, err := todos.GetByID(r.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get todo %s: %w", id, err)
	}

	if req.Title != nil {
		todo.Title = strings.TrimSpace(*req.Title)
	}
	if req.Complete != nil {
		todo.Complete = *req.Complete
	}
	if err := todo.Validate(); err != nil {
		HandleAPIError(w, r, err, "")
		return nil
	}

	if err := todos.Update(r.Context(), todo); err != nil {
		return fmt.Errorf("failed to update todo %s: %w", id, err)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, todoToResponse(todo))
	return nil
}

// Delete handles DELETE /todos/{id}.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	if !requireUser(w, r, rc) {
		return nil
	}

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil
	}

	todos, err := h.stores.Todos(r.Context(), rc)
	if err != nil {
		return err
	}
	if err := todos.Delete(r.Context(), id); err != nil {
		return fmt.Errorf("failed to delete todo %s: %w", id, err)
	}

	logger.FromContext(r.Context()).Info("todo deleted",
		"todo_id", id.String(),
		"user_id", rc.User.ID)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Assign handles POST /todos/{id}/assignees/{userID}.
func (h *TodoHandler) Assign(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	if !requireUser(w, r, rc) {
		return nil
	}

	todoID, userID, ok := h.assignmentParams(w, r)
	if !ok {
		return nil
	}

	todos, err := h.stores.Todos(r.Context(), rc)
	if err != nil {
		return err
	}
	users, err := h.stores.Users(r.Context(), rc)
	if err != nil {
		return err
	}
	if _, err := todos.GetByID(r.Context(), todoID); err != nil {
		return fmt.Errorf("failed to get todo %s: %w", todoID, err)
	}
	if _, err := users.GetByID(r.Context(), userID); err != nil {
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	if err := todos.AddAssignee(r.Context(), todoID, userID); err != nil {
		if errors.Is(err, store.ErrAlreadyAssigned) || errors.Is(err, store.ErrInvalidEntity) {
			HandleAPIError(w, r, err, "")
			return nil
		}
		return fmt.Errorf("failed to assign user %d to todo %s: %w", userID, todoID, err)
	}

	return h.respondWithTodo(w, r, todos, todoID)
}

// Unassign handles DELETE /todos/{id}/assignees/{userID}.
func (h *TodoHandler) Unassign(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	if !requireUser(w, r, rc) {
		return nil
	}

	todoID, userID, ok := h.assignmentParams(w, r)
	if !ok {
		return nil
	}

	todos, err := h.stores.Todos(r.Context(), rc)
	if err != nil {
		return err
	}
	if _, err := todos.GetByID(r.Context(), todoID); err != nil {
		return fmt.Errorf("failed to get todo %s: %w", todoID, err)
	}
	if err := todos.RemoveAssignee(r.Context(), todoID, userID); err != nil {
		return fmt.Errorf("failed to unassign user %d from todo %s: %w", userID, todoID, err)
	}

	return h.respondWithTodo(w, r, todos, todoID)
}

// UploadPic handles PUT /todos/{id}/pic with a multipart body carrying the
// picture in the "pic" field.
func (h *TodoHandler) UploadPic(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	if !requireUser(w, r, rc) {
		return nil
	}

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.upload.MaxContentLength)
	if err := r.ParseMultipartForm(h.upload.MaxContentLength); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds %d bytes", h.upload.MaxContentLength), err)
			return nil
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid multipart body", err)
		return nil
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(PicFormField)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing pic file")
		return nil
	}
	defer func() { _ = file.Close() }()

	ext := filepath.Ext(header.Filename)
	if !h.upload.AllowsExtension(ext) {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			fmt.Sprintf("File type %q is not allowed", ext))
		return nil
	}

	pic, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	if len(pic) == 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Empty pic file")
		return nil
	}

	todos, err := h.stores.Todos(r.Context(), rc)
	if err != nil {
		return err
	}
	if err := todos.SetPic(r.Context(), id, pic); err != nil {
		return fmt.Errorf("failed to store picture for todo %s: %w", id, err)
	}

	logger.FromContext(r.Context()).Info("todo picture uploaded",
		"todo_id", id.String(),
		"bytes", len(pic))
	return h.respondWithTodo(w, r, todos, id)
}

// GetPic handles GET /todos/{id}/pic.
func (h *TodoHandler) GetPic(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil
	}

	todos, err := h.stores.Todos(r.Context(), rc)
	if err != nil {
		return err
	}
	pic, err := todos.GetPic(r.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get picture for todo %s: %w", id, err)
	}

	w.Header().Set("Content-Type", http.DetectContentType(pic))
	w.Header().Set("Content-Length", strconv.Itoa(len(pic)))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(pic)
	return err
}

func (h *TodoHandler) assignmentParams(w http.ResponseWriter, r *http.Request) (todoID uuid.UUID, userID int64, ok bool) {
	todoID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return todoID, 0, false
	}
	userID, err = getPathInt64(r, "userID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return todoID, 0, false
	}
	return todoID, userID, true
}

func (h *TodoHandler) respondWithTodo(w http.ResponseWriter, r *http.Request, todos store.TodoStore, id uuid.UUID) error {
	todo, err := todos.GetByID(r.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to reload todo %s: %w", id, err)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, todoToResponse(todo))
	return nil
}
