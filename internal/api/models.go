package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todos-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login. The session itself
// travels in the cookie.
type AuthResponse struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username}
}

// CreateTodoRequest defines the payload for creating a todo.
type CreateTodoRequest struct {
	Title string `json:"title" validate:"required,max=100"`
}

// UpdateTodoRequest defines the payload for updating a todo. Omitted fields
// keep their current value.
type UpdateTodoRequest struct {
	Title    *string `json:"title,omitempty"    validate:"omitempty,min=1,max=100"`
	Complete *bool   `json:"complete,omitempty"`
}

// TodoResponse is the JSON view of a todo.
type TodoResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Complete  bool      `json:"complete"`
	HasPic    bool      `json:"has_pic"`
	Assignees []int64   `json:"assignees"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func todoToResponse(t *domain.Todo) TodoResponse {
	assignees := t.Assignees
	if assignees == nil {
		assignees = []int64{}
	}
	return TodoResponse{
		ID:        t.ID,
		Title:     t.Title,
		Complete:  t.Complete,
		HasPic:    t.HasPic,
		Assignees: assignees,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// TodoListResponse wraps a list of todos with its length.
type TodoListResponse struct {
	Todos []TodoResponse `json:"todos"`
	Count int            `json:"count"`
}

// SubmitTaskResponse is returned when a task message has been queued.
type SubmitTaskResponse struct {
	ID     uuid.UUID `json:"id"`
	Task   string    `json:"task"`
	Status string    `json:"status"`
}

// TaskResultResponse is the stored outcome of a task invocation.
type TaskResultResponse struct {
	ID       uuid.UUID       `json:"id"`
	Task     string          `json:"task"`
	Status   string          `json:"status"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	DateDone time.Time       `json:"date_done"`
}
