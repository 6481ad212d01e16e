package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/todos-api/internal/domain"
)

// TodoFilter narrows List and Count. A nil field matches every todo.
type TodoFilter struct {
	Complete *bool `json:"complete,omitempty"`
}

// TodoStore defines the interface for todo data persistence.
type TodoStore interface {
	// Create saves a new todo. Returns validation errors from the domain Todo.
	Create(ctx context.Context, todo *domain.Todo) error

	// GetByID retrieves a todo and its assignees, without the picture bytes.
	// Returns ErrTodoNotFound if the todo does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Todo, error)

	// List returns the todos matching filter, newest first.
	List(ctx context.Context, filter TodoFilter) ([]*domain.Todo, error)

	// Count returns the number of todos matching filter.
	Count(ctx context.Context, filter TodoFilter) (int, error)

	// Update saves title and completion state and bumps UpdatedAt.
	// Returns ErrTodoNotFound if the todo does not exist.
	Update(ctx context.Context, todo *domain.Todo) error

	// Delete removes a todo and its assignments.
	// Returns ErrTodoNotFound if the todo does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// SetPic replaces the todo's picture.
	// Returns ErrTodoNotFound if the todo does not exist.
	SetPic(ctx context.Context, id uuid.UUID, pic []byte) error

	// GetPic returns the todo's picture.
	// Returns ErrTodoNotFound or ErrPicNotFound.
	GetPic(ctx context.Context, id uuid.UUID) ([]byte, error)

	// AddAssignee assigns a user to a todo.
	// Returns ErrAlreadyAssigned, or ErrInvalidEntity when either side is missing.
	AddAssignee(ctx context.Context, todoID uuid.UUID, userID int64) error

	// RemoveAssignee unassigns a user from a todo.
	// Returns ErrAssignmentNotFound if the user was not assigned.
	RemoveAssignee(ctx context.Context, todoID uuid.UUID, userID int64) error

	// WithTx returns a new TodoStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TodoStore
}
