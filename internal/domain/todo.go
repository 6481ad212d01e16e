package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTitleLength is the column limit for todo titles.
const MaxTitleLength = 100

// Common validation errors for Todo
var (
	ErrEmptyTodoID  = fmt.Errorf("%w: todo ID cannot be empty", ErrValidation)
	ErrEmptyTitle   = fmt.Errorf("%w: title cannot be empty", ErrValidation)
	ErrTitleTooLong = fmt.Errorf("%w: title must be at most %d characters", ErrValidation, MaxTitleLength)
)

// Todo is a single item on the shared list. It can carry an optional picture
// and any number of assigned users.
type Todo struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Complete  bool      `json:"complete"`
	Pic       []byte    `json:"-"`
	HasPic    bool      `json:"has_pic"`
	Assignees []int64   `json:"assignees"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTodo creates an incomplete Todo with a fresh ID.
func NewTodo(title string) (*Todo, error) {
	now := time.Now().UTC()
	todo := &Todo{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(title),
		Assignees: []int64{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := todo.Validate(); err != nil {
		return nil, err
	}

	return todo, nil
}

// Validate checks the Todo's ID and title.
func (t *Todo) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTodoID
	}
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// IsAssigned reports whether userID is among the todo's assignees.
func (t *Todo) IsAssigned(userID int64) bool {
	for _, id := range t.Assignees {
		if id == userID {
			return true
		}
	}
	return false
}
