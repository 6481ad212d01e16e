package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todos-api/internal/domain"
	"github.com/phrazzld/todos-api/internal/store"
)

// MockTodoStore implements store.TodoStore in memory for testing.
// It is safe for concurrent use.
type MockTodoStore struct {
	// Function fields for customizable behavior
	CountFn   func(ctx context.Context, filter store.TodoFilter) (int, error)
	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Todo, error)
	ListFn    func(ctx context.Context, filter store.TodoFilter) ([]*domain.Todo, error)

	mu    sync.RWMutex
	Todos map[uuid.UUID]*domain.Todo
	Users map[int64]bool // known user IDs for assignment checks; nil accepts all
}

// NewMockTodoStore creates a new mock store with initialized defaults
func NewMockTodoStore(todos ...*domain.Todo) *MockTodoStore {
	m := &MockTodoStore{Todos: make(map[uuid.UUID]*domain.Todo)}
	for _, t := range todos {
		m.Todos[t.ID] = t
	}
	return m
}

var _ store.TodoStore = (*MockTodoStore)(nil)

func matches(t *domain.Todo, filter store.TodoFilter) bool {
	return filter.Complete == nil || t.Complete == *filter.Complete
}

func clone(t *domain.Todo) *domain.Todo {
	c := *t
	c.Pic = nil
	c.HasPic = len(t.Pic) > 0
	c.Assignees = append([]int64{}, t.Assignees...)
	return &c
}

// Create implements store.TodoStore
func (m *MockTodoStore) Create(ctx context.Context, todo *domain.Todo) error {
	if err := todo.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.Todos[todo.ID]; exists {
		return store.ErrDuplicate
	}
	m.Todos[todo.ID] = clone(todo)
	return nil
}

// GetByID implements store.TodoStore
func (m *MockTodoStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Todo, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.Todos[id]
	if !ok {
		return nil, store.ErrTodoNotFound
	}
	return clone(t), nil
}

// List implements store.TodoStore
func (m *MockTodoStore) List(ctx context.Context, filter store.TodoFilter) ([]*domain.Todo, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*domain.Todo{}
	for _, t := range m.Todos {
		if matches(t, filter) {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Count implements store.TodoStore
func (m *MockTodoStore) Count(ctx context.Context, filter store.TodoFilter) (int, error) {
	if m.CountFn != nil {
		return m.CountFn(ctx, filter)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, t := range m.Todos {
		if matches(t, filter) {
			n++
		}
	}
	return n, nil
}

// Update implements store.TodoStore
func (m *MockTodoStore) Update(ctx context.Context, todo *domain.Todo) error {
	if err := todo.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.Todos[todo.ID]
	if !ok {
		return store.ErrTodoNotFound
	}
	existing.Title = todo.Title
	existing.Complete = todo.Complete
	existing.UpdatedAt = time.Now().UTC()
	todo.UpdatedAt = existing.UpdatedAt
	return nil
}

// Delete implements store.TodoStore
func (m *MockTodoStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Todos[id]; !ok {
		return store.ErrTodoNotFound
	}
	delete(m.Todos, id)
	return nil
}

// SetPic implements store.TodoStore
func (m *MockTodoStore) SetPic(ctx context.Context, id uuid.UUID, pic []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.Todos[id]
	if !ok {
		return store.ErrTodoNotFound
	}
	t.Pic = append([]byte(nil), pic...)
	t.HasPic = len(pic) > 0
	return nil
}

// GetPic implements store.TodoStore
func (m *MockTodoStore) GetPic(ctx context.Context, id uuid.UUID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.Todos[id]
	if !ok {
		return nil, store.ErrTodoNotFound
	}
	if len(t.Pic) == 0 {
		return nil, store.ErrPicNotFound
	}
	return append([]byte(nil), t.Pic...), nil
}

// AddAssignee implements store.TodoStore
func (m *MockTodoStore) AddAssignee(ctx context.Context, todoID uuid.UUID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.Todos[todoID]
	if !ok {
		return store.ErrTodoNotFound
	}
	if m.Users != nil && !m.Users[userID] {
		return store.ErrUserNotFound
	}
	if t.IsAssigned(userID) {
		return store.ErrAlreadyAssigned
	}
	t.Assignees = append(t.Assignees, userID)
	return nil
}

// RemoveAssignee implements store.TodoStore
func (m *MockTodoStore) RemoveAssignee(ctx context.Context, todoID uuid.UUID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.Todos[todoID]
	if !ok || !t.IsAssigned(userID) {
		return store.ErrAssignmentNotFound
	}
	kept := t.Assignees[:0]
	for _, id := range t.Assignees {
		if id != userID {
			kept = append(kept, id)
		}
	}
	t.Assignees = kept
	return nil
}

// WithTx implements store.TodoStore. The mock ignores transactions.
func (m *MockTodoStore) WithTx(tx *sql.Tx) store.TodoStore {
	return m
}
