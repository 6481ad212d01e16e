package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todos-api/internal/domain"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/phrazzld/todos-api/internal/store"
)


// PostgresTodoStore implements the store.TodoStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTodoStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTodoStore creates a new PostgreSQL implementation of the TodoStore interface.
// If logger is nil, slog.Default() is used.
func NewPostgresTodoStore(db store.DBTX, logger *slog.Logger) *PostgresTodoStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTodoStore{
		db:     db,
		logger: logger.With(slog.String("component", "todo_store")),
	}
}

// Ensure PostgresTodoStore implements store.TodoStore interface
var _ store.TodoStore = (*PostgresTodoStore)(nil)

// todoColumns is shared by every query that loads a todo row, optionally
// joined with one assignee.
const todoColumns = `t.id, t.title, t.complete, t.pic IS NOT NULL, t.created_at, t.updated_at`

// whereFilter renders filter as a WHERE clause starting at placeholder $1.
func whereFilter(filter store.TodoFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.Complete != nil {
		args = append(args, *filter.Complete)
		clauses = append(clauses, fmt.Sprintf("t.complete = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Create implements store.TodoStore.Create
func (s *PostgresTodoStore) Create(ctx context.Context, todo *domain.Todo) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := todo.Validate(); err != nil {
		log.Warn("todo validation failed during create",
			slog.String("error", err.Error()),
			slog.String("todo_id", todo.ID.String()))
		return err
	}

	query := `
		INSERT INTO todos (id, title, complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		todo.ID, todo.Title, todo.Complete, todo.CreatedAt, todo.UpdatedAt)
	if err != nil {
		log.Error("failed to create todo",
			slog.String("error", err.Error()),
			slog.String("todo_id", todo.ID.String()))
		return MapError(err)
	}

	if todo.Assignees == nil {
		todo.Assignees = []int64{}
	}

	log.Debug("todo created successfully", slog.String("todo_id", todo.ID.String()))
	return nil
}

// GetByID implements store.TodoStore.GetByID
func (s *PostgresTodoStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Todo, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + todoColumns + `, a.user_id
		FROM todos t
		LEFT JOIN assignments a ON a.todo_id = t.id
		WHERE t.id = $1
		ORDER BY a.user_id
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		log.Error("failed to get todo",
			slog.String("error", err.Error()),
			slog.String("todo_id", id.String()))
		return nil, MapError(err)
	}

	todos, err := scanTodos(rows)
	if err != nil {
		return nil, err
	}
	if len(todos) == 0 {
		log.Debug("todo not found", slog.String("todo_id", id.String()))
		return nil, store.ErrTodoNotFound
	}
	return todos[0], nil
}

// List implements store.TodoStore.List
func (s *PostgresTodoStore) List(ctx context.Context, filter store.TodoFilter) ([]*domain.Todo, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := whereFilter(filter)
	query := `
		SELECT ` + todoColumns + `, a.user_id
		FROM todos t
		LEFT JOIN assignments a ON a.todo_id = t.id` + where + `
		ORDER BY t.created_at DESC, t.id, a.user_id
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list todos", slog.String("error", err.Error()))
		return nil, store.NewStoreError("todo", "list", "query failed", MapError(err))
	}
	return scanTodos(rows)
}

// scanTodos folds joined todo/assignee rows into todos, preserving row order.
// It closes rows.
func scanTodos(rows *sql.Rows) ([]*domain.Todo, error) {
	defer func() { _ = rows.Close() }()

	todos := []*domain.Todo{}
	byID := make(map[uuid.UUID]*domain.Todo)
	for rows.Next() {
		var (
			t        domain.Todo
			assignee sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Complete, &t.HasPic,
			&t.CreatedAt, &t.UpdatedAt, &assignee); err != nil {
			return nil, store.NewStoreError("todo", "scan", "bad row", err)
		}

		existing, ok := byID[t.ID]
		if !ok {
			t.Assignees = []int64{}
			existing = &t
			byID[t.ID] = existing
			todos = append(todos, existing)
		}
		if assignee.Valid {
			existing.Assignees = append(existing.Assignees, assignee.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("todo", "scan", "iteration failed", MapError(err))
	}
	return todos, nil
}

// Count implements store.TodoStore.Count
func (s *PostgresTodoStore) Count(ctx context.Context, filter store.TodoFilter) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := whereFilter(filter)
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos t`+where, args...).Scan(&count)
	if err != nil {
		log.Error("failed to count todos", slog.String("error", err.Error()))
		return 0, store.NewStoreError("todo", "count", "query failed", MapError(err))
	}
	return count, nil
}

// Update implements store.TodoStore.Update
func (s *PostgresTodoStore) Update(ctx context.Context, todo *domain.Todo) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := todo.Validate(); err != nil {
		return err
	}

	todo.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE todos
		SET title = $1, complete = $2, updated_at = $3
		WHERE id = $4
	`, todo.Title, todo.Complete, todo.UpdatedAt, todo.ID)
	if err != nil {
		log.Error("failed to update todo",
			slog.String("error", err.Error()),
			slog.String("todo_id", todo.ID.String()))
		return MapError(err)
	}

	return s.mapRowsAffected(result)
}

// Delete implements store.TodoStore.Delete
// Assignments are removed by the ON DELETE CASCADE on assignments.todo_id.
func (s *PostgresTodoStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete todo",
			slog.String("error", err.Error()),
			slog.String("todo_id", id.String()))
		return MapError(err)
	}

	if err := s.mapRowsAffected(result); err != nil {
		return err
	}
	log.Debug("todo deleted", slog.String("todo_id", id.String()))
	return nil
}

// SetPic implements store.TodoStore.SetPic
func (s *PostgresTodoStore) SetPic(ctx context.Context, id uuid.UUID, pic []byte) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE todos
		SET pic = $1, updated_at = $2
		WHERE id = $3
	`, pic, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to store todo picture",
			slog.String("error", err.Error()),
			slog.String("todo_id", id.String()))
		return MapError(err)
	}

	return s.mapRowsAffected(result)
}

// GetPic implements store.TodoStore.GetPic
func (s *PostgresTodoStore) GetPic(ctx context.Context, id uuid.UUID) ([]byte, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var pic []byte
	err := s.db.QueryRowContext(ctx, `SELECT pic FROM todos WHERE id = $1`, id).Scan(&pic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTodoNotFound
		}
		log.Error("failed to load todo picture",
			slog.String("error", err.Error()),
			slog.String("todo_id", id.String()))
		return nil, MapError(err)
	}
	if len(pic) == 0 {
		return nil, store.ErrPicNotFound
	}
	return pic, nil
}

// AddAssignee implements store.TodoStore.AddAssignee. The todo row is locked
// and both ends of the assignment are checked inside one transaction, so a
// concurrent delete cannot slip in between the checks and the insert.
func (s *PostgresTodoStore) AddAssignee(ctx context.Context, todoID uuid.UUID, userID int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("todo_id", todoID.String()),
		slog.Int64("user_id", userID))

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, db store.DBTX) error {
		var locked uuid.UUID
		err := db.QueryRowContext(ctx, `SELECT id FROM todos WHERE id = $1 FOR UPDATE`, todoID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrTodoNotFound
		}
		if err != nil {
			return MapError(err)
		}

		var found int64
		err = db.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1`, userID).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrUserNotFound
		}
		if err != nil {
			return MapError(err)
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO assignments (todo_id, user_id)
			VALUES ($1, $2)
		`, todoID, userID)
		return MapError(err)
	})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrDuplicate) {
			log.Warn("failed to assign user to todo", slog.String("error", err.Error()))
		}
		return err
	}

	log.Debug("user assigned to todo")
	return nil
}

// RemoveAssignee implements store.TodoStore.RemoveAssignee
func (s *PostgresTodoStore) RemoveAssignee(ctx context.Context, todoID uuid.UUID, userID int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM assignments
		WHERE todo_id = $1 AND user_id = $2
	`, todoID, userID)
	if err != nil {
		log.Error("failed to unassign user from todo",
			slog.String("error", err.Error()),
			slog.String("todo_id", todoID.String()),
			slog.Int64("user_id", userID))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrAssignmentNotFound)
}

// mapRowsAffected converts a zero-row update or delete into ErrTodoNotFound.
func (s *PostgresTodoStore) mapRowsAffected(result sql.Result) error {
	return CheckRowsAffected(result, store.ErrTodoNotFound)
}

// WithTx implements store.TodoStore.WithTx
func (s *PostgresTodoStore) WithTx(tx *sql.Tx) store.TodoStore {
	return &PostgresTodoStore{
		db:     tx,
		logger: s.logger,
	}
}
