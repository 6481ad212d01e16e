package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/todos-api/internal/dbsession"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/phrazzld/todos-api/internal/store"
)

// Registered task names
const (
	CountTodosTaskName = "todos.count_todos"
	EchoTaskName       = "todos.echo"
)

// ErrInvalidArgs is returned when a task cannot decode its arguments.
var ErrInvalidArgs = errors.New("invalid task arguments")

// TodoStoreFactory builds a TodoStore on a database handle.
type TodoStoreFactory func(db store.DBTX) store.TodoStore

// NewCountTodosTask returns the task that counts todos matching the filter
// passed as its argument, e.g. {"complete": false}. Null args count all todos.
func NewCountTodosTask(sessions *dbsession.Registry, newStore TodoStoreFactory, log *slog.Logger) *SessionTask {
	if log == nil {
		log = slog.Default()
	}

	return NewSessionTask(CountTodosTaskName, sessions, func(ctx context.Context, inv *Invocation) (any, error) {
		filter, err := decodeTodoFilter(inv.Args)
		if err != nil {
			return nil, err
		}

		sess, err := inv.Session(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}

		count, err := newStore(sess).Count(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count todos: %w", err)
		}

		l := logger.FromContextOrDefault(ctx, log)
		l.Info("todos counted",
			slog.Any("filter", filter),
			slog.Int("count", count))
		return count, nil
	}, log)
}

func decodeTodoFilter(args json.RawMessage) (store.TodoFilter, error) {
	var filter store.TodoFilter
	if len(args) == 0 || bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
		return filter, nil
	}

	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&filter); err != nil {
		return filter, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return filter, nil
}

// EchoTask logs its argument and returns it unchanged. It is used to check
// that the worker pipeline is alive.
func EchoTask(log *slog.Logger) HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, ec dbsession.ExecutionContext, args json.RawMessage) (any, error) {
		logger.FromContextOrDefault(ctx, log).Info("echo task",
			slog.String("arg", string(args)),
			slog.Time("echoed_at", time.Now()))
		return args, nil
	}
}

// RegisterDefaults registers every task the service runs. Both keep results.
func RegisterDefaults(tasks *Registry, sessions *dbsession.Registry, newTodoStore TodoStoreFactory, log *slog.Logger) error {
	if err := tasks.Register(CountTodosTaskName, NewCountTodosTask(sessions, newTodoStore, log), StoreResult()); err != nil {
		return err
	}
	return tasks.Register(EchoTaskName, EchoTask(log), StoreResult())
}
