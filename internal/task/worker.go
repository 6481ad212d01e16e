package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/todos-api/internal/dbsession"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/phrazzld/todos-api/internal/redact"
)

// consumeRetryDelay is how long a worker waits after a broker error.
const consumeRetryDelay = time.Second

// WorkerConfig holds configuration options for the worker pool
type WorkerConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start.
	// If zero or negative, defaults to 1.
	WorkerCount int
}

// DefaultWorkerConfig returns a WorkerConfig with reasonable defaults
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{WorkerCount: 2}
}

// Worker manages a pool of goroutines that consume messages from a broker
// and invoke the registered task for each one. Every message runs in a fresh
// execution context.
type Worker struct {
	broker      Broker
	tasks       *Registry
	results     ResultStore
	workerCount int

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu           sync.RWMutex
	errorHandler func(msg Message, err error)
}

// NewWorker creates a worker pool. results may be nil when no task keeps
// its result.
func NewWorker(broker Broker, tasks *Registry, results ResultStore, config WorkerConfig, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "worker")

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		broker:      broker,
		tasks:       tasks,
		results:     results,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler sets a function called after a task invocation fails.
// Failures are always logged.
func (w *Worker) SetErrorHandler(handler func(msg Message, err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errorHandler = handler
}

// Start launches the worker goroutines.
func (w *Worker) Start() {
	w.logger.Info("starting workers",
		"worker_count", w.workerCount,
		"tasks", w.tasks.Names())

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.run(i)
	}
}

// Stop cancels in-flight work and waits for every goroutine to exit.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
	w.logger.Info("workers stopped")
}

func (w *Worker) run(id int) {
	defer w.wg.Done()

	w.logger.Debug("starting worker", "worker_id", id)

	for {
		msg, err := w.broker.Consume(w.ctx)
		if err != nil {
			if w.ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				w.logger.Debug("stopping worker", "worker_id", id)
				return
			}

			w.logger.Error("failed to consume message",
				"worker_id", id,
				"error", err)

			if errors.Is(err, ErrMalformedMessage) {
				continue
			}
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(consumeRetryDelay):
			}
			continue
		}

		w.process(msg, id)
	}
}

// process invokes the task named by msg and records its outcome.
func (w *Worker) process(msg Message, workerID int) {
	ec := dbsession.NewExecutionContext("task")
	log := w.logger.With(
		"task_id", msg.ID,
		"task_name", msg.Task,
		"worker_id", workerID,
		"execution_context", ec.String(),
	)
	ctx := logger.WithLogger(w.ctx, log)

	def, ok := w.tasks.Lookup(msg.Task)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTask, msg.Task)
		log.Error("received unregistered task", "error", err)
		w.handleError(msg, err)
		return
	}

	log.Info("task received", "schedule", msg.ScheduleName)
	start := time.Now()

	result, err := def.Handler.Invoke(ctx, ec, msg.Args)
	runtime := time.Since(start)

	if err != nil {
		log.Error("task failed",
			"runtime", runtime.Seconds(),
			"error", redact.Error(err))
		w.store(ctx, def, Result{ID: msg.ID, Task: msg.Task, Status: StatusFailure, Error: redact.Error(err)})
		w.handleError(msg, err)
		return
	}

	log.Info("task succeeded",
		"runtime", runtime.Seconds(),
		"result", result)

	encoded, err := json.Marshal(result)
	if err != nil {
		log.Error("failed to encode task result", "error", err)
		return
	}
	w.store(ctx, def, Result{ID: msg.ID, Task: msg.Task, Status: StatusSuccess, Result: encoded})
}

func (w *Worker) store(ctx context.Context, def Definition, result Result) {
	if def.IgnoreResult || w.results == nil {
		return
	}

	result.DateDone = time.Now().UTC()
	if err := w.results.Store(ctx, result); err != nil {
		logger.FromContextOrDefault(ctx, w.logger).Error("failed to store task result", "error", err)
	}
}

func (w *Worker) handleError(msg Message, err error) {
	w.mu.RLock()
	handler := w.errorHandler
	w.mu.RUnlock()

	if handler != nil {
		handler(msg, err)
	}
}
