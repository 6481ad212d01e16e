package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Schedule errors
var (
	ErrEmptyScheduleName = errors.New("schedule name cannot be empty")
	ErrDuplicateSchedule = errors.New("schedule name already registered")
	ErrInvalidInterval   = errors.New("schedule interval must be positive")
)

// CountTodosScheduleName is the default periodic entry.
const CountTodosScheduleName = "count-todos-every-5-seconds"

// Record is one periodic entry: publish Task with Args every Interval.
type Record struct {
	Name     string          `json:"name"`
	Task     string          `json:"task"`
	Interval time.Duration   `json:"interval"`
	Args     json.RawMessage `json:"args,omitempty"`
}

func (r Record) clone() Record {
	if r.Args != nil {
		r.Args = append(json.RawMessage(nil), r.Args...)
	}
	return r
}

// Schedule is the ordered table of periodic entries. Records cannot be
// changed once registered; Entries hands out copies.
type Schedule struct {
	mu      sync.RWMutex
	records []Record
	names   map[string]struct{}
}

// NewSchedule creates an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{names: make(map[string]struct{})}
}

// Register appends rec to the table.
func (s *Schedule) Register(rec Record) error {
	if rec.Name == "" {
		return ErrEmptyScheduleName
	}
	if rec.Task == "" {
		return fmt.Errorf("schedule %s: %w", rec.Name, ErrEmptyTaskName)
	}
	if rec.Interval <= 0 {
		return fmt.Errorf("schedule %s: %w", rec.Name, ErrInvalidInterval)
	}
	if len(rec.Args) > 0 && !json.Valid(rec.Args) {
		return fmt.Errorf("schedule %s: %w: args are not valid JSON", rec.Name, ErrMalformedMessage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.names[rec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSchedule, rec.Name)
	}
	s.names[rec.Name] = struct{}{}
	s.records = append(s.records, rec.clone())
	return nil
}

// Entries returns copies of the records in registration order.
func (s *Schedule) Entries() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.clone()
	}
	return out
}

// DefaultSchedule returns the table the beat process runs: count incomplete
// todos every five seconds.
func DefaultSchedule() *Schedule {
	s := NewSchedule()
	if err := s.Register(Record{
		Name:     CountTodosScheduleName,
		Task:     CountTodosTaskName,
		Interval: 5 * time.Second,
		Args:     json.RawMessage(`{"complete": false}`),
	}); err != nil {
		// ALLOW-PANIC: the default table is static
		panic(err)
	}
	return s
}
