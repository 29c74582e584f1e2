// Package uc holds the task service use cases: reading the caller's task
// hierarchy and accepting batches of status transitions.
package uc

import (
	"context"
	"errors"
	"fmt"

	"github.com/mpdriver/mpdriver/engine/task"
	"github.com/mpdriver/mpdriver/engine/task/aggregate"
)

// RowSource returns the flat joined rows for a user with reference codes
// already resolved.
type RowSource interface {
	FetchTaskRows(ctx context.Context, userID int64) ([]aggregate.Row, error)
}

// Sink records one accepted status change.
type Sink interface {
	RecordStatusEvent(ctx context.Context, change *task.StatusChange) error
}

var ErrInvalidInput = errors.New("invalid input")

// PersistError reports a sink failure in the middle of a batch. Written
// changes stay recorded.
type PersistError struct {
	Written int
	Total   int
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisted %d of %d status changes: %v", e.Written, e.Total, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

func loadTasks(ctx context.Context, rows RowSource, opts aggregate.Options, userID int64) ([]task.Task, error) {
	raw, err := rows.FetchTaskRows(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch task rows: %w", err)
	}
	tasks, err := aggregate.Aggregate(raw, opts)
	if err != nil {
		return nil, fmt.Errorf("aggregate tasks: %w", err)
	}
	return tasks, nil
}
