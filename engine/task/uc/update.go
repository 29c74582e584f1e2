package uc

import (
	"context"
	"errors"
	"fmt"

	"github.com/mpdriver/mpdriver/engine/task"
	"github.com/mpdriver/mpdriver/engine/task/aggregate"
	"github.com/mpdriver/mpdriver/engine/task/chain"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

type UpdateStatusesInput struct {
	UserID      int64
	Transitions []chain.Transition
}

// UpdateStatuses validates a batch against the user's current tasks, records
// each accepted change and returns the refreshed task list.
type UpdateStatuses struct {
	rows    RowSource
	sink    Sink
	opts    aggregate.Options
	metrics *Metrics
}

func NewUpdateStatuses(rows RowSource, sink Sink, opts aggregate.Options, metrics *Metrics) *UpdateStatuses {
	return &UpdateStatuses{rows: rows, sink: sink, opts: opts, metrics: metrics}
}

func (uc *UpdateStatuses) Execute(ctx context.Context, in *UpdateStatusesInput) ([]task.Task, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: input cannot be nil", ErrInvalidInput)
	}
	log := logger.FromContext(ctx)
	tasks, err := loadTasks(ctx, uc.rows, uc.opts, in.UserID)
	if err != nil {
		return nil, err
	}
	accepted, err := chain.Validate(in.Transitions, tasks, chain.Visible(tasks))
	uc.metrics.recordOutcome(ctx, err)
	if err != nil {
		log.Warn("Status batch rejected", "user_id", in.UserID, "size", len(in.Transitions), "error", err)
		return nil, err
	}
	if err := uc.persist(ctx, in.UserID, accepted, chain.NewIndex(tasks)); err != nil {
		return nil, err
	}
	log.Info("Status batch accepted", "user_id", in.UserID, "size", len(accepted))
	return loadTasks(ctx, uc.rows, uc.opts, in.UserID)
}

func (uc *UpdateStatuses) persist(ctx context.Context, userID int64, batch []chain.Transition, idx *chain.Index) error {
	for i, tr := range batch {
		if err := ctx.Err(); err != nil {
			return &PersistError{Written: i, Total: len(batch), Err: err}
		}
		e, ok := idx.Lookup(tr.EntityID)
		if !ok {
			return &PersistError{Written: i, Total: len(batch), Err: errors.New("entity vanished after validation")}
		}
		change := &task.StatusChange{
			UserID:   userID,
			EntityID: tr.EntityID,
			Kind:     e.Kind,
			At:       tr.At,
			Status:   tr.Status,
			Reason:   tr.Reason,
		}
		if err := uc.sink.RecordStatusEvent(ctx, change); err != nil {
			return &PersistError{Written: i, Total: len(batch), Err: err}
		}
		uc.metrics.recordPersisted(ctx, e.Kind)
	}
	return nil
}
