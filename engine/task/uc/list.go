package uc

import (
	"context"

	"github.com/mpdriver/mpdriver/engine/task"
	"github.com/mpdriver/mpdriver/engine/task/aggregate"
	"github.com/mpdriver/mpdriver/engine/task/chain"
)

// Filter narrows a task list.
type Filter func(tasks []task.Task) []task.Task

// All keeps every task.
func All(tasks []task.Task) []task.Task { return tasks }

// Planned keeps tasks that have not started.
func Planned(tasks []task.Task) []task.Task {
	return byStatus(tasks, task.StatusNotDefined)
}

// Completed keeps finished tasks.
func Completed(tasks []task.Task) []task.Task {
	return byStatus(tasks, task.StatusCompleted)
}

func byStatus(tasks []task.Task, status task.Status) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for i := range tasks {
		if tasks[i].Status == status {
			out = append(out, tasks[i])
		}
	}
	return out
}

type ListTasks struct {
	rows RowSource
	opts aggregate.Options
}

func NewListTasks(rows RowSource, opts aggregate.Options) *ListTasks {
	return &ListTasks{rows: rows, opts: opts}
}

func (uc *ListTasks) Execute(ctx context.Context, userID int64, filter Filter) ([]task.Task, error) {
	tasks, err := loadTasks(ctx, uc.rows, uc.opts, userID)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return tasks, nil
	}
	return filter(tasks), nil
}

// Active returns the first task in progress, or nil when there is none.
func (uc *ListTasks) Active(ctx context.Context, userID int64) (*task.Task, error) {
	tasks, err := loadTasks(ctx, uc.rows, uc.opts, userID)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].Status == task.StatusInProgress {
			return &tasks[i], nil
		}
	}
	return nil, nil
}

// Count returns how many of the user's tasks pass filter.
func (uc *ListTasks) Count(ctx context.Context, userID int64, filter Filter) (int, error) {
	tasks, err := uc.Execute(ctx, userID, filter)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// ActiveSubtask returns the first subtask of the task that is in progress,
// or nil when none is.
func (uc *ListTasks) ActiveSubtask(ctx context.Context, userID, taskID int64) (*task.Subtask, error) {
	t, err := uc.find(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	for i := range t.Subtasks {
		if t.Subtasks[i].Status == task.StatusInProgress {
			return &t.Subtasks[i], nil
		}
	}
	return nil, nil
}

// Subtasks returns the ordered subtasks of one of the user's tasks.
func (uc *ListTasks) Subtasks(ctx context.Context, userID, taskID int64) ([]task.Subtask, error) {
	t, err := uc.find(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return t.Subtasks, nil
}

// StatusEvents returns the task's events whose type is kind.
func (uc *ListTasks) StatusEvents(ctx context.Context, userID, taskID int64, kind string) ([]task.Event, error) {
	t, err := uc.find(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	out := make([]task.Event, 0, len(t.Events))
	for _, ev := range t.Events {
		if ev.Type == kind {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (uc *ListTasks) find(ctx context.Context, userID, taskID int64) (*task.Task, error) {
	tasks, err := loadTasks(ctx, uc.rows, uc.opts, userID)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].ID == taskID {
			return &tasks[i], nil
		}
	}
	return nil, &chain.RejectedError{Cause: chain.CauseNoTaskForUser, EntityID: taskID}
}
