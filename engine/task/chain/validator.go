// Package chain validates batches of status transitions. A batch is accepted
// only when every transition has its companion in the same batch, so a task
// and its subtasks always move in pairs that keep the subtasks sequential.
package chain

import (
	"slices"
	"strings"
	"time"

	"github.com/mpdriver/mpdriver/engine/task"
)

// Transition is one proposed status change.
type Transition struct {
	EntityID int64
	Status   task.Status
	At       time.Time
	Reason   string
}

type ruleKey struct {
	kind   task.Kind
	status task.Status
}

// check reports the rule that applies to e and whether the batch satisfies it.
type check func(e Entity, b batch) (rule string, ok bool)

var rules = map[ruleKey]check{
	{task.KindTask, task.StatusInProgress}:    taskStarts,
	{task.KindTask, task.StatusCompleted}:     taskCompletes,
	{task.KindSubtask, task.StatusInProgress}: subtaskStarts,
	{task.KindSubtask, task.StatusCompleted}:  subtaskEnds,
	{task.KindSubtask, task.StatusCancelled}:  subtaskEnds,
}

// Validate checks batch against the caller's tasks and visible entity ids.
// On success it returns the batch ordered by timestamp; equal timestamps
// keep their submitted order.
func Validate(in []Transition, tasks []task.Task, visible map[int64]struct{}) ([]Transition, error) {
	b := batch(slices.Clone(in))
	slices.SortStableFunc(b, func(x, y Transition) int {
		return x.At.Compare(y.At)
	})
	for _, tr := range b {
		if err := precondition(tr, visible); err != nil {
			return nil, err
		}
	}
	if len(b) == 0 || len(b)%2 != 0 {
		return nil, &RejectedError{
			Cause: CauseChainFailed,
			Rule:  "transitions must be submitted in pairs",
		}
	}
	idx := NewIndex(tasks)
	for _, tr := range b {
		e, ok := idx.Lookup(tr.EntityID)
		if !ok {
			return nil, reject(CauseChainFailed, tr, "entity is not part of the current task list")
		}
		rule, found := rules[ruleKey{e.Kind, tr.Status}]
		if !found {
			return nil, reject(CauseChainFailed, tr, "no chain rule for "+e.Kind.String()+" "+tr.Status.String())
		}
		if name, ok := rule(e, b); !ok {
			return nil, reject(CauseChainFailed, tr, name)
		}
	}
	return b, nil
}

func precondition(tr Transition, visible map[int64]struct{}) error {
	if _, ok := visible[tr.EntityID]; !ok {
		return reject(CauseNoTaskForUser, tr, "")
	}
	if tr.Status == task.StatusNotDefined {
		return reject(CauseProhibitedStatus, tr, "")
	}
	if tr.Status == task.StatusCancelled && strings.TrimSpace(tr.Reason) == "" {
		return reject(CauseMissingCancelReason, tr, "")
	}
	return nil
}

type batch []Transition

func (b batch) has(id int64, statuses ...task.Status) bool {
	for _, tr := range b {
		if tr.EntityID == id && slices.Contains(statuses, tr.Status) {
			return true
		}
	}
	return false
}

func taskStarts(e Entity, b batch) (string, bool) {
	const rule = "task InProgress requires its first subtask InProgress"
	if len(e.Task.Subtasks) == 0 {
		return rule, false
	}
	return rule, b.has(e.Task.Subtasks[0].ID, task.StatusInProgress)
}

func taskCompletes(e Entity, b batch) (string, bool) {
	const rule = "task Completed requires its last subtask Completed"
	n := len(e.Task.Subtasks)
	if n == 0 {
		return rule, false
	}
	return rule, b.has(e.Task.Subtasks[n-1].ID, task.StatusCompleted)
}

func subtaskStarts(e Entity, b batch) (string, bool) {
	if e.IsFirst() {
		return "first subtask InProgress requires its task InProgress",
			b.has(e.Task.ID, task.StatusInProgress)
	}
	prev := e.Task.Subtasks[e.Position-1].ID
	return "subtask InProgress requires the previous subtask Completed or Cancelled",
		b.has(prev, task.StatusCompleted, task.StatusCancelled)
}

func subtaskEnds(e Entity, b batch) (string, bool) {
	if e.IsLast() {
		return "last subtask Completed or Cancelled requires its task Completed",
			b.has(e.Task.ID, task.StatusCompleted)
	}
	next := e.Task.Subtasks[e.Position+1].ID
	return "subtask Completed or Cancelled requires the next subtask InProgress",
		b.has(next, task.StatusInProgress)
}
