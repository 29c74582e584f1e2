package chain

import "github.com/mpdriver/mpdriver/engine/task"

// Entity is a batch target classified as a task or one of its subtasks.
// Position is the subtask index within Task.Subtasks and is unused for tasks.
type Entity struct {
	Kind     task.Kind
	Task     *task.Task
	Position int
}

func (e Entity) ID() int64 {
	if e.Kind == task.KindSubtask {
		return e.Task.Subtasks[e.Position].ID
	}
	return e.Task.ID
}

func (e Entity) IsFirst() bool {
	return e.Kind == task.KindSubtask && e.Position == 0
}

func (e Entity) IsLast() bool {
	return e.Kind == task.KindSubtask && e.Position == len(e.Task.Subtasks)-1
}

// Index classifies entity ids against the current task list.
type Index struct {
	entities map[int64]Entity
}

func NewIndex(tasks []task.Task) *Index {
	idx := &Index{entities: make(map[int64]Entity)}
	for i := range tasks {
		t := &tasks[i]
		idx.entities[t.ID] = Entity{Kind: task.KindTask, Task: t}
	}
	for i := range tasks {
		t := &tasks[i]
		for pos := range t.Subtasks {
			id := t.Subtasks[pos].ID
			if _, taken := idx.entities[id]; taken {
				continue
			}
			idx.entities[id] = Entity{Kind: task.KindSubtask, Task: t, Position: pos}
		}
	}
	return idx
}

func (idx *Index) Lookup(id int64) (Entity, bool) {
	e, ok := idx.entities[id]
	return e, ok
}

// Visible returns the ids of every task and subtask in tasks.
func Visible(tasks []task.Task) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for i := range tasks {
		ids[tasks[i].ID] = struct{}{}
		for j := range tasks[i].Subtasks {
			ids[tasks[i].Subtasks[j].ID] = struct{}{}
		}
	}
	return ids
}
