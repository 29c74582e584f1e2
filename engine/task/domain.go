// Package task holds the read model of field-worker tasks: a Task with its
// ordered Subtasks, the Events recorded against either level, and the Route
// the Task runs on.
package task

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a Task or Subtask. NotDefined is the
// implicit initial state; Completed and Cancelled are terminal.
type Status string

const (
	StatusNotDefined Status = "NotDefined"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

// ParseStatus maps a reference mnemonic onto a Status.
func ParseStatus(code string) (Status, error) {
	switch s := Status(code); s {
	case StatusNotDefined, StatusInProgress, StatusCompleted, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("unknown status code %q", code)
	}
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Kind tags an entity id as a top-level Task or a Subtask.
type Kind int

const (
	KindTask Kind = iota + 1
	KindSubtask
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindSubtask:
		return "subtask"
	default:
		return "unknown"
	}
}

// Task is a top-level unit of work assigned to a user.
type Task struct {
	ID           int64      `json:"id"`
	OwnerID      int64      `json:"-"`
	PlannedStart time.Time  `json:"plannedStart"`
	PlannedEnd   time.Time  `json:"plannedEnd"`
	ActualStart  *time.Time `json:"actualStart"`
	ActualEnd    *time.Time `json:"actualEnd"`
	Status       Status     `json:"status"`
	Type         string     `json:"taskType"`
	Text         string     `json:"text"`
	Subtasks     []Subtask  `json:"subtasks"`
	Events       []Event    `json:"events"`
	Route        *Route     `json:"route"`
}

// SubtaskIndex returns the position of the subtask with the given id, or -1.
func (t *Task) SubtaskIndex(id int64) int {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Subtask is an ordered step within a Task.
type Subtask struct {
	ID           int64      `json:"id"`
	ParentID     int64      `json:"-"`
	PlannedStart time.Time  `json:"plannedStart"`
	PlannedEnd   time.Time  `json:"plannedEnd"`
	ActualStart  *time.Time `json:"actualStart"`
	ActualEnd    *time.Time `json:"actualEnd"`
	Status       Status     `json:"status"`
	Type         string     `json:"taskType"`
	Text         string     `json:"text"`
	Station      *Station   `json:"station"`
	Events       []Event    `json:"events"`
}

// Event is a log entry recorded against a Task or Subtask.
type Event struct {
	ID      int64             `json:"id"`
	Type    string            `json:"type"`
	Text    string            `json:"text"`
	At      time.Time         `json:"eventDatetime"`
	OwnerID int64             `json:"-"`
	Payload map[string]string `json:"eventData"`
}

// Route pairs the vehicles a Task runs with.
type Route struct {
	ID          int64            `json:"id"`
	Temperature TemperatureClass `json:"temperatureProperty"`
	Name        string           `json:"name"`
	Trailer     *Vehicle         `json:"trailer"`
	Truck       *Vehicle         `json:"truck"`
}

// Vehicle is a truck or trailer.
type Vehicle struct {
	ID            int64   `json:"id"`
	Certification *string `json:"gost"`
}

// Station is a pickup or drop-off point.
type Station struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Location Location `json:"location"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// StatusChange is one accepted transition handed to the persistence sink.
type StatusChange struct {
	UserID   int64
	EntityID int64
	Kind     Kind
	At       time.Time
	Status   Status
	Reason   string
}
