// Package note holds the notices shown to a field worker, optionally tied to
// one of their tasks.
package note

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("note not found")
	ErrInvalidDraft = errors.New("invalid note")
)

// Note is one notice addressed to a user.
type Note struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"userId"`
	TaskID *int64 `json:"taskId"`
	Status int    `json:"status"`
	Type   int    `json:"type"`
	Text   string `json:"text"`
}

// StatusChange moves a note to a new status, e.g. read or dismissed.
type StatusChange struct {
	UserID int64
	NoteID int64
	Status int
}

// Draft is a note written by the user.
type Draft struct {
	UserID    int64
	Text      string
	CreatedAt time.Time
	TaskID    *int64
}

// Validate checks the draft is worth recording.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidDraft)
	}
	if d.CreatedAt.IsZero() {
		return fmt.Errorf("%w: creation time is required", ErrInvalidDraft)
	}
	if d.TaskID != nil && *d.TaskID <= 0 {
		return fmt.Errorf("%w: task id must be positive", ErrInvalidDraft)
	}
	return nil
}
