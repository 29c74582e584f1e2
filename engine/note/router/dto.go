package ntrouter

import (
	"github.com/mpdriver/mpdriver/engine/note"
	tkrouter "github.com/mpdriver/mpdriver/engine/task/router"
)

// CreateNoteRequest is the POST /notes body. Dt uses the same formats as
// status batches.
type CreateNoteRequest struct {
	Text   string             `json:"text"    binding:"required,max=4000"`
	Dt     tkrouter.Timestamp `json:"dt"`
	TaskID *int64             `json:"task_id" binding:"omitempty,min=1"`
}

func (r *CreateNoteRequest) draft(userID int64) *note.Draft {
	return &note.Draft{UserID: userID, Text: r.Text, CreatedAt: r.Dt.Time, TaskID: r.TaskID}
}

// UpdateNoteRequest is the PATCH /notes/:note_id body.
type UpdateNoteRequest struct {
	Status *int `json:"status" binding:"required,min=0"`
}
