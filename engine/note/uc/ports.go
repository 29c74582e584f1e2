// Package uc holds the note use cases: listing a user's notes, changing
// their status and writing new ones.
package uc

import (
	"context"

	"github.com/mpdriver/mpdriver/engine/note"
)

// Store reads notes and records note events.
type Store interface {
	ListNotes(ctx context.Context, userID int64) ([]note.Note, error)
	RecordNoteStatus(ctx context.Context, change *note.StatusChange) error
	CreateNote(ctx context.Context, draft *note.Draft) error
}
