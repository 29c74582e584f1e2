package uc

import (
	"context"
	"fmt"

	"github.com/mpdriver/mpdriver/engine/note"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

type ListNotes struct {
	store Store
}

func NewListNotes(store Store) *ListNotes {
	return &ListNotes{store: store}
}

func (uc *ListNotes) Execute(ctx context.Context, userID int64) ([]note.Note, error) {
	notes, err := uc.store.ListNotes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if notes == nil {
		notes = []note.Note{}
	}
	return notes, nil
}

// UpdateNoteStatus records a status change for one of the user's own notes.
type UpdateNoteStatus struct {
	store Store
}

func NewUpdateNoteStatus(store Store) *UpdateNoteStatus {
	return &UpdateNoteStatus{store: store}
}

func (uc *UpdateNoteStatus) Execute(ctx context.Context, change *note.StatusChange) error {
	notes, err := uc.store.ListNotes(ctx, change.UserID)
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}
	if !owns(notes, change.NoteID) {
		return fmt.Errorf("%w: id %d", note.ErrNotFound, change.NoteID)
	}
	if err := uc.store.RecordNoteStatus(ctx, change); err != nil {
		return fmt.Errorf("record note status: %w", err)
	}
	logger.FromContext(ctx).Info("Note status changed", "note_id", change.NoteID, "status", change.Status)
	return nil
}

func owns(notes []note.Note, id int64) bool {
	for i := range notes {
		if notes[i].ID == id {
			return true
		}
	}
	return false
}

type CreateNote struct {
	store Store
}

func NewCreateNote(store Store) *CreateNote {
	return &CreateNote{store: store}
}

func (uc *CreateNote) Execute(ctx context.Context, draft *note.Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	if err := uc.store.CreateNote(ctx, draft); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}
